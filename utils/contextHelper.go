package utils

import "context"

type contextKey string

const (
	ContextKeyUserId        contextKey = "userId"
	ContextKeyUserName      contextKey = "userName"
	ContextKeyCorrelationId contextKey = "correlationId"
)

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userId)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func SetUserNameInContext(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, name)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserName).(string)
	return v, ok
}

func SetCorrelationIdInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, id)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return v, ok
}

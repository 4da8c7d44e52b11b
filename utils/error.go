package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ConfigurationError means required reference data (a well-known category,
// a contact default mapping) is missing. Posting aborts; nothing is persisted.
type ConfigurationError struct {
	msg   string
	cause error
}

func (e *ConfigurationError) Error() string { return e.msg }
func (e *ConfigurationError) Unwrap() error { return e.cause }

func NewConfigurationError(cause error, format string, a ...any) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, a...), cause: cause}
}

// DataIntegrityError means the invoice references rows that no longer
// resolve (deleted product or category) or its state forbids the operation.
type DataIntegrityError struct {
	msg   string
	cause error
}

func (e *DataIntegrityError) Error() string { return e.msg }
func (e *DataIntegrityError) Unwrap() error { return e.cause }

func NewDataIntegrityError(cause error, format string, a ...any) error {
	return &DataIntegrityError{msg: fmt.Sprintf(format, a...), cause: cause}
}

// CalculationError covers arithmetic that cannot be carried out safely.
// The zero-stock average is guarded and returns zero instead of raising this.
type CalculationError struct {
	msg   string
	cause error
}

func (e *CalculationError) Error() string { return e.msg }
func (e *CalculationError) Unwrap() error { return e.cause }

func NewCalculationError(cause error, format string, a ...any) error {
	return &CalculationError{msg: fmt.Sprintf(format, a...), cause: cause}
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsDataIntegrityError(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}

// posting-worker consumes posting requests from Pub/Sub and runs the
// posting engine against the database, one transaction per message.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	PUBSUB_PROJECT_ID=... PUBSUB_TOPIC=... PUBSUB_SUBSCRIPTION=... \
//	go run ./cmd/posting-worker
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"bitbucket.org/mmdatafocus/ledger_backend/workflow"
	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	invoiceMutexMap = make(map[int]*sync.Mutex)
	globalMutex     = &sync.Mutex{}
)

func main() {
	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done, err := RunPostingWorker(ctx)
	if err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "failed to start posting worker: %v\n", err)
		os.Exit(1)
	}
	logger.Info("posting worker started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("posting worker stopping")

	// Cancelling the receive context stops message pulls; Receive returns
	// once the in-flight callbacks have finished, so wait for it before
	// exiting.
	cancel()
	<-done
	logger.Info("posting worker stopped")
}

func RunPostingWorker(ctx context.Context) (<-chan struct{}, error) {
	logger := config.GetLogger()
	client, err := config.GetClient(ctx)
	if err != nil {
		return nil, err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return nil, err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return nil, err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	callback := func(ctx context.Context, msg *pubsub.Message) {
		req := config.PostingRequest{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			config.LogError(logger, "posting-worker", "RunPostingWorker", "unmarshal pubsub message", string(msg.Data), err)
			msg.Ack()
			return
		}

		// Get or create the mutex for the current invoice
		globalMutex.Lock()
		mutex, exists := invoiceMutexMap[req.InvoiceId]
		if !exists {
			mutex = &sync.Mutex{}
			invoiceMutexMap[req.InvoiceId] = mutex
		}
		globalMutex.Unlock()

		mutex.Lock()
		defer mutex.Unlock()

		ctx = utils.SetUserIdInContext(ctx, req.UserId)
		ctx = utils.SetCorrelationIdInContext(ctx, req.CorrelationId)
		if err := ProcessPostingRequest(ctx, logger, req); err != nil {
			logger.WithFields(logrus.Fields{
				"invoice_id":     req.InvoiceId,
				"reference_type": req.ReferenceType,
				"correlation_id": req.CorrelationId,
				"message_id":     msg.ID,
			}).Error("pubsub processing failed: " + err.Error())
			// Bad requests are dropped; transient failures retry.
			if utils.IsConfigurationError(err) || utils.IsDataIntegrityError(err) {
				msg.Ack()
				return
			}
			msg.Nack()
			return
		}
		msg.Ack()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sub.Receive(ctx, callback); err != nil {
			config.LogError(logger, "posting-worker", "RunPostingWorker", "receive messages", nil, err)
		}
	}()

	return done, nil
}

func ProcessPostingRequest(ctx context.Context, logger *logrus.Logger, req config.PostingRequest) error {
	// Cross-instance serialization when Redis is configured; the MySQL
	// advisory lock inside the transaction covers the single-Redis-less case.
	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("posting:%d", req.InvoiceId)
		lock, err := locker.Obtain(ctx, lockKey, 60*time.Second, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(500 * time.Millisecond),
		})
		if err != nil {
			return err
		}
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := workflow.AcquirePostingLock(tx.WithContext(ctx), req.InvoiceId); err != nil {
			return err
		}
		defer workflow.ReleasePostingLock(tx.WithContext(ctx), req.InvoiceId)

		switch models.JournalReferenceType(req.ReferenceType) {
		case models.JournalReferenceTypeInvoice:
			_, err := workflow.PostInvoice(tx.WithContext(ctx), logger, req.InvoiceId, req.UserId)
			return err
		case models.JournalReferenceTypeReverseInvoice:
			_, err := workflow.ReverseInvoice(tx.WithContext(ctx), logger, req.InvoiceId, req.UserId)
			return err
		default:
			return utils.NewDataIntegrityError(nil, "unknown reference type %s", req.ReferenceType)
		}
	})
}

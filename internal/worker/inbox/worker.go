package inbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iinboxrepo"
	inboxmodel "github.com/huongnv75/customer-orders/internal/service/models/inbox"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

// service represents the service layer interface.
type service interface {
	ApplyOrderSnapshot(ctx context.Context, snapshot order.Order) error
}

// Worker retries parked order snapshots from the inbox table.
type Worker struct {
	inboxRepo    iinboxrepo.IInboxRepository
	service      service
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new inbox worker.
func NewWorker(
	inboxRepo iinboxrepo.IInboxRepository,
	service service,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		inboxRepo:    inboxRepo,
		service:      service,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the inbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Inbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Inbox worker shutting down")
			return
		case <-w.stopCh:
			slog.Info("Inbox worker stopped")
			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages retrieves and retries pending messages from the inbox.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.inboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from inbox", "error", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing inbox messages", "count", len(messages))

	for _, msg := range messages {
		var snapshot order.Order
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			slog.Error("Failed to unmarshal order snapshot from inbox",
				"error", err, "inbox_id", msg.ID)
			w.scheduleRetry(ctx, msg, err)
			continue
		}

		if err := w.service.ApplyOrderSnapshot(ctx, snapshot); err != nil {
			slog.Error("Failed to apply order snapshot from inbox",
				"error", err, "inbox_id", msg.ID, "order_id", snapshot.ID)
			w.scheduleRetry(ctx, msg, err)
			continue
		}

		if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from inbox", "inbox_id", msg.ID, "error", err)
			continue
		}

		slog.Info("Inbox message applied", "inbox_id", msg.ID, "order_id", snapshot.ID)
	}
}

// scheduleRetry bumps the retry counter with exponential backoff
// (30s, 60s, 120s, ...) and drops the message once retries are exhausted.
func (w *Worker) scheduleRetry(ctx context.Context, msg inboxmodel.Message, cause error) {
	newRetryCount := msg.RetryCount + 1
	if newRetryCount >= msg.MaxRetries {
		slog.Warn("Max retries reached, deleting inbox message",
			"inbox_id", msg.ID,
			"message_id", msg.MessageID,
		)
		if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from inbox", "inbox_id", msg.ID, "error", err)
		}

		return
	}

	backoffSeconds := math.Pow(2, float64(newRetryCount)) * 30
	nextRetryAt := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

	slog.Warn("Scheduling inbox message retry",
		"inbox_id", msg.ID,
		"retry_count", newRetryCount,
		"next_retry", nextRetryAt,
	)

	if err := w.inboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, cause.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "inbox_id", msg.ID, "error", err)
	}
}

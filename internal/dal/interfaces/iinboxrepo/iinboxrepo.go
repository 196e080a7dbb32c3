package iinboxrepo

import (
	"context"
	"time"

	"github.com/huongnv75/customer-orders/internal/service/models/inbox"
)

// IInboxRepository is an interface for the inbox postgres repository.
type IInboxRepository interface {
	Insert(ctx context.Context, msg inbox.Message) error
	GetPendingMessages(ctx context.Context, limit int) ([]inbox.Message, error)
	Delete(ctx context.Context, id int64) error
	UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
}

package iorderrepo

import (
	"context"

	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	List(ctx context.Context, filter *order.Filter, cfg *order.ListConfig) ([]order.Order, error)
	Count(ctx context.Context, filter *order.Filter) (int64, error)
	Upsert(ctx context.Context, o order.Order) error
}

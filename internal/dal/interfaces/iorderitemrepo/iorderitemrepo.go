package iorderitemrepo

import (
	"context"

	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
)

// IOrderItemRepository is an interface for the order item postgres repository.
type IOrderItemRepository interface {
	ListByOrderIDs(ctx context.Context, orderIDs []string) ([]orderitem.OrderItem, error)
	ReplaceForOrder(ctx context.Context, orderID string, items []orderitem.OrderItem) error
}

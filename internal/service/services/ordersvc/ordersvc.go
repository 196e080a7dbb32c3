package ordersvc

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderrepo"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

// OrderService serves the customer-facing order read path.
type OrderService struct {
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithOrderRepository sets the order repository for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orderRepo = repo
	}
}

// WithOrderItemRepository sets the order item repository for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderItemRepository(repo iorderitemrepo.IOrderItemRepository) option {
	return func(s *OrderService) {
		s.orderItemRepo = repo
	}
}

// ListAndCount retrieves orders matching the filter plus a total count
// unaffected by pagination. Relations named in cfg are loaded and attached.
func (s *OrderService) ListAndCount(
	ctx context.Context,
	filter *order.Filter,
	cfg *order.ListConfig,
) ([]order.Order, int64, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListAndCount")
	defer span.End()

	orders, err := s.orderRepo.List(ctx, filter, cfg)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if len(orders) == 0 {
		return []order.Order{}, count, nil
	}

	if slices.Contains(cfg.Relations, order.RelationItems) {
		if err := s.attachItems(ctx, orders); err != nil {
			return nil, 0, err
		}
	}

	return orders, count, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []order.Order) error {
	orderIDs := make([]string, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
	}

	items, err := s.orderItemRepo.ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].Items = append(orders[i].Items, item)
			}
		}
	}

	return nil
}

package ordersvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huongnv75/customer-orders/internal/service/models/order"
	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
)

type mockOrderRepo struct {
	orders   []order.Order
	count    int64
	listErr  error
	countErr error

	lastFilter *order.Filter
	lastCfg    *order.ListConfig
}

func (m *mockOrderRepo) List(_ context.Context, filter *order.Filter, cfg *order.ListConfig) ([]order.Order, error) {
	m.lastFilter = filter
	m.lastCfg = cfg

	return m.orders, m.listErr
}

func (m *mockOrderRepo) Count(_ context.Context, filter *order.Filter) (int64, error) {
	return m.count, m.countErr
}

func (m *mockOrderRepo) Upsert(_ context.Context, _ order.Order) error {
	return nil
}

type mockOrderItemRepo struct {
	items        []orderitem.OrderItem
	err          error
	lastOrderIDs []string
	calls        int
}

func (m *mockOrderItemRepo) ListByOrderIDs(_ context.Context, orderIDs []string) ([]orderitem.OrderItem, error) {
	m.calls++
	m.lastOrderIDs = orderIDs

	return m.items, m.err
}

func (m *mockOrderItemRepo) ReplaceForOrder(_ context.Context, _ string, _ []orderitem.OrderItem) error {
	return nil
}

func newService(orderRepo *mockOrderRepo, itemRepo *mockOrderItemRepo) *OrderService {
	return MustNewOrderService(
		WithOrderRepository(orderRepo),
		WithOrderItemRepository(itemRepo),
	)
}

func TestListAndCount_AttachesItemsToMatchingOrders(t *testing.T) {
	orderRepo := &mockOrderRepo{
		orders: []order.Order{{ID: "order_01"}, {ID: "order_02"}},
		count:  2,
	}
	itemRepo := &mockOrderItemRepo{
		items: []orderitem.OrderItem{
			{ID: "item_01", OrderID: "order_01"},
			{ID: "item_02", OrderID: "order_02"},
			{ID: "item_03", OrderID: "order_01"},
		},
	}
	svc := newService(orderRepo, itemRepo)

	orders, count, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{Relations: []string{order.RelationItems}, Take: 10},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 2)
	assert.Len(t, orders[1].Items, 1)
	assert.Equal(t, []string{"order_01", "order_02"}, itemRepo.lastOrderIDs)
}

func TestListAndCount_SkipsItemsWhenNotExpanded(t *testing.T) {
	orderRepo := &mockOrderRepo{
		orders: []order.Order{{ID: "order_01"}},
		count:  1,
	}
	itemRepo := &mockOrderItemRepo{}
	svc := newService(orderRepo, itemRepo)

	orders, count, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{Relations: []string{}, Take: 10},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, orders, 1)
	assert.Zero(t, itemRepo.calls)
}

func TestListAndCount_CountIgnoresPagination(t *testing.T) {
	orderRepo := &mockOrderRepo{
		orders: []order.Order{{ID: "order_01"}},
		count:  42,
	}
	svc := newService(orderRepo, &mockOrderItemRepo{})

	_, count, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{Take: 1, Skip: 0},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestListAndCount_EmptyResultKeepsCount(t *testing.T) {
	orderRepo := &mockOrderRepo{count: 7}
	itemRepo := &mockOrderItemRepo{}
	svc := newService(orderRepo, itemRepo)

	orders, count, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{Relations: []string{order.RelationItems}, Take: 10, Skip: 100},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Empty(t, orders)
	assert.Zero(t, itemRepo.calls)
}

func TestListAndCount_PropagatesListError(t *testing.T) {
	orderRepo := &mockOrderRepo{listErr: errors.New("connection refused")}
	svc := newService(orderRepo, &mockOrderItemRepo{})

	_, _, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{},
	)

	assert.Error(t, err)
}

func TestListAndCount_PropagatesCountError(t *testing.T) {
	orderRepo := &mockOrderRepo{
		orders:   []order.Order{{ID: "order_01"}},
		countErr: errors.New("connection refused"),
	}
	svc := newService(orderRepo, &mockOrderItemRepo{})

	_, _, err := svc.ListAndCount(context.Background(),
		&order.Filter{CustomerID: "cus_01"},
		&order.ListConfig{},
	)

	assert.Error(t, err)
}

package ingestsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderrepo"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
)

type fakeOrderRepo struct {
	upsertErr error
	upserted  []order.Order
}

func (f *fakeOrderRepo) List(_ context.Context, _ *order.Filter, _ *order.ListConfig) ([]order.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) Count(_ context.Context, _ *order.Filter) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) Upsert(_ context.Context, o order.Order) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, o)

	return nil
}

type fakeOrderItemRepo struct {
	replaceErr    error
	replacedOrder string
	replacedItems []orderitem.OrderItem
}

func (f *fakeOrderItemRepo) ListByOrderIDs(_ context.Context, _ []string) ([]orderitem.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderItemRepo) ReplaceForOrder(_ context.Context, orderID string, items []orderitem.OrderItem) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replacedOrder = orderID
	f.replacedItems = items

	return nil
}

type fakeUOW struct {
	orderRepo     *fakeOrderRepo
	orderItemRepo *fakeOrderItemRepo

	beginErr   error
	commitErr  error
	began      bool
	committed  bool
	rolledBack bool
}

func (f *fakeUOW) Begin(_ context.Context) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.began = true

	return nil
}

func (f *fakeUOW) Commit(_ context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true

	return nil
}

func (f *fakeUOW) Rollback(_ context.Context) error {
	f.rolledBack = true

	return nil
}

func (f *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return f.orderRepo
}

func (f *fakeUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return f.orderItemRepo
}

func newTestService(work *fakeUOW) *IngestService {
	return MustNewIngestService(
		WithUnitOfWorkFactory(func() unitOfWork { return work }),
	)
}

func snapshot() order.Order {
	return order.Order{
		ID:         "order_01",
		CustomerID: "cus_01",
		Status:     order.StatusPending,
		Items: []orderitem.OrderItem{
			{ID: "item_01", OrderID: "order_01", Title: "Mug", Quantity: 1},
		},
	}
}

func TestApplyOrderSnapshot_CommitsOnSuccess(t *testing.T) {
	work := &fakeUOW{orderRepo: &fakeOrderRepo{}, orderItemRepo: &fakeOrderItemRepo{}}
	svc := newTestService(work)

	err := svc.ApplyOrderSnapshot(context.Background(), snapshot())

	require.NoError(t, err)
	assert.True(t, work.began)
	assert.True(t, work.committed)
	assert.False(t, work.rolledBack)
	require.Len(t, work.orderRepo.upserted, 1)
	assert.Equal(t, "order_01", work.orderItemRepo.replacedOrder)
	assert.Len(t, work.orderItemRepo.replacedItems, 1)
}

func TestApplyOrderSnapshot_RejectsMissingID(t *testing.T) {
	work := &fakeUOW{orderRepo: &fakeOrderRepo{}, orderItemRepo: &fakeOrderItemRepo{}}
	svc := newTestService(work)

	err := svc.ApplyOrderSnapshot(context.Background(), order.Order{})

	assert.ErrorIs(t, err, ErrMissingOrderID)
	assert.False(t, work.began)
}

func TestApplyOrderSnapshot_RollsBackOnUpsertFailure(t *testing.T) {
	work := &fakeUOW{
		orderRepo:     &fakeOrderRepo{upsertErr: errors.New("deadlock")},
		orderItemRepo: &fakeOrderItemRepo{},
	}
	svc := newTestService(work)

	err := svc.ApplyOrderSnapshot(context.Background(), snapshot())

	assert.Error(t, err)
	assert.True(t, work.rolledBack)
	assert.False(t, work.committed)
}

func TestApplyOrderSnapshot_RollsBackOnItemReplaceFailure(t *testing.T) {
	work := &fakeUOW{
		orderRepo:     &fakeOrderRepo{},
		orderItemRepo: &fakeOrderItemRepo{replaceErr: errors.New("constraint violation")},
	}
	svc := newTestService(work)

	err := svc.ApplyOrderSnapshot(context.Background(), snapshot())

	assert.Error(t, err)
	assert.True(t, work.rolledBack)
	assert.False(t, work.committed)
}

func TestApplyOrderSnapshot_CommitErrorPropagates(t *testing.T) {
	work := &fakeUOW{
		orderRepo:     &fakeOrderRepo{},
		orderItemRepo: &fakeOrderItemRepo{},
		commitErr:     errors.New("connection lost"),
	}
	svc := newTestService(work)

	err := svc.ApplyOrderSnapshot(context.Background(), snapshot())

	assert.Error(t, err)
}

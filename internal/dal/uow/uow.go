package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderrepo"
	"github.com/huongnv75/customer-orders/internal/dal/postgres"
	orderrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/orderitem/postgres"
)

type unitOfWork struct {
	client        *postgres.Client
	tx            pgx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
}

// NewUnitOfWork creates a unit of work over the pool. Until Begin is called
// the repositories run outside a transaction.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	return &unitOfWork{
		client:        client,
		orderRepo:     orderrepo.NewOrderRepository(client.Pool()),
		orderItemRepo: orderitemrepo.NewOrderItemRepository(client.Pool()),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}

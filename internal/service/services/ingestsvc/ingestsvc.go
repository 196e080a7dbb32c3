package ingestsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderitemrepo"
	"github.com/huongnv75/customer-orders/internal/dal/interfaces/iorderrepo"
	"github.com/huongnv75/customer-orders/internal/dal/postgres"
	"github.com/huongnv75/customer-orders/internal/dal/uow"
	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

var ErrMissingOrderID = errors.New("order snapshot has no id")

// unitOfWork wraps the order and order item repositories in one transaction.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
}

// IngestService applies order snapshot events to the local read model.
type IngestService struct {
	uowFactory func() unitOfWork
}

// option is a function that configures the IngestService.
type option func(*IngestService)

// MustNewIngestService creates a new IngestService.
func MustNewIngestService(opts ...option) *IngestService {
	s := &IngestService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the IngestService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *IngestService) {
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit of work factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *IngestService) {
		s.uowFactory = factory
	}
}

// ApplyOrderSnapshot upserts an order and replaces its items in a single
// transaction.
func (s *IngestService) ApplyOrderSnapshot(ctx context.Context, snapshot order.Order) error {
	ctx, span := otel.Tracer("service").Start(ctx, "IngestService.ApplyOrderSnapshot")
	defer span.End()

	if snapshot.ID == "" {
		return ErrMissingOrderID
	}

	work := s.uowFactory()

	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := work.OrderRepository().Upsert(ctx, snapshot); err != nil {
		s.rollback(ctx, work, snapshot.ID)
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	if err := work.OrderItemRepository().ReplaceForOrder(ctx, snapshot.ID, snapshot.Items); err != nil {
		s.rollback(ctx, work, snapshot.ID)
		return fmt.Errorf("failed to replace order items: %w", err)
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Order snapshot applied", "order_id", snapshot.ID, "items", len(snapshot.Items))

	return nil
}

func (s *IngestService) rollback(ctx context.Context, work unitOfWork, orderID string) {
	if err := work.Rollback(ctx); err != nil {
		slog.Error("Failed to roll back snapshot transaction", "order_id", orderID, "error", err)
	}
}

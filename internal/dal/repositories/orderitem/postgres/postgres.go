package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
	orderrepo "github.com/huongnv75/customer-orders/internal/dal/repositories/order/postgres"
)

// OrderItemDal represents the order item data access layer model.
type OrderItemDal struct {
	ID             string    `db:"id"`
	OrderID        string    `db:"order_id"`
	Title          string    `db:"title"`
	Quantity       int       `db:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	CurrencyCode   string    `db:"currency_code"`
	Thumbnail      string    `db:"thumbnail"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ToModel converts OrderItemDal to the service layer OrderItem model.
func (d *OrderItemDal) ToModel() *orderitem.OrderItem {
	return &orderitem.OrderItem{
		ID:             d.ID,
		OrderID:        d.OrderID,
		Title:          d.Title,
		Quantity:       d.Quantity,
		UnitPriceCents: d.UnitPriceCents,
		CurrencyCode:   d.CurrencyCode,
		Thumbnail:      d.Thumbnail,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// OrderItemRepository represents a Postgres order item repository.
type OrderItemRepository struct {
	conn orderrepo.GenericConn
	sb   sq.StatementBuilderType
}

// NewOrderItemRepository creates a new Postgres order item repository.
func NewOrderItemRepository(conn orderrepo.GenericConn) *OrderItemRepository {
	return &OrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListByOrderIDs retrieves the items belonging to the given orders.
func (r *OrderItemRepository) ListByOrderIDs(
	ctx context.Context,
	orderIDs []string,
) ([]orderitem.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query, args, err := r.sb.
		Select(
			"id",
			"order_id",
			"title",
			"quantity",
			"unit_price_cents",
			"currency_code",
			"thumbnail",
			"created_at",
			"updated_at",
		).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []orderitem.OrderItem
	for rows.Next() {
		var dal OrderItemDal
		err := rows.Scan(
			&dal.ID,
			&dal.OrderID,
			&dal.Title,
			&dal.Quantity,
			&dal.UnitPriceCents,
			&dal.CurrencyCode,
			&dal.Thumbnail,
			&dal.CreatedAt,
			&dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result = append(result, *dal.ToModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ReplaceForOrder swaps the stored items of an order for the ones in the
// snapshot. Runs inside the caller's transaction.
func (r *OrderItemRepository) ReplaceForOrder(
	ctx context.Context,
	orderID string,
	items []orderitem.OrderItem,
) error {
	query, args, err := r.sb.Delete("order_items").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	insert := r.sb.Insert("order_items").
		Columns(
			"id",
			"order_id",
			"title",
			"quantity",
			"unit_price_cents",
			"currency_code",
			"thumbnail",
			"created_at",
			"updated_at",
		)

	for _, item := range items {
		insert = insert.Values(
			item.ID,
			orderID,
			item.Title,
			item.Quantity,
			item.UnitPriceCents,
			item.CurrencyCode,
			item.Thumbnail,
			item.CreatedAt,
			item.UpdatedAt,
		)
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}

	return nil
}

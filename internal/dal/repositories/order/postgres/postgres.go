package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/huongnv75/customer-orders/internal/service/models/order"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	ID                string     `db:"id"`
	DisplayID         int64      `db:"display_id"`
	Status            string     `db:"status"`
	FulfillmentStatus string     `db:"fulfillment_status"`
	PaymentStatus     string     `db:"payment_status"`
	CartID            string     `db:"cart_id"`
	CustomerID        string     `db:"customer_id"`
	Email             string     `db:"email"`
	RegionID          string     `db:"region_id"`
	CurrencyCode      string     `db:"currency_code"`
	TaxRate           float64    `db:"tax_rate"`
	CanceledAt        *time.Time `db:"canceled_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model. Status columns
// left unselected stay at their zero value and are not parsed.
func (d *OrderDal) ToModel() (*order.Order, error) {
	o := &order.Order{
		ID:           d.ID,
		DisplayID:    d.DisplayID,
		CartID:       d.CartID,
		CustomerID:   d.CustomerID,
		Email:        d.Email,
		RegionID:     d.RegionID,
		CurrencyCode: d.CurrencyCode,
		TaxRate:      d.TaxRate,
		CanceledAt:   d.CanceledAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}

	if d.Status != "" {
		st, err := order.ParseStatus(d.Status)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", d.ID, err)
		}
		o.Status = st
	}
	if d.FulfillmentStatus != "" {
		st, err := order.ParseFulfillmentStatus(d.FulfillmentStatus)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", d.ID, err)
		}
		o.FulfillmentStatus = st
	}
	if d.PaymentStatus != "" {
		st, err := order.ParsePaymentStatus(d.PaymentStatus)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", d.ID, err)
		}
		o.PaymentStatus = st
	}

	return o, nil
}

// OrderDalFromModel converts the service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		ID:                o.ID,
		DisplayID:         o.DisplayID,
		Status:            o.Status.String(),
		FulfillmentStatus: o.FulfillmentStatus.String(),
		PaymentStatus:     o.PaymentStatus.String(),
		CartID:            o.CartID,
		CustomerID:        o.CustomerID,
		Email:             o.Email,
		RegionID:          o.RegionID,
		CurrencyCode:      o.CurrencyCode,
		TaxRate:           o.TaxRate,
		CanceledAt:        o.CanceledAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// scanTargets maps the selected columns to destinations inside the dal
// struct, in column order. Columns come from the fixed allow-list.
func (d *OrderDal) scanTargets(cols []string) ([]any, error) {
	targets := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		case "id":
			targets[i] = &d.ID
		case "display_id":
			targets[i] = &d.DisplayID
		case "status":
			targets[i] = &d.Status
		case "fulfillment_status":
			targets[i] = &d.FulfillmentStatus
		case "payment_status":
			targets[i] = &d.PaymentStatus
		case "cart_id":
			targets[i] = &d.CartID
		case "customer_id":
			targets[i] = &d.CustomerID
		case "email":
			targets[i] = &d.Email
		case "region_id":
			targets[i] = &d.RegionID
		case "currency_code":
			targets[i] = &d.CurrencyCode
		case "tax_rate":
			targets[i] = &d.TaxRate
		case "canceled_at":
			targets[i] = &d.CanceledAt
		case "created_at":
			targets[i] = &d.CreatedAt
		case "updated_at":
			targets[i] = &d.UpdatedAt
		default:
			return nil, fmt.Errorf("unknown order column %q", col)
		}
	}

	return targets, nil
}

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// OrderRepository represents a Postgres order repository.
type OrderRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewOrderRepository creates a new Postgres order repository.
func NewOrderRepository(conn GenericConn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// List retrieves orders matching the filter, with the allow-listed column
// selection and pagination from cfg. Sorted by creation time, newest first.
func (r *OrderRepository) List(
	ctx context.Context,
	filter *order.Filter,
	cfg *order.ListConfig,
) ([]order.Order, error) {
	cols := selectColumns(cfg)

	query, args, err := r.buildListQuery(filter, cfg, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		targets, err := dal.scanTargets(cols)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Count returns the number of orders matching the filter, ignoring
// pagination.
func (r *OrderRepository) Count(ctx context.Context, filter *order.Filter) (int64, error) {
	query, args, err := applyFilter(r.sb.Select("COUNT(*)").From("orders"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}

// Upsert inserts an order snapshot or updates it in place by id.
func (r *OrderRepository) Upsert(ctx context.Context, o order.Order) error {
	dal := OrderDalFromModel(&o)

	query, args, err := r.sb.Insert("orders").
		Columns(
			"id",
			"display_id",
			"status",
			"fulfillment_status",
			"payment_status",
			"cart_id",
			"customer_id",
			"email",
			"region_id",
			"currency_code",
			"tax_rate",
			"canceled_at",
			"created_at",
			"updated_at",
		).
		Values(
			dal.ID,
			dal.DisplayID,
			dal.Status,
			dal.FulfillmentStatus,
			dal.PaymentStatus,
			dal.CartID,
			dal.CustomerID,
			dal.Email,
			dal.RegionID,
			dal.CurrencyCode,
			dal.TaxRate,
			dal.CanceledAt,
			dal.CreatedAt,
			dal.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			display_id = EXCLUDED.display_id,
			status = EXCLUDED.status,
			fulfillment_status = EXCLUDED.fulfillment_status,
			payment_status = EXCLUDED.payment_status,
			cart_id = EXCLUDED.cart_id,
			customer_id = EXCLUDED.customer_id,
			email = EXCLUDED.email,
			region_id = EXCLUDED.region_id,
			currency_code = EXCLUDED.currency_code,
			tax_rate = EXCLUDED.tax_rate,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	return nil
}

func (r *OrderRepository) buildListQuery(
	filter *order.Filter,
	cfg *order.ListConfig,
	cols []string,
) (string, []any, error) {
	query := applyFilter(r.sb.Select(cols...).From("orders"), filter).
		OrderBy("created_at DESC")

	if cfg.Take > 0 {
		query = query.Limit(uint64(cfg.Take))
	}
	if cfg.Skip > 0 {
		query = query.Offset(uint64(cfg.Skip))
	}

	return query.ToSql()
}

// selectColumns returns the columns to fetch. The id column is always
// fetched so relations can be joined in, even when the client did not
// project it.
func selectColumns(cfg *order.ListConfig) []string {
	cols := make([]string, 0, len(cfg.Select)+1)
	hasID := false
	for _, col := range cfg.Select {
		if col == "id" {
			hasID = true
		}
		cols = append(cols, col)
	}
	if !hasID {
		cols = append(cols, "id")
	}

	return cols
}

func applyFilter(query sq.SelectBuilder, filter *order.Filter) sq.SelectBuilder {
	if filter.CustomerID != "" {
		query = query.Where(sq.Eq{"customer_id": filter.CustomerID})
	}

	if filter.ID != "" {
		query = query.Where(sq.Eq{"id": filter.ID})
	}

	if len(filter.Statuses) > 0 {
		query = query.Where(sq.Eq{"status": toStrings(filter.Statuses)})
	}

	if len(filter.FulfillmentStatuses) > 0 {
		query = query.Where(sq.Eq{"fulfillment_status": toStrings(filter.FulfillmentStatuses)})
	}

	if len(filter.PaymentStatuses) > 0 {
		query = query.Where(sq.Eq{"payment_status": toStrings(filter.PaymentStatuses)})
	}

	if filter.DisplayID != nil {
		query = query.Where(sq.Eq{"display_id": *filter.DisplayID})
	}

	if filter.CartID != "" {
		query = query.Where(sq.Eq{"cart_id": filter.CartID})
	}

	if filter.Email != "" {
		query = query.Where(sq.Eq{"email": filter.Email})
	}

	if filter.RegionID != "" {
		query = query.Where(sq.Eq{"region_id": filter.RegionID})
	}

	if filter.CurrencyCode != "" {
		query = query.Where(sq.Eq{"currency_code": filter.CurrencyCode})
	}

	if filter.TaxRate != nil {
		query = query.Where(sq.Eq{"tax_rate": *filter.TaxRate})
	}

	if filter.Q != "" {
		pattern := "%" + filter.Q + "%"
		query = query.Where(sq.Or{
			sq.ILike{"email": pattern},
			sq.Expr("display_id::text ILIKE ?", pattern),
		})
	}

	query = applyDateComparison(query, "created_at", filter.CreatedAt)
	query = applyDateComparison(query, "updated_at", filter.UpdatedAt)
	query = applyDateComparison(query, "canceled_at", filter.CanceledAt)

	return query
}

func applyDateComparison(query sq.SelectBuilder, col string, cmp *order.DateComparison) sq.SelectBuilder {
	if cmp.IsZero() {
		return query
	}

	if cmp.Lt != nil {
		query = query.Where(sq.Lt{col: *cmp.Lt})
	}
	if cmp.Gt != nil {
		query = query.Where(sq.Gt{col: *cmp.Gt})
	}
	if cmp.Lte != nil {
		query = query.Where(sq.LtOrEq{col: *cmp.Lte})
	}
	if cmp.Gte != nil {
		query = query.Where(sq.GtOrEq{col: *cmp.Gte})
	}

	return query
}

func toStrings[T fmt.Stringer](values []T) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = v.String()
	}

	return result
}

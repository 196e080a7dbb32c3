package orderitem

import "time"

// OrderItem represents a line item within an order.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	Title          string    `json:"title"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	CurrencyCode   string    `json:"currency_code"`
	Thumbnail      string    `json:"thumbnail"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

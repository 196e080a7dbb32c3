package order

import (
	"errors"
	"time"

	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
)

// Status represents the overall state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusCompleted      Status = "completed"
	StatusArchived       Status = "archived"
	StatusCanceled       Status = "canceled"
	StatusRequiresAction Status = "requires_action"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusArchived, StatusCanceled, StatusRequiresAction:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// FulfillmentStatus represents the shipping state of an order.
type FulfillmentStatus string

const (
	FulfillmentNotFulfilled       FulfillmentStatus = "not_fulfilled"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentPartiallyShipped   FulfillmentStatus = "partially_shipped"
	FulfillmentShipped            FulfillmentStatus = "shipped"
	FulfillmentPartiallyReturned  FulfillmentStatus = "partially_returned"
	FulfillmentReturned           FulfillmentStatus = "returned"
	FulfillmentCanceled           FulfillmentStatus = "canceled"
	FulfillmentRequiresAction     FulfillmentStatus = "requires_action"
)

var ErrInvalidFulfillmentStatus = errors.New("invalid fulfillment status")

func (s FulfillmentStatus) String() string {
	return string(s)
}

func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	switch FulfillmentStatus(s) {
	case FulfillmentNotFulfilled, FulfillmentPartiallyFulfilled, FulfillmentFulfilled,
		FulfillmentPartiallyShipped, FulfillmentShipped, FulfillmentPartiallyReturned,
		FulfillmentReturned, FulfillmentCanceled, FulfillmentRequiresAction:
		return FulfillmentStatus(s), nil
	default:
		return "", ErrInvalidFulfillmentStatus
	}
}

// PaymentStatus represents the payment state of an order.
type PaymentStatus string

const (
	PaymentNotPaid           PaymentStatus = "not_paid"
	PaymentAwaiting          PaymentStatus = "awaiting"
	PaymentCaptured          PaymentStatus = "captured"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentCanceled          PaymentStatus = "canceled"
	PaymentRequiresAction    PaymentStatus = "requires_action"
)

var ErrInvalidPaymentStatus = errors.New("invalid payment status")

func (s PaymentStatus) String() string {
	return string(s)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentNotPaid, PaymentAwaiting, PaymentCaptured, PaymentPartiallyRefunded,
		PaymentRefunded, PaymentCanceled, PaymentRequiresAction:
		return PaymentStatus(s), nil
	default:
		return "", ErrInvalidPaymentStatus
	}
}

// Order represents a customer's purchase record.
type Order struct {
	ID                string                `json:"id"`
	DisplayID         int64                 `json:"display_id"`
	Status            Status                `json:"status"`
	FulfillmentStatus FulfillmentStatus     `json:"fulfillment_status"`
	PaymentStatus     PaymentStatus         `json:"payment_status"`
	CartID            string                `json:"cart_id"`
	CustomerID        string                `json:"customer_id"`
	Email             string                `json:"email"`
	RegionID          string                `json:"region_id"`
	CurrencyCode      string                `json:"currency_code"`
	TaxRate           float64               `json:"tax_rate"`
	CanceledAt        *time.Time            `json:"canceled_at"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Items             []orderitem.OrderItem `json:"items"`
}

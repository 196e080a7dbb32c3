package order

import "time"

// DateComparison is a range predicate over a timestamp column. Only the
// bounds that are set constrain the query.
type DateComparison struct {
	Lt  *time.Time `json:"lt,omitempty"`
	Gt  *time.Time `json:"gt,omitempty"`
	Lte *time.Time `json:"lte,omitempty"`
	Gte *time.Time `json:"gte,omitempty"`
}

// IsZero reports whether no bound is set.
func (d *DateComparison) IsZero() bool {
	return d == nil || (d.Lt == nil && d.Gt == nil && d.Lte == nil && d.Gte == nil)
}

// Filter represents validated predicates for querying orders. Pagination and
// projection controls live in ListConfig, never here. Zero values impose no
// constraint.
type Filter struct {
	Q                   string              `json:"q,omitempty"`
	ID                  string              `json:"id,omitempty"`
	CustomerID          string              `json:"customer_id,omitempty"`
	Statuses            []Status            `json:"statuses,omitempty"`
	FulfillmentStatuses []FulfillmentStatus `json:"fulfillment_statuses,omitempty"`
	PaymentStatuses     []PaymentStatus     `json:"payment_statuses,omitempty"`
	DisplayID           *int64              `json:"display_id,omitempty"`
	CartID              string              `json:"cart_id,omitempty"`
	Email               string              `json:"email,omitempty"`
	RegionID            string              `json:"region_id,omitempty"`
	CurrencyCode        string              `json:"currency_code,omitempty"`
	TaxRate             *float64            `json:"tax_rate,omitempty"`
	CreatedAt           *DateComparison     `json:"created_at,omitempty"`
	UpdatedAt           *DateComparison     `json:"updated_at,omitempty"`
	CanceledAt          *DateComparison     `json:"canceled_at,omitempty"`
}

// ListConfig bundles column selection, relation expansion, pagination and
// sort order for a single retrieval call. Sort order is fixed to creation
// time descending and is not client-configurable.
type ListConfig struct {
	Select    []string `json:"select,omitempty"`
	Relations []string `json:"relations,omitempty"`
	Skip      int      `json:"skip,omitempty"`
	Take      int      `json:"take,omitempty"`
}

const RelationItems = "items"

// AllowedFields is the fixed set of order columns a client may project.
var AllowedFields = []string{
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
}

// AllowedRelations is the fixed set of relations a client may expand.
var AllowedRelations = []string{
	RelationItems,
}

// SanitizeFields intersects the requested field names with AllowedFields,
// preserving request order. An empty or fully-invalid request falls back to
// the full allow-listed set.
func SanitizeFields(requested []string) []string {
	return sanitize(requested, AllowedFields)
}

// SanitizeRelations intersects the requested relation names with
// AllowedRelations with the same fallback semantics as SanitizeFields.
func SanitizeRelations(requested []string) []string {
	return sanitize(requested, AllowedRelations)
}

func sanitize(requested, allowed []string) []string {
	result := make([]string, 0, len(requested))
	for _, name := range requested {
		for _, a := range allowed {
			if name == a {
				result = append(result, name)
				break
			}
		}
	}
	if len(result) == 0 {
		result = append(result, allowed...)
	}

	return result
}

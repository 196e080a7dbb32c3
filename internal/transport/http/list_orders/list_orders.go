package listorders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/huongnv75/customer-orders/internal/service/models/order"
	"github.com/huongnv75/customer-orders/internal/service/models/orderitem"
	"github.com/huongnv75/customer-orders/pkg/http/middleware/auth"
)

const (
	defaultLimit  = 10
	defaultOffset = 0
)

// service is an interface for the service layer.
type service interface {
	ListAndCount(ctx context.Context, filter *order.Filter, cfg *order.ListConfig) ([]order.Order, int64, error)
}

// listOrdersRequest represents the query string of a list orders request.
// Date comparison params use bracket syntax (created_at[gt]=...) and are
// parsed separately from the flat fields.
type listOrdersRequest struct {
	Q                 string   `schema:"q"`
	ID                string   `schema:"id"`
	Status            []string `schema:"status"             validate:"dive,oneof=pending completed archived canceled requires_action"`
	FulfillmentStatus []string `schema:"fulfillment_status" validate:"dive,oneof=not_fulfilled partially_fulfilled fulfilled partially_shipped shipped partially_returned returned canceled requires_action"`
	PaymentStatus     []string `schema:"payment_status"     validate:"dive,oneof=not_paid awaiting captured partially_refunded refunded canceled requires_action"`
	DisplayID         string   `schema:"display_id"`
	CartID            string   `schema:"cart_id"`
	Email             string   `schema:"email"`
	RegionID          string   `schema:"region_id"`
	CurrencyCode      string   `schema:"currency_code"`
	TaxRate           string   `schema:"tax_rate"`
	Limit             int      `schema:"limit"              validate:"gte=0"`
	Offset            int      `schema:"offset"             validate:"gte=0"`
	Fields            string   `schema:"fields"`
	Expand            string   `schema:"expand"`

	displayID  *int64
	taxRate    *float64
	createdAt  *order.DateComparison
	updatedAt  *order.DateComparison
	canceledAt *order.DateComparison
}

// fieldError reports a single offending query parameter.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationErrorResponse struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors"`
}

type listOrdersResponse struct {
	Orders []map[string]any `json:"orders"`
	Count  int64            `json:"count"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

var validate = newValidator()

func writeValidationError(w http.ResponseWriter, fieldErrors []fieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(validationErrorResponse{
		Message: "invalid query parameters",
		Errors:  fieldErrors,
	}); err != nil {
		slog.Error("Error sending validation error response", "error", err)
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ListOrders handles the list orders request for the authenticated customer.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	customerID, ok := auth.CustomerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)

		return
	}

	req, fieldErrors := parseListOrdersRequest(r.URL.Query())
	if len(fieldErrors) > 0 {
		writeValidationError(w, fieldErrors)
		slog.Error("Invalid list orders query", "errors", len(fieldErrors))

		return
	}

	filter := req.toFilter(customerID)
	cfg := req.toListConfig()

	orders, count, err := service.ListAndCount(r.Context(), filter, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing orders", "error", err)

		return
	}

	resp := listOrdersResponse{
		Orders: projectOrders(orders, cfg.Select, cfg.Relations),
		Count:  count,
		Offset: req.Offset,
		Limit:  req.Limit,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}

// parseListOrdersRequest decodes and validates the raw query. It returns
// every offending field rather than stopping at the first one.
func parseListOrdersRequest(query url.Values) (*listOrdersRequest, []fieldError) {
	req := &listOrdersRequest{
		Limit:  defaultLimit,
		Offset: defaultOffset,
	}

	var fieldErrors []fieldError

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(req, query); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			for key := range multi {
				fieldErrors = append(fieldErrors, fieldError{Field: key, Message: "invalid value"})
			}
		} else {
			fieldErrors = append(fieldErrors, fieldError{Field: "query", Message: err.Error()})
		}
	}

	req.Status = splitCSVList(req.Status)
	req.FulfillmentStatus = splitCSVList(req.FulfillmentStatus)
	req.PaymentStatus = splitCSVList(req.PaymentStatus)

	if req.DisplayID != "" {
		v, err := strconv.ParseInt(req.DisplayID, 10, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, fieldError{Field: "display_id", Message: "must be an integer"})
		} else {
			req.displayID = &v
		}
	}

	if req.TaxRate != "" {
		v, err := strconv.ParseFloat(req.TaxRate, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, fieldError{Field: "tax_rate", Message: "must be a number"})
		} else {
			req.taxRate = &v
		}
	}

	for _, dateField := range []struct {
		name    string
		aliases []string
		dst     **order.DateComparison
	}{
		{name: "created_at", dst: &req.createdAt},
		{name: "updated_at", dst: &req.updatedAt},
		// the double-l spelling appears in client code often enough to accept
		{name: "canceled_at", aliases: []string{"cancelled_at"}, dst: &req.canceledAt},
	} {
		cmp, errs := parseDateComparison(query, dateField.name, dateField.aliases...)
		fieldErrors = append(fieldErrors, errs...)
		*dateField.dst = cmp
	}

	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fe := range validationErrors {
				fieldErrors = append(fieldErrors, fieldError{
					Field:   fe.Field(),
					Message: validationMessage(fe),
				})
			}
		} else {
			fieldErrors = append(fieldErrors, fieldError{Field: "query", Message: err.Error()})
		}
	}

	return req, fieldErrors
}

// toFilter builds the query filter from validated parameters. The customer
// id always comes from the authenticated identity; any client-supplied value
// is replaced, never merged. Pagination and projection controls are excluded
// by construction.
func (r *listOrdersRequest) toFilter(customerID string) *order.Filter {
	filter := &order.Filter{
		Q:            r.Q,
		ID:           r.ID,
		CustomerID:   customerID,
		DisplayID:    r.displayID,
		CartID:       r.CartID,
		Email:        r.Email,
		RegionID:     r.RegionID,
		CurrencyCode: r.CurrencyCode,
		TaxRate:      r.taxRate,
		CreatedAt:    r.createdAt,
		UpdatedAt:    r.updatedAt,
		CanceledAt:   r.canceledAt,
	}

	for _, s := range r.Status {
		filter.Statuses = append(filter.Statuses, order.Status(s))
	}
	for _, s := range r.FulfillmentStatus {
		filter.FulfillmentStatuses = append(filter.FulfillmentStatuses, order.FulfillmentStatus(s))
	}
	for _, s := range r.PaymentStatus {
		filter.PaymentStatuses = append(filter.PaymentStatuses, order.PaymentStatus(s))
	}

	return filter
}

func (r *listOrdersRequest) toListConfig() *order.ListConfig {
	return &order.ListConfig{
		Select:    order.SanitizeFields(splitCSV(r.Fields)),
		Relations: order.SanitizeRelations(splitCSV(r.Expand)),
		Skip:      r.Offset,
		Take:      r.Limit,
	}
}

// parseDateComparison reads the lt/gt/lte/gte bounds of a bracketed date
// range param, e.g. created_at[gt]=2023-01-01. Aliases are alternative
// spellings of the same param; the canonical name wins when both are set.
func parseDateComparison(query url.Values, field string, aliases ...string) (*order.DateComparison, []fieldError) {
	cmp := &order.DateComparison{}
	var fieldErrors []fieldError

	names := append([]string{field}, aliases...)

	for _, op := range []struct {
		name string
		dst  **time.Time
	}{
		{"lt", &cmp.Lt},
		{"gt", &cmp.Gt},
		{"lte", &cmp.Lte},
		{"gte", &cmp.Gte},
	} {
		var key, raw string
		for _, name := range names {
			key = name + "[" + op.name + "]"
			if raw = query.Get(key); raw != "" {
				break
			}
		}
		if raw == "" {
			continue
		}

		t, err := parseTime(raw)
		if err != nil {
			fieldErrors = append(fieldErrors, fieldError{
				Field:   key,
				Message: "must be an RFC 3339 timestamp or a YYYY-MM-DD date",
			})
			continue
		}
		*op.dst = &t
	}

	if cmp.IsZero() {
		return nil, fieldErrors
	}

	return cmp, fieldErrors
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Parse("2006-01-02", raw)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// splitCSVList normalizes repeated params that may themselves hold comma
// separated values (status=pending,completed&status=archived).
func splitCSVList(values []string) []string {
	var result []string
	for _, v := range values {
		result = append(result, splitCSV(v)...)
	}

	return result
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	default:
		return "is invalid"
	}
}

// projectOrders applies the sanitized field selection and relation expansion
// to the response payload.
func projectOrders(orders []order.Order, fields, relations []string) []map[string]any {
	result := make([]map[string]any, len(orders))
	for i := range orders {
		result[i] = projectOrder(&orders[i], fields, relations)
	}

	return result
}

func projectOrder(o *order.Order, fields, relations []string) map[string]any {
	out := make(map[string]any, len(fields)+len(relations))

	for _, field := range fields {
		switch field {
		case "id":
			out["id"] = o.ID
		case "display_id":
			out["display_id"] = o.DisplayID
		case "status":
			out["status"] = o.Status
		case "fulfillment_status":
			out["fulfillment_status"] = o.FulfillmentStatus
		case "payment_status":
			out["payment_status"] = o.PaymentStatus
		case "cart_id":
			out["cart_id"] = o.CartID
		case "customer_id":
			out["customer_id"] = o.CustomerID
		case "email":
			out["email"] = o.Email
		case "region_id":
			out["region_id"] = o.RegionID
		case "currency_code":
			out["currency_code"] = o.CurrencyCode
		case "tax_rate":
			out["tax_rate"] = o.TaxRate
		case "canceled_at":
			out["canceled_at"] = o.CanceledAt
		case "created_at":
			out["created_at"] = o.CreatedAt
		case "updated_at":
			out["updated_at"] = o.UpdatedAt
		}
	}

	for _, relation := range relations {
		if relation == order.RelationItems {
			items := o.Items
			if items == nil {
				items = []orderitem.OrderItem{}
			}
			out[order.RelationItems] = items
		}
	}

	return out
}

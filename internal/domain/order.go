package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrValidation = errors.New("invalid order")
)

// Status is the closed set of order lifecycle states. An order is created
// initiated, advances to sent, then to delivered; delivered orders are
// removed from the store, so the value is never read back.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
)

// Next returns the state that follows s. Unknown values map to themselves,
// so a corrupt status is never advanced into a legal one.
func (s Status) Next() Status {
	switch s {
	case StatusInitiated:
		return StatusSent
	case StatusSent:
		return StatusDelivered
	default:
		return s
	}
}

type Order struct {
	ID         string      `json:"id"`
	ClientName string      `json:"clientName" validate:"required"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	Items      []OrderItem `json:"items" validate:"dive"`
}

type OrderItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	// OrderID is the owning-order relation; it never leaves the process.
	OrderID string `json:"-"`
}

// Total is derived, never stored.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	return json.Marshal(struct {
		alias
		Total decimal.Decimal `json:"total"`
	}{alias(i), i.Total()})
}

var validate = validator.New()

// Validate checks the structural constraints on an order. The validator
// cannot look inside decimal.Decimal, so the price sign is checked by hand.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, it := range o.Items {
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %q: unitPrice must not be negative", ErrValidation, it.Description)
		}
	}
	return nil
}

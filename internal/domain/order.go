package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrOutOfStock        = errors.New("out of stock")
)

type OrderStatus string

const (
	StatusPlaced   OrderStatus = "placed"
	StatusPaid     OrderStatus = "paid"
	StatusCanceled OrderStatus = "canceled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case StatusPlaced, StatusPaid, StatusCanceled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Actors recorded on order events.
const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

const CurrencyRUB = "RUB"

// DeliveryFee is the delivery cost added at checkout. No pricing rule exists
// yet, so it is always zero.
var DeliveryFee = decimal.Zero

// selfServiceTransitions are the only changes a customer can trigger.
// Admin changes are not restricted.
var selfServiceTransitions = map[OrderStatus]OrderStatus{
	StatusPaid:     StatusPlaced,
	StatusCanceled: StatusPlaced,
}

// CheckSelfService reports whether a customer may move an order from one
// status to another.
func CheckSelfService(from, to OrderStatus) error {
	src, ok := selfServiceTransitions[to]
	if !ok || src != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Delivery struct {
	Method  string
	Address json.RawMessage
}

type Order struct {
	ID         string
	UserID     string
	Status     OrderStatus
	Currency   string
	Subtotal   decimal.Decimal
	Delivery   decimal.Decimal
	Total      decimal.Decimal
	Contact    Contact
	Shipping   Delivery
	Comment    *string
	PlacedAt   time.Time
	PaidAt     *time.Time
	CanceledAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items  []OrderItem
	Events []OrderEvent
}

// OrderItem is an immutable priced copy of a cart line taken at checkout.
type OrderItem struct {
	ID           string
	OrderID      string
	ItemID       string
	VariantID    string
	Title        string
	VariantTitle string
	SKU          string
	UnitPrice    decimal.Decimal
	Qty          int
	LineTotal    decimal.Decimal
}

type OrderEvent struct {
	ID         string
	OrderID    string
	FromStatus *OrderStatus
	ToStatus   OrderStatus
	Note       *string
	CreatedBy  string
	CreatedAt  time.Time
}

// OutOfStockError lists every cart line that failed checkout validation.
type OutOfStockError struct {
	VariantIDs []string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s", strings.Join(e.VariantIDs, ", "))
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }

// StatusTimestamps returns the paid/canceled timestamps an order gets on
// entering status to at time at. Existing values are kept.
func (o *Order) StatusTimestamps(to OrderStatus, at time.Time) (paidAt, canceledAt *time.Time) {
	paidAt, canceledAt = o.PaidAt, o.CanceledAt
	switch to {
	case StatusPaid:
		paidAt = &at
	case StatusCanceled:
		canceledAt = &at
	}
	return paidAt, canceledAt
}

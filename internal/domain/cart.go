package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartNotFound     = errors.New("cart not found")
	ErrInvalidMergeMode = errors.New("invalid merge mode")
)

type MergeMode string

const (
	MergeAdd     MergeMode = "add"
	MergeReplace MergeMode = "replace"
	MergeMax     MergeMode = "max"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch m := MergeMode(s); m {
	case MergeAdd, MergeReplace, MergeMax:
		return m, nil
	}
	return "", ErrInvalidMergeMode
}

// Quantity combines an existing line quantity with a requested one.
// A missing line is passed as existing = 0.
func (m MergeMode) Quantity(existing, requested int) int {
	switch m {
	case MergeAdd:
		return existing + requested
	case MergeMax:
		return max(existing, requested)
	default:
		return requested
	}
}

// Merge warning reasons.
const (
	ReasonVariantNotFound = "variant_not_found"
	ReasonOutOfStock      = "out_of_stock"
)

// MergeWarning reports a requested line that was skipped or clamped.
type MergeWarning struct {
	VariantID string
	Reason    string
}

type MergeItem struct {
	VariantID string
	Qty       int
}

type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	CartID    string
	VariantID string
	Qty       int
}

// CartLine is one projected cart line priced from the current catalog.
type CartLine struct {
	VariantID    string
	ItemID       string
	Slug         string
	Title        string
	VariantTitle string
	SKU          string
	Qty          int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	Available    bool
	Stock        int
	ImageURL     *string
}

type CartView struct {
	ID         string
	Lines      []CartLine
	ItemsCount int
	Subtotal   decimal.Decimal
	UpdatedAt  time.Time
}

// ProjectCart prices stored lines against resolved variants. Lines whose
// variant no longer resolves are left out.
func ProjectCart(cart *Cart, items []*CartItem, details map[string]*VariantDetail) *CartView {
	view := &CartView{
		ID:        cart.ID,
		Lines:     make([]CartLine, 0, len(items)),
		Subtotal:  decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, it := range items {
		d, ok := details[it.VariantID]
		if !ok {
			continue
		}
		lineTotal := d.Variant.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
		view.Lines = append(view.Lines, CartLine{
			VariantID:    d.Variant.ID,
			ItemID:       d.Item.ID,
			Slug:         d.Item.Slug,
			Title:        d.Item.Title,
			VariantTitle: d.Variant.Title,
			SKU:          d.Variant.SKU,
			Qty:          it.Qty,
			UnitPrice:    d.Variant.Price,
			LineTotal:    lineTotal,
			Available:    d.Variant.Available(),
			Stock:        d.Variant.Stock,
			ImageURL:     d.DisplayImage(),
		})
		view.ItemsCount += it.Qty
		view.Subtotal = view.Subtotal.Add(lineTotal)
	}
	return view
}

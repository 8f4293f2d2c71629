package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrVariantNotFound = errors.New("variant not found")

// RowLock selects how variant rows are locked when read inside a transaction.
type RowLock int

const (
	LockNone RowLock = iota
	LockShare
	LockUpdate
)

// Variant is a purchasable SKU of a catalog item. This core reads it but never
// writes it.
type Variant struct {
	ID       string
	ItemID   string
	SKU      string
	Title    string
	Price    decimal.Decimal
	Stock    int
	IsActive bool
}

func (v *Variant) Available() bool {
	return v.IsActive && v.Stock > 0
}

type Item struct {
	ID    string
	Slug  string
	Title string
}

type Image struct {
	ItemID    string
	URL       string
	IsMain    bool
	SortOrder int
}

// VariantDetail is a variant joined with its owning item and the item's images.
type VariantDetail struct {
	Variant Variant
	Item    Item
	Images  []Image
}

// DisplayImage returns the main image URL, or the first image when none is
// marked main. Images are expected in sort order.
func (d *VariantDetail) DisplayImage() *string {
	for i := range d.Images {
		if d.Images[i].IsMain {
			return &d.Images[i].URL
		}
	}
	if len(d.Images) > 0 {
		return &d.Images[0].URL
	}
	return nil
}

package handler

import (
	"encoding/json"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JSON views. Money is rendered as a number, field names are camelCase.

type userView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       *string    `json:"phone"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type cartLineView struct {
	VariantID    string  `json:"variantId"`
	ItemID       string  `json:"itemId"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	VariantTitle string  `json:"variantTitle"`
	SKU          string  `json:"sku"`
	Qty          int     `json:"qty"`
	UnitPrice    float64 `json:"unitPriceRub"`
	LineTotal    float64 `json:"lineTotalRub"`
	Available    bool    `json:"available"`
	Stock        int     `json:"stock"`
	ImageURL     *string `json:"imageUrl"`
}

type cartTotalsView struct {
	ItemsCount int     `json:"itemsCount"`
	Subtotal   float64 `json:"subtotalRub"`
}

type cartView struct {
	ID        string         `json:"id"`
	Items     []cartLineView `json:"items"`
	Totals    cartTotalsView `json:"totals"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func newCartView(v *domain.CartView) cartView {
	out := cartView{
		ID:        v.ID,
		Items:     make([]cartLineView, len(v.Lines)),
		Totals:    cartTotalsView{ItemsCount: v.ItemsCount, Subtotal: v.Subtotal.InexactFloat64()},
		UpdatedAt: v.UpdatedAt,
	}
	for i, l := range v.Lines {
		out.Items[i] = cartLineView{
			VariantID:    l.VariantID,
			ItemID:       l.ItemID,
			Slug:         l.Slug,
			Title:        l.Title,
			VariantTitle: l.VariantTitle,
			SKU:          l.SKU,
			Qty:          l.Qty,
			UnitPrice:    l.UnitPrice.InexactFloat64(),
			LineTotal:    l.LineTotal.InexactFloat64(),
			Available:    l.Available,
			Stock:        l.Stock,
			ImageURL:     l.ImageURL,
		}
	}
	return out
}

type mergeWarningView struct {
	VariantID string `json:"variantId"`
	Reason    string `json:"reason"`
}

func newMergeWarnings(ws []domain.MergeWarning) []mergeWarningView {
	out := make([]mergeWarningView, len(ws))
	for i, w := range ws {
		out[i] = mergeWarningView{VariantID: w.VariantID, Reason: w.Reason}
	}
	return out
}

type orderItemView struct {
	ID           string  `json:"id"`
	ItemID       string  `json:"itemId"`
	VariantID    string  `json:"variantId"`
	Title        string  `json:"title"`
	VariantTitle string  `json:"variantTitle"`
	SKU          string  `json:"sku"`
	UnitPrice    float64 `json:"unitPriceRub"`
	Qty          int     `json:"qty"`
	LineTotal    float64 `json:"lineTotalRub"`
}

type orderEventView struct {
	ID         string              `json:"id"`
	FromStatus *domain.OrderStatus `json:"fromStatus"`
	ToStatus   domain.OrderStatus  `json:"toStatus"`
	Note       *string             `json:"note"`
	CreatedBy  string              `json:"createdBy"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type deliveryView struct {
	Method  string          `json:"method"`
	Address json.RawMessage `json:"address"`
}

type orderView struct {
	ID         string             `json:"id"`
	Status     domain.OrderStatus `json:"status"`
	Currency   string             `json:"currency"`
	Subtotal   float64            `json:"subtotalRub"`
	Delivery   float64            `json:"deliveryRub"`
	Total      float64            `json:"totalRub"`
	PlacedAt   time.Time          `json:"placedAt"`
	PaidAt     *time.Time         `json:"paidAt"`
	CanceledAt *time.Time         `json:"canceledAt"`
	Comment    *string            `json:"comment"`
	Items      []orderItemView    `json:"items"`
	Shipping   deliveryView       `json:"delivery"`
	Contact    domain.Contact     `json:"contact"`
	Events     []orderEventView   `json:"events"`
}

func newOrderView(o *domain.Order) orderView {
	out := orderView{
		ID:         o.ID,
		Status:     o.Status,
		Currency:   o.Currency,
		Subtotal:   o.Subtotal.InexactFloat64(),
		Delivery:   o.Delivery.InexactFloat64(),
		Total:      o.Total.InexactFloat64(),
		PlacedAt:   o.PlacedAt,
		PaidAt:     o.PaidAt,
		CanceledAt: o.CanceledAt,
		Comment:    o.Comment,
		Items:      make([]orderItemView, len(o.Items)),
		Shipping:   deliveryView{Method: o.Shipping.Method, Address: o.Shipping.Address},
		Contact:    o.Contact,
		Events:     make([]orderEventView, len(o.Events)),
	}
	for i, it := range o.Items {
		out.Items[i] = orderItemView{
			ID:           it.ID,
			ItemID:       it.ItemID,
			VariantID:    it.VariantID,
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			SKU:          it.SKU,
			UnitPrice:    it.UnitPrice.InexactFloat64(),
			Qty:          it.Qty,
			LineTotal:    it.LineTotal.InexactFloat64(),
		}
	}
	for i, e := range o.Events {
		out.Events[i] = orderEventView{
			ID:         e.ID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Note:       e.Note,
			CreatedBy:  e.CreatedBy,
			CreatedAt:  e.CreatedAt,
		}
	}
	return out
}

type pagedView[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func newPagedView[S, T any](p *usecase.Paged[S], conv func(S) T) pagedView[T] {
	out := pagedView[T]{
		Data:       make([]T, len(p.Data)),
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
	for i, v := range p.Data {
		out.Data[i] = conv(v)
	}
	return out
}

type pageQuery struct {
	Page    int `form:"page"    binding:"omitempty,min=1"`
	PerPage int `form:"perPage" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) request() usecase.PageRequest {
	return usecase.PageRequest{Page: q.Page, PerPage: q.PerPage}
}

// validID reports whether a path id is a canonical UUID. Anything else
// cannot match a row and is answered as not found.
func validID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func userIDFrom(c *gin.Context) string {
	return c.GetString("userID")
}

// rawOrNil drops absent and explicit-null JSON values.
func rawOrNil(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || string(m) == "null" {
		return nil
	}
	return m
}

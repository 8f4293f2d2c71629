package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/shopspring/decimal"
)

type CheckoutUsecase struct {
	store repository.Store
	now   func() time.Time
}

func NewCheckoutUsecase(store repository.Store) *CheckoutUsecase {
	return &CheckoutUsecase{store: store, now: time.Now}
}

type CheckoutInput struct {
	UserID   string
	Delivery domain.Delivery
	Contact  domain.Contact
	Comment  *string
}

// CreateOrderFromCart turns the user's cart into a placed order. Every line
// is validated before anything is written; on failure nothing changes and
// *domain.OutOfStockError lists all offending variants.
func (u *CheckoutUsecase) CreateOrderFromCart(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	var order *domain.Order
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		cart, err := r.Carts().FindByUser(ctx, in.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrCartNotFound) {
				return domain.ErrCartEmpty
			}
			return err
		}
		lines, err := r.Carts().Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrCartEmpty
		}

		ids := make([]string, len(lines))
		for i, l := range lines {
			ids[i] = l.VariantID
		}

		// FOR UPDATE holds stock steady until commit.
		variants, err := r.Catalog().VariantsByIDs(ctx, ids, domain.LockUpdate)
		if err != nil {
			return err
		}
		details, err := r.Catalog().VariantDetails(ctx, ids)
		if err != nil {
			return err
		}

		var bad []string
		for _, l := range lines {
			v, ok := variants[l.VariantID]
			_, hasItem := details[l.VariantID]
			if !ok || !hasItem || !v.IsActive || v.Stock < l.Qty {
				bad = append(bad, l.VariantID)
			}
		}
		if len(bad) > 0 {
			return &domain.OutOfStockError{VariantIDs: bad}
		}

		now := u.now()
		draft := &domain.Order{
			UserID:   in.UserID,
			Status:   domain.StatusPlaced,
			Currency: domain.CurrencyRUB,
			Subtotal: decimal.Zero,
			Delivery: domain.DeliveryFee,
			Contact:  normalizeContact(in.Contact),
			Shipping: in.Delivery,
			Comment:  in.Comment,
			PlacedAt: now,
			Items:    make([]domain.OrderItem, 0, len(lines)),
		}
		for _, l := range lines {
			v := variants[l.VariantID]
			lineTotal := v.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
			draft.Items = append(draft.Items, domain.OrderItem{
				ItemID:       v.ItemID,
				VariantID:    v.ID,
				Title:        details[l.VariantID].Item.Title,
				VariantTitle: v.Title,
				SKU:          v.SKU,
				UnitPrice:    v.Price,
				Qty:          l.Qty,
				LineTotal:    lineTotal,
			})
			draft.Subtotal = draft.Subtotal.Add(lineTotal)
		}
		draft.Total = draft.Subtotal.Add(draft.Delivery)

		created, err := r.Orders().Create(ctx, draft)
		if err != nil {
			return err
		}

		genesis := &domain.OrderEvent{
			OrderID:   created.ID,
			ToStatus:  domain.StatusPlaced,
			CreatedBy: domain.ActorSystem,
		}
		if err := r.Orders().AppendEvent(ctx, genesis); err != nil {
			return err
		}
		created.Events = []domain.OrderEvent{*genesis}

		if err := r.Carts().DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		if _, err := r.Carts().Touch(ctx, cart.ID, now); err != nil {
			return err
		}

		order = created
		return nil
	})

	var oos *domain.OutOfStockError
	switch {
	case err == nil:
		metrics.OrdersPlacedTotal.Inc()
		metrics.OrderTransitionsTotal.WithLabelValues(string(domain.StatusPlaced), domain.ActorSystem).Inc()
		return order, nil
	case errors.Is(err, domain.ErrCartEmpty):
		metrics.CheckoutRejectedTotal.WithLabelValues("cart_empty").Inc()
		return nil, domain.ErrCartEmpty
	case errors.As(err, &oos):
		metrics.CheckoutRejectedTotal.WithLabelValues("out_of_stock").Inc()
		return nil, oos
	default:
		return nil, fmt.Errorf("create order from cart: %w", err)
	}
}

func normalizeContact(c domain.Contact) domain.Contact {
	return domain.Contact{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: domain.NormalizeEmail(c.Email),
	}
}

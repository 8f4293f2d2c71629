package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
)

type CartUsecase struct {
	store repository.Store
	now   func() time.Time
}

func NewCartUsecase(store repository.Store) *CartUsecase {
	return &CartUsecase{store: store, now: time.Now}
}

type MergeResult struct {
	Cart     *domain.CartView
	Warnings []domain.MergeWarning
}

// Get returns the user's cart, creating an empty one on first access.
func (u *CartUsecase) Get(ctx context.Context, userID string) (*domain.CartView, error) {
	var view *domain.CartView
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		cart, err := r.Carts().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		view, err = project(ctx, r, cart)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return view, nil
}

// Merge reconciles items against the stored cart. Problems with individual
// lines become warnings; only store failures are returned as errors.
func (u *CartUsecase) Merge(ctx context.Context, userID string, mode domain.MergeMode, items []domain.MergeItem) (*MergeResult, error) {
	if _, err := domain.ParseMergeMode(string(mode)); err != nil {
		return nil, err
	}

	res := &MergeResult{Warnings: []domain.MergeWarning{}}
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		res.Warnings = res.Warnings[:0]

		cart, err := r.Carts().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if mode == domain.MergeReplace {
			if err := r.Carts().DeleteItems(ctx, cart.ID); err != nil {
				return err
			}
		}

		// Row locks make stock reflect commit time, not an earlier read.
		variants, err := r.Catalog().VariantsByIDs(ctx, mergeVariantIDs(items), domain.LockShare)
		if err != nil {
			return err
		}

		stored, err := r.Carts().Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		existing := make(map[string]int, len(stored))
		for _, it := range stored {
			existing[it.VariantID] = it.Qty
		}

		for _, it := range items {
			v, ok := variants[it.VariantID]
			if !ok {
				res.Warnings = append(res.Warnings, domain.MergeWarning{VariantID: it.VariantID, Reason: domain.ReasonVariantNotFound})
				continue
			}
			if !v.Available() {
				res.Warnings = append(res.Warnings, domain.MergeWarning{VariantID: it.VariantID, Reason: domain.ReasonOutOfStock})
				continue
			}

			qty := mode.Quantity(existing[it.VariantID], it.Qty)
			if qty > v.Stock {
				qty = v.Stock
				res.Warnings = append(res.Warnings, domain.MergeWarning{VariantID: it.VariantID, Reason: domain.ReasonOutOfStock})
			}
			if qty <= 0 {
				continue
			}

			if err := r.Carts().UpsertItem(ctx, cart.ID, it.VariantID, qty); err != nil {
				return err
			}
			existing[it.VariantID] = qty
		}

		if cart, err = r.Carts().Touch(ctx, cart.ID, u.now()); err != nil {
			return err
		}
		res.Cart, err = project(ctx, r, cart)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("merge cart: %w", err)
	}
	return res, nil
}

// SetItem sets a line quantity without checking stock. A quantity below one
// removes the line.
func (u *CartUsecase) SetItem(ctx context.Context, userID, variantID string, qty int) (*domain.CartView, error) {
	if qty <= 0 {
		return u.RemoveItem(ctx, userID, variantID)
	}
	return u.mutate(ctx, userID, func(r repository.Repos, cart *domain.Cart) error {
		variants, err := r.Catalog().VariantsByIDs(ctx, []string{variantID}, domain.LockNone)
		if err != nil {
			return err
		}
		if _, ok := variants[variantID]; !ok {
			return domain.ErrVariantNotFound
		}
		return r.Carts().UpsertItem(ctx, cart.ID, variantID, qty)
	})
}

func (u *CartUsecase) RemoveItem(ctx context.Context, userID, variantID string) (*domain.CartView, error) {
	return u.mutate(ctx, userID, func(r repository.Repos, cart *domain.Cart) error {
		return r.Carts().DeleteItem(ctx, cart.ID, variantID)
	})
}

func (u *CartUsecase) Clear(ctx context.Context, userID string) (*domain.CartView, error) {
	return u.mutate(ctx, userID, func(r repository.Repos, cart *domain.Cart) error {
		return r.Carts().DeleteItems(ctx, cart.ID)
	})
}

func (u *CartUsecase) mutate(ctx context.Context, userID string, fn func(r repository.Repos, cart *domain.Cart) error) (*domain.CartView, error) {
	var view *domain.CartView
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		cart, err := r.Carts().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(r, cart); err != nil {
			return err
		}
		if cart, err = r.Carts().Touch(ctx, cart.ID, u.now()); err != nil {
			return err
		}
		view, err = project(ctx, r, cart)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return view, nil
}

// project loads every line's variant, item and images in one batch.
func project(ctx context.Context, r repository.Repos, cart *domain.Cart) (*domain.CartView, error) {
	items, err := r.Carts().Items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.VariantID
	}
	details, err := r.Catalog().VariantDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	return domain.ProjectCart(cart, items, details), nil
}

func mergeVariantIDs(items []domain.MergeItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.VariantID]; ok {
			continue
		}
		seen[it.VariantID] = struct{}{}
		ids = append(ids, it.VariantID)
	}
	return ids
}

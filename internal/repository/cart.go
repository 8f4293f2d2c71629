package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
)

type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error)
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// Items returns lines in insertion order.
	Items(ctx context.Context, cartID string) ([]*domain.CartItem, error)
	UpsertItem(ctx context.Context, cartID, variantID string, qty int) error
	DeleteItem(ctx context.Context, cartID, variantID string) error
	DeleteItems(ctx context.Context, cartID string) error
	Touch(ctx context.Context, cartID string, at time.Time) (*domain.Cart, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const cartColumns = `id, user_id, created_at, updated_at`

type CartRepository struct {
	db DBTX
}

func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	row := r.db.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+cartColumns, userID)
	return scanCart(row)
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	row := r.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
	return scanCart(row)
}

func (r *CartRepository) Items(ctx context.Context, cartID string) ([]*domain.CartItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cart_id, variant_id, qty
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []*domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.CartID, &it.VariantID, &it.Qty); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *CartRepository) UpsertItem(ctx context.Context, cartID, variantID string, qty int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (cart_id, variant_id, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = NOW()`,
		cartID, variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, variantID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`, cartID, variantID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteItems(ctx context.Context, cartID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}

func (r *CartRepository) Touch(ctx context.Context, cartID string, at time.Time) (*domain.Cart, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE carts SET updated_at = $2 WHERE id = $1 RETURNING `+cartColumns, cartID, at)
	return scanCart(row)
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var c domain.Cart
	if err := row.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	return &c, nil
}

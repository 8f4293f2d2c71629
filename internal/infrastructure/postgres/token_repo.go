package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const (
	magicTokenColumns   = `id, email, token_hash, expires_at, consumed_at, flow_context, cart_snapshot, created_at`
	refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked_at, user_agent, ip, created_at`
)

type TokenRepository struct {
	db DBTX
}

func (r *TokenRepository) CreateMagicToken(ctx context.Context, t *domain.MagicToken) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO magic_tokens (email, token_hash, expires_at, flow_context, cart_snapshot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		t.Email, t.TokenHash, t.ExpiresAt, t.FlowContext, t.CartSnapshot,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create magic token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindUsableMagicToken(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+magicTokenColumns+`
		FROM magic_tokens
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2`,
		tokenHash, now,
	)
	return scanMagicToken(row)
}

func (r *TokenRepository) ConsumeMagicToken(ctx context.Context, tokenHash string, now time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE magic_tokens SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2`,
		tokenHash, now,
	)
	if err != nil {
		return fmt.Errorf("consume magic token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *TokenRepository) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt, t.Device.UserAgent, t.Device.IP,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING `+refreshTokenColumns,
		tokenHash, now,
	)
	return scanRefreshToken(row)
}

func (r *TokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return scanRefreshToken(row)
}

func (r *TokenRepository) PurgeExpiredRefreshTokens(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanMagicToken(row pgx.Row) (*domain.MagicToken, error) {
	var t domain.MagicToken
	err := row.Scan(&t.ID, &t.Email, &t.TokenHash, &t.ExpiresAt, &t.ConsumedAt,
		&t.FlowContext, &t.CartSnapshot, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("scan magic token: %w", err)
	}
	return &t, nil
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt,
		&t.Device.UserAgent, &t.Device.IP, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

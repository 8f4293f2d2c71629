package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
)

// TokenRepository stores magic and refresh tokens by hash only.
//
// Consume and Revoke are single conditional updates: of two concurrent calls
// on the same hash at most one succeeds, the other gets domain.ErrTokenInvalid.
type TokenRepository interface {
	CreateMagicToken(ctx context.Context, t *domain.MagicToken) error
	FindUsableMagicToken(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicToken, error)
	ConsumeMagicToken(ctx context.Context, tokenHash string, now time.Time) error

	CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error
	// RevokeRefreshToken revokes a usable token and returns the revoked row.
	RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.RefreshToken, error)
	// FindRefreshTokenByHash returns the token in any state.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	PurgeExpiredRefreshTokens(ctx context.Context, before time.Time) (int, error)
}

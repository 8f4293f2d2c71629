package maintenance

import (
	"context"
	"fmt"
	"time"
)

type sweeper interface {
	Sweep(cutoff time.Time) int
}

// RateLimitSweep drops limiter entries older than MaxAge. Past that age an
// entry can no longer throttle anything.
type RateLimitSweep struct {
	Store  sweeper
	MaxAge time.Duration
	Now    func() time.Time
}

func (j *RateLimitSweep) Name() string { return "rate_limit_sweep" }

func (j *RateLimitSweep) Run(context.Context) (int, error) {
	return j.Store.Sweep(now(j.Now).Add(-j.MaxAge)), nil
}

type refreshTokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context, before time.Time) (int, error)
}

// RefreshTokenPurge deletes refresh tokens that expired more than Grace
// ago. Revoked but unexpired rows stay, replay detection reads them.
type RefreshTokenPurge struct {
	Tokens refreshTokenPurger
	Grace  time.Duration
	Now    func() time.Time
}

func (j *RefreshTokenPurge) Name() string { return "refresh_token_purge" }

func (j *RefreshTokenPurge) Run(ctx context.Context) (int, error) {
	n, err := j.Tokens.PurgeExpiredRefreshTokens(ctx, now(j.Now).Add(-j.Grace))
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return n, nil
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now()
	}
	return fn()
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/ErlanBelekov/shop-backend/internal/ratelimit"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/ErlanBelekov/shop-backend/internal/security"
)

const defaultMagicTokenTTL = 15 * time.Minute

// Notifier delivers a raw magic-link token to an address out of band.
type Notifier interface {
	Notify(ctx context.Context, to, rawToken string)
}

type AuthUsecase struct {
	store    repository.Store
	hasher   security.Hasher
	limiter  *ratelimit.Limiter
	notifier Notifier
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthUsecase(
	store repository.Store,
	hasher security.Hasher,
	limiter *ratelimit.Limiter,
	notifier Notifier,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthUsecase {
	if tokenTTL <= 0 {
		tokenTTL = defaultMagicTokenTTL
	}
	return &AuthUsecase{
		store:    store,
		hasher:   hasher,
		limiter:  limiter,
		notifier: notifier,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "auth_usecase"),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (u *AuthUsecase) WithClock(now func() time.Time) *AuthUsecase {
	u.now = now
	return u
}

type RequestLinkInput struct {
	Email        string
	FlowContext  json.RawMessage
	CartSnapshot json.RawMessage
	ClientIP     string
}

// RequestLink stores a new magic token and hands the raw value to the
// notifier. A throttled request returns "" and no error, so callers respond
// identically either way.
func (u *AuthUsecase) RequestLink(ctx context.Context, in RequestLinkInput) (string, error) {
	email := domain.NormalizeEmail(in.Email)
	rateKey := in.ClientIP + ":" + email

	if err := u.limiter.Check(ctx, rateKey); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			metrics.MagicLinksThrottledTotal.Inc()
			u.logger.DebugContext(ctx, "magic link throttled", "rate_key", rateKey)
			return "", nil
		}
		return "", fmt.Errorf("check rate limit: %w", err)
	}

	raw, err := security.NewToken()
	if err != nil {
		return "", err
	}

	t := &domain.MagicToken{
		Email:        email,
		TokenHash:    u.hasher.Hash(raw),
		ExpiresAt:    u.now().Add(u.tokenTTL),
		FlowContext:  in.FlowContext,
		CartSnapshot: in.CartSnapshot,
	}
	if err := u.store.Tokens().CreateMagicToken(ctx, t); err != nil {
		return "", fmt.Errorf("store magic token: %w", err)
	}

	// Marked only after the insert, so a failed request does not throttle the retry.
	if err := u.limiter.Mark(ctx, rateKey); err != nil {
		u.logger.WarnContext(ctx, "mark rate limit", "error", err)
	}

	metrics.MagicLinksIssuedTotal.Inc()
	u.notifier.Notify(ctx, email, raw)
	return raw, nil
}

type ConsumeResult struct {
	User         *domain.User
	FlowContext  json.RawMessage
	CartSnapshot json.RawMessage
	Created      bool
}

// ConsumeLink resolves a raw magic token to a user.
//
// Errors: domain.ErrTokenInvalid for unknown, consumed or expired tokens;
// *domain.ProfileRequiredError when the email has no account and profile is
// nil or incomplete, in which case the token is left unconsumed. Losing a
// sign-up race for the same email also reads as ErrTokenInvalid. A disabled
// user is returned like any other; refusing the session is up to the caller.
func (u *AuthUsecase) ConsumeLink(ctx context.Context, raw string, profile *domain.Profile) (*ConsumeResult, error) {
	if raw == "" {
		metrics.MagicLinkConsumeTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	}
	hash := u.hasher.Hash(raw)
	now := u.now()

	var res ConsumeResult
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		mt, err := r.Tokens().FindUsableMagicToken(ctx, hash, now)
		if err != nil {
			return err
		}
		res.FlowContext = mt.FlowContext
		res.CartSnapshot = mt.CartSnapshot

		user, err := r.Users().FindByEmail(ctx, mt.Email)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			if !profileComplete(profile) {
				return &domain.ProfileRequiredError{FlowContext: mt.FlowContext}
			}
			if user, err = r.Users().Create(ctx, mt.Email, *profile); err != nil {
				// A concurrent sign-up for the same email committed first.
				if errors.Is(err, domain.ErrEmailTaken) {
					return domain.ErrTokenInvalid
				}
				return err
			}
			res.Created = true
		case err != nil:
			return err
		}

		// Lost race with a concurrent consume surfaces here as ErrTokenInvalid.
		if err := r.Tokens().ConsumeMagicToken(ctx, hash, now); err != nil {
			return err
		}
		if err := r.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now
		res.User = user
		return nil
	})

	var profileErr *domain.ProfileRequiredError
	switch {
	case err == nil:
		outcome := "resolved"
		if res.Created {
			outcome = "created"
		}
		metrics.MagicLinkConsumeTotal.WithLabelValues(outcome).Inc()
		return &res, nil
	case errors.Is(err, domain.ErrTokenInvalid):
		metrics.MagicLinkConsumeTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	case errors.As(err, &profileErr):
		metrics.MagicLinkConsumeTotal.WithLabelValues("profile_required").Inc()
		return nil, profileErr
	default:
		return nil, fmt.Errorf("consume magic link: %w", err)
	}
}

func profileComplete(p *domain.Profile) bool {
	return p != nil && strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Phone) != ""
}

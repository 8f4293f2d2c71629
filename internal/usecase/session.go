package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/ErlanBelekov/shop-backend/internal/security"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

type SessionConfig struct {
	JWTKey     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Session is the credential pair handed to a client after sign-in or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
}

type SessionUsecase struct {
	store      repository.Store
	hasher     security.Hasher
	jwtKey     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewSessionUsecase(store repository.Store, hasher security.Hasher, cfg SessionConfig, logger *slog.Logger) *SessionUsecase {
	u := &SessionUsecase{
		store:      store,
		hasher:     hasher,
		jwtKey:     cfg.JWTKey,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     logger.With("component", "session_usecase"),
		now:        time.Now,
	}
	if u.accessTTL <= 0 {
		u.accessTTL = defaultAccessTTL
	}
	if u.refreshTTL <= 0 {
		u.refreshTTL = defaultRefreshTTL
	}
	return u
}

// WithClock replaces the time source. Used by tests.
func (u *SessionUsecase) WithClock(now func() time.Time) *SessionUsecase {
	u.now = now
	return u
}

// IssueAccessToken signs a short-lived HS256 token whose subject is the user id.
func (u *SessionUsecase) IssueAccessToken(user *domain.User) (string, error) {
	now := u.now()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(u.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature and expiry and returns the subject.
func (u *SessionUsecase) ParseAccessToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return u.jwtKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthorized
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", domain.ErrUnauthorized
	}
	return sub, nil
}

// IssueRefreshToken persists the hash of a new random secret and returns the secret.
func (u *SessionUsecase) IssueRefreshToken(ctx context.Context, userID string, device domain.DeviceMeta) (string, error) {
	return u.issueRefreshToken(ctx, u.store.Tokens(), userID, device)
}

// IssueSession mints an access token and a refresh token for user.
func (u *SessionUsecase) IssueSession(ctx context.Context, user *domain.User, device domain.DeviceMeta) (*Session, error) {
	access, err := u.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := u.IssueRefreshToken(ctx, user.ID, device)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh}, nil
}

// RotateRefreshToken revokes the presented token and issues a replacement
// with the same device metadata, in one transaction. A disabled owner gets
// the old token revoked and no replacement.
func (u *SessionUsecase) RotateRefreshToken(ctx context.Context, raw string) (string, *domain.User, error) {
	if raw == "" {
		return "", nil, domain.ErrTokenInvalid
	}
	hash := u.hasher.Hash(raw)
	now := u.now()

	var (
		user     *domain.User
		newRaw   string
		disabled bool
	)
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		old, err := r.Tokens().RevokeRefreshToken(ctx, hash, now)
		if err != nil {
			return err
		}
		user, err = r.Users().FindByID(ctx, old.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			disabled = true
			return nil
		}
		newRaw, err = u.issueRefreshToken(ctx, r.Tokens(), user.ID, old.Device)
		return err
	})
	switch {
	case err == nil && disabled:
		metrics.RefreshRotationsTotal.WithLabelValues("disabled").Inc()
		return "", nil, domain.ErrUserDisabled
	case err == nil:
		metrics.RefreshRotationsTotal.WithLabelValues("rotated").Inc()
		return newRaw, user, nil
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrUserNotFound):
		u.checkReplay(ctx, hash)
		return "", nil, domain.ErrTokenInvalid
	default:
		return "", nil, fmt.Errorf("rotate refresh token: %w", err)
	}
}

// Revoke marks a usable token revoked. Unknown, expired and already revoked
// tokens are not an error.
func (u *SessionUsecase) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	_, err := u.store.Tokens().RevokeRefreshToken(ctx, u.hasher.Hash(raw), u.now())
	if err != nil && !errors.Is(err, domain.ErrTokenInvalid) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (u *SessionUsecase) issueRefreshToken(ctx context.Context, tokens repository.TokenRepository, userID string, device domain.DeviceMeta) (string, error) {
	raw, err := security.NewToken()
	if err != nil {
		return "", err
	}
	t := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: u.hasher.Hash(raw),
		ExpiresAt: u.now().Add(u.refreshTTL),
		Device:    device,
	}
	if err := tokens.CreateRefreshToken(ctx, t); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}

// checkReplay logs presentation of a token that was already rotated away.
func (u *SessionUsecase) checkReplay(ctx context.Context, hash string) {
	t, err := u.store.Tokens().FindRefreshTokenByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenInvalid) {
			u.logger.ErrorContext(ctx, "replay lookup", "error", err)
		}
		metrics.RefreshRotationsTotal.WithLabelValues("invalid").Inc()
		return
	}
	if t.RevokedAt == nil {
		metrics.RefreshRotationsTotal.WithLabelValues("expired").Inc()
		return
	}
	metrics.RefreshRotationsTotal.WithLabelValues("replay").Inc()
	u.logger.WarnContext(ctx, "revoked refresh token presented",
		"user_id", t.UserID,
		"token_id", t.ID,
		"revoked_at", *t.RevokedAt,
		"issued_user_agent", t.Device.UserAgent,
		"issued_ip", t.Device.IP,
	)
}

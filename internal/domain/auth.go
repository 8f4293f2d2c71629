package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserDisabled    = errors.New("user is disabled")
	ErrEmailTaken      = errors.New("email already registered")
	ErrTokenInvalid    = errors.New("token is invalid or expired")
	ErrProfileRequired = errors.New("profile required")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// ProfileFields lists what a new user must supply on first sign-in.
var ProfileFields = []string{"name", "phone"}

type User struct {
	ID          string
	Email       string
	Name        string
	Phone       *string
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile carries registration details for a user created on first sign-in.
type Profile struct {
	Name  string
	Phone string
}

// MagicToken is a single-use login credential. Only the hash of the raw
// token is ever stored.
type MagicToken struct {
	ID           string
	Email        string
	TokenHash    string
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
	FlowContext  json.RawMessage
	CartSnapshot json.RawMessage
	CreatedAt    time.Time
}

func (t *MagicToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// DeviceMeta identifies the client a refresh token was issued to.
type DeviceMeta struct {
	UserAgent string
	IP        string
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	Device    DeviceMeta
	CreatedAt time.Time
}

func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// ProfileRequiredError is returned when a valid magic token belongs to an
// email with no account and no profile was supplied. The token stays
// unconsumed.
type ProfileRequiredError struct {
	FlowContext json.RawMessage
}

func (e *ProfileRequiredError) Error() string { return ErrProfileRequired.Error() }

func (e *ProfileRequiredError) Is(target error) bool { return target == ErrProfileRequired }

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

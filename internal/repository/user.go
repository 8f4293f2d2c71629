package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail expects a normalized address.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, email string, profile domain.Profile) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.User, error)
	List(ctx context.Context, input ListUsersInput) ([]*domain.User, int, error)
}

// UpdateProfileInput leaves nil fields unchanged.
type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

type ListUsersInput struct {
	Query    string // substring of email or name
	IsActive *bool
	Limit    int
	Offset   int
}

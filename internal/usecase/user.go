package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
)

type UserUsecase struct {
	store repository.Store
}

func NewUserUsecase(store repository.Store) *UserUsecase {
	return &UserUsecase{store: store}
}

type UserFilter struct {
	Query    string
	IsActive *bool
}

func (u *UserUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return u.store.Users().FindByID(ctx, userID)
}

// UpdateProfile changes name and phone. Nil fields are left as they are.
func (u *UserUsecase) UpdateProfile(ctx context.Context, userID string, name, phone *string) (*domain.User, error) {
	input := repository.UpdateProfileInput{Name: trimmed(name), Phone: trimmed(phone)}
	user, err := u.store.Users().UpdateProfile(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (u *UserUsecase) AdminList(ctx context.Context, filter UserFilter, page PageRequest) (*Paged[*domain.User], error) {
	page = page.normalize()
	users, total, err := u.store.Users().List(ctx, repository.ListUsersInput{
		Query:    strings.TrimSpace(filter.Query),
		IsActive: filter.IsActive,
		Limit:    page.PerPage,
		Offset:   page.offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return newPaged(users, page, total), nil
}

// SetActive disables or re-enables a user. Disabled users keep their data
// but cannot authenticate.
func (u *UserUsecase) SetActive(ctx context.Context, userID string, active bool) (*domain.User, error) {
	user, err := u.store.Users().SetActive(ctx, userID, active)
	if err != nil {
		return nil, fmt.Errorf("set user active: %w", err)
	}
	return user, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
)

type OrderRepository interface {
	// Create inserts the order and its items and returns the stored order.
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)
	AppendEvent(ctx context.Context, e *domain.OrderEvent) error
	// UpdateStatus changes status only if it still equals from. Zero rows
	// updated yields domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindForUser(ctx context.Context, id, userID string) (*domain.Order, error)
	Items(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error)
	Events(ctx context.Context, orderIDs []string) (map[string][]domain.OrderEvent, error)
	List(ctx context.Context, input ListOrdersInput) ([]*domain.Order, int, error)
}

type UpdateStatusInput struct {
	OrderID    string
	From       domain.OrderStatus
	To         domain.OrderStatus
	PaidAt     *time.Time
	CanceledAt *time.Time
	At         time.Time
}

type ListOrdersInput struct {
	UserID string // empty means all users
	Status domain.OrderStatus
	Email  string
	Limit  int
	Offset int
}

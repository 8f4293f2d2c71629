package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/metrics"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
)

type OrderUsecase struct {
	store repository.Store
	now   func() time.Time
}

func NewOrderUsecase(store repository.Store) *OrderUsecase {
	return &OrderUsecase{store: store, now: time.Now}
}

type OrderFilter struct {
	Status domain.OrderStatus
	Email  string
}

func (u *OrderUsecase) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	o, err := u.store.Orders().FindForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if err := hydrate(ctx, u.store, o); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (u *OrderUsecase) List(ctx context.Context, userID string, page PageRequest) (*Paged[*domain.Order], error) {
	return u.list(ctx, repository.ListOrdersInput{UserID: userID}, page)
}

// Cancel moves a placed order to canceled.
func (u *OrderUsecase) Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return u.selfService(ctx, userID, orderID, domain.StatusCanceled)
}

// SimulatePayment moves a placed order to paid. Development only.
func (u *OrderUsecase) SimulatePayment(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return u.selfService(ctx, userID, orderID, domain.StatusPaid)
}

func (u *OrderUsecase) AdminGet(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := u.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := hydrate(ctx, u.store, o); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (u *OrderUsecase) AdminList(ctx context.Context, filter OrderFilter, page PageRequest) (*Paged[*domain.Order], error) {
	return u.list(ctx, repository.ListOrdersInput{
		Status: filter.Status,
		Email:  strings.TrimSpace(filter.Email),
	}, page)
}

// AdminSetStatus moves an order to any known status. No transition rules
// apply to admins.
func (u *OrderUsecase) AdminSetStatus(ctx context.Context, orderID string, to domain.OrderStatus, note *string) (*domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(to)); err != nil {
		return nil, err
	}
	var out *domain.Order
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		out, err = u.transition(ctx, r, o, to, domain.ActorAdmin, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *OrderUsecase) selfService(ctx context.Context, userID, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	var out *domain.Order
	err := u.store.WithinTx(ctx, func(r repository.Repos) error {
		o, err := r.Orders().FindForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if err := domain.CheckSelfService(o.Status, to); err != nil {
			return err
		}
		out, err = u.transition(ctx, r, o, to, domain.ActorSystem, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// transition updates status conditionally on the status just read and appends
// the matching event. A concurrent change makes the update miss and yields
// domain.ErrInvalidTransition.
func (u *OrderUsecase) transition(ctx context.Context, r repository.Repos, o *domain.Order, to domain.OrderStatus, actor string, note *string) (*domain.Order, error) {
	now := u.now()
	paidAt, canceledAt := o.StatusTimestamps(to, now)

	updated, err := r.Orders().UpdateStatus(ctx, repository.UpdateStatusInput{
		OrderID:    o.ID,
		From:       o.Status,
		To:         to,
		PaidAt:     paidAt,
		CanceledAt: canceledAt,
		At:         now,
	})
	if err != nil {
		return nil, err
	}

	from := o.Status
	ev := &domain.OrderEvent{
		OrderID:    o.ID,
		FromStatus: &from,
		ToStatus:   to,
		Note:       note,
		CreatedBy:  actor,
	}
	if err := r.Orders().AppendEvent(ctx, ev); err != nil {
		return nil, err
	}

	if err := hydrate(ctx, r, updated); err != nil {
		return nil, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(to), actor).Inc()
	return updated, nil
}

func (u *OrderUsecase) list(ctx context.Context, input repository.ListOrdersInput, page PageRequest) (*Paged[*domain.Order], error) {
	page = page.normalize()
	input.Limit = page.PerPage
	input.Offset = page.offset()

	orders, total, err := u.store.Orders().List(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := hydrate(ctx, u.store, orders...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newPaged(orders, page, total), nil
}

// hydrate attaches items and events with one query each.
func hydrate(ctx context.Context, r repository.Repos, orders ...*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := r.Orders().Items(ctx, ids)
	if err != nil {
		return err
	}
	events, err := r.Orders().Events(ctx, ids)
	if err != nil {
		return err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
		o.Events = events[o.ID]
	}
	return nil
}

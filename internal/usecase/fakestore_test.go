package usecase_test

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---- in-memory store ----
//
// fakeStore implements repository.Store. WithinTx snapshots all state and
// restores it when fn fails, so tests can assert all-or-nothing behavior.
// failOn injects an error for a named operation ("Orders.AppendEvent").
//
// With parallelTx set, WithinTx neither serializes transactions nor rolls
// back, so concurrent callers interleave between repository calls. onOp is
// invoked before each named operation, outside the data mutex.

type fakeData struct {
	users     map[string]*domain.User
	magic     map[string]*domain.MagicToken   // by hash
	refresh   map[string]*domain.RefreshToken // by hash
	variants  map[string]*domain.VariantDetail
	carts     map[string]*domain.Cart       // by user id
	cartItems map[string][]*domain.CartItem // by cart id, insertion order
	orders    map[string]*domain.Order
	orderIt   map[string][]domain.OrderItem
	events    map[string][]domain.OrderEvent
}

func newFakeData() *fakeData {
	return &fakeData{
		users:     map[string]*domain.User{},
		magic:     map[string]*domain.MagicToken{},
		refresh:   map[string]*domain.RefreshToken{},
		variants:  map[string]*domain.VariantDetail{},
		carts:     map[string]*domain.Cart{},
		cartItems: map[string][]*domain.CartItem{},
		orders:    map[string]*domain.Order{},
		orderIt:   map[string][]domain.OrderItem{},
		events:    map[string][]domain.OrderEvent{},
	}
}

func clonePtrMap[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (d *fakeData) clone() *fakeData {
	c := &fakeData{
		users:     clonePtrMap(d.users),
		magic:     clonePtrMap(d.magic),
		refresh:   clonePtrMap(d.refresh),
		variants:  clonePtrMap(d.variants),
		carts:     clonePtrMap(d.carts),
		cartItems: make(map[string][]*domain.CartItem, len(d.cartItems)),
		orders:    clonePtrMap(d.orders),
		orderIt:   make(map[string][]domain.OrderItem, len(d.orderIt)),
		events:    make(map[string][]domain.OrderEvent, len(d.events)),
	}
	for k, items := range d.cartItems {
		cp := make([]*domain.CartItem, len(items))
		for i, it := range items {
			v := *it
			cp[i] = &v
		}
		c.cartItems[k] = cp
	}
	for k, v := range d.orderIt {
		c.orderIt[k] = slices.Clone(v)
	}
	for k, v := range d.events {
		c.events[k] = slices.Clone(v)
	}
	return c
}

type fakeStore struct {
	txMu       sync.Mutex
	mu         sync.Mutex
	data       *fakeData
	failOn     map[string]error
	txs        int
	parallelTx bool
	onOp       func(op string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: newFakeData(), failOn: map[string]error{}}
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(r repository.Repos) error) error {
	if s.parallelTx {
		s.mu.Lock()
		s.txs++
		s.mu.Unlock()
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.txs++
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) Users() repository.UserRepository { return fakeUsers{s} }
func (s *fakeStore) Tokens() repository.TokenRepository { return fakeTokens{s} }
func (s *fakeStore) Catalog() repository.CatalogRepository { return fakeCatalog{s} }
func (s *fakeStore) Carts() repository.CartRepository { return fakeCarts{s} }
func (s *fakeStore) Orders() repository.OrderRepository { return fakeOrders{s} }

// lock takes the data mutex unless an error is injected for op, in which
// case the mutex is released and the error returned.
func (s *fakeStore) lock(op string) error {
	if s.onOp != nil {
		s.onOp(op)
	}
	s.mu.Lock()
	if err := s.failOn[op]; err != nil {
		s.mu.Unlock()
		return err
	}
	return nil
}

// holdUntil returns an onOp hook that parks callers of op until n of them
// have arrived, then releases them together.
func holdUntil(op string, n int) func(string) {
	var (
		mu      sync.Mutex
		arrived int
	)
	all := make(chan struct{})
	return func(got string) {
		if got != op {
			return
		}
		mu.Lock()
		arrived++
		if arrived == n {
			close(all)
		}
		mu.Unlock()
		select {
		case <-all:
		case <-time.After(5 * time.Second):
		}
	}
}

// ---- seeding helpers ----

func (s *fakeStore) addUser(email string, active bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u := &domain.User{ID: uuid.NewString(), Email: email, Name: "Test", IsActive: active, CreatedAt: now, UpdatedAt: now}
	s.data.users[u.ID] = u
	c := *u
	return &c
}

func (s *fakeStore) addVariant(price string, stock int, active bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	itemID := uuid.NewString()
	d := &domain.VariantDetail{
		Variant: domain.Variant{
			ID:       uuid.NewString(),
			ItemID:   itemID,
			SKU:      "SKU-" + itemID[:8],
			Title:    "Variant " + itemID[:4],
			Price:    decimal.RequireFromString(price),
			Stock:    stock,
			IsActive: active,
		},
		Item: domain.Item{ID: itemID, Slug: "item-" + itemID[:8], Title: "Item " + itemID[:4]},
	}
	s.data.variants[d.Variant.ID] = d
	return d.Variant.ID
}

func (s *fakeStore) setStock(variantID string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.variants[variantID].Variant.Stock = stock
}

func (s *fakeStore) setPrice(variantID, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.variants[variantID].Variant.Price = decimal.RequireFromString(price)
}

func (s *fakeStore) cartQty(userID string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	c, ok := s.data.carts[userID]
	if !ok {
		return out
	}
	for _, it := range s.data.cartItems[c.ID] {
		out[it.VariantID] = it.Qty
	}
	return out
}

func (s *fakeStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orders)
}

func (s *fakeStore) eventsFor(orderID string) []domain.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.events[orderID])
}

func (s *fakeStore) magicToken(hash string) *domain.MagicToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.magic[hash]
	if !ok {
		return nil
	}
	c := *t
	return &c
}

func (s *fakeStore) refreshTokens() []*domain.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(clonePtrMap(s.data.refresh)))
}

// ---- users ----

type fakeUsers struct{ s *fakeStore }

func (f fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if err := f.s.lock("Users.FindByID"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	u, ok := f.s.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := f.s.lock("Users.FindByEmail"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	for _, u := range f.s.data.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f fakeUsers) Create(_ context.Context, email string, p domain.Profile) (*domain.User, error) {
	if err := f.s.lock("Users.Create"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	now := time.Now()
	phone := p.Phone
	u := &domain.User{ID: uuid.NewString(), Email: email, Name: p.Name, Phone: &phone, IsActive: true, CreatedAt: now, UpdatedAt: now}
	f.s.data.users[u.ID] = u
	c := *u
	return &c, nil
}

func (f fakeUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if err := f.s.lock("Users.TouchLastLogin"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	u, ok := f.s.data.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f fakeUsers) UpdateProfile(_ context.Context, id string, in repository.UpdateProfileInput) (*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Phone != nil {
		p := *in.Phone
		u.Phone = &p
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) SetActive(_ context.Context, id string, active bool) (*domain.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsActive = active
	c := *u
	return &c, nil
}

func (f fakeUsers) List(_ context.Context, in repository.ListUsersInput) ([]*domain.User, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var all []*domain.User
	for _, u := range f.s.data.users {
		if in.IsActive != nil && u.IsActive != *in.IsActive {
			continue
		}
		if in.Query != "" && !strings.Contains(u.Email, in.Query) && !strings.Contains(u.Name, in.Query) {
			continue
		}
		c := *u
		all = append(all, &c)
	}
	slices.SortFunc(all, func(a, b *domain.User) int { return strings.Compare(a.Email, b.Email) })
	return window(all, in.Offset, in.Limit), len(all), nil
}

// ---- tokens ----

type fakeTokens struct{ s *fakeStore }

func (f fakeTokens) CreateMagicToken(_ context.Context, t *domain.MagicToken) error {
	if err := f.s.lock("Tokens.CreateMagicToken"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	c := *t
	f.s.data.magic[t.TokenHash] = &c
	return nil
}

func (f fakeTokens) FindUsableMagicToken(_ context.Context, hash string, now time.Time) (*domain.MagicToken, error) {
	if err := f.s.lock("Tokens.FindUsableMagicToken"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	t, ok := f.s.data.magic[hash]
	if !ok || !t.Usable(now) {
		return nil, domain.ErrTokenInvalid
	}
	c := *t
	return &c, nil
}

func (f fakeTokens) ConsumeMagicToken(_ context.Context, hash string, now time.Time) error {
	if err := f.s.lock("Tokens.ConsumeMagicToken"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	t, ok := f.s.data.magic[hash]
	if !ok || !t.Usable(now) {
		return domain.ErrTokenInvalid
	}
	t.ConsumedAt = &now
	return nil
}

func (f fakeTokens) CreateRefreshToken(_ context.Context, t *domain.RefreshToken) error {
	if err := f.s.lock("Tokens.CreateRefreshToken"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	c := *t
	f.s.data.refresh[t.TokenHash] = &c
	return nil
}

func (f fakeTokens) RevokeRefreshToken(_ context.Context, hash string, now time.Time) (*domain.RefreshToken, error) {
	if err := f.s.lock("Tokens.RevokeRefreshToken"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	t, ok := f.s.data.refresh[hash]
	if !ok || !t.Usable(now) {
		return nil, domain.ErrTokenInvalid
	}
	t.RevokedAt = &now
	c := *t
	return &c, nil
}

func (f fakeTokens) FindRefreshTokenByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.data.refresh[hash]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	c := *t
	return &c, nil
}

func (f fakeTokens) PurgeExpiredRefreshTokens(_ context.Context, before time.Time) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for k, t := range f.s.data.refresh {
		if t.ExpiresAt.Before(before) {
			delete(f.s.data.refresh, k)
			n++
		}
	}
	return n, nil
}

// ---- catalog ----

type fakeCatalog struct{ s *fakeStore }

func (f fakeCatalog) VariantsByIDs(_ context.Context, ids []string, _ domain.RowLock) (map[string]*domain.Variant, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string]*domain.Variant{}
	for _, id := range ids {
		if d, ok := f.s.data.variants[id]; ok {
			v := d.Variant
			out[id] = &v
		}
	}
	return out, nil
}

func (f fakeCatalog) VariantDetails(_ context.Context, ids []string) (map[string]*domain.VariantDetail, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string]*domain.VariantDetail{}
	for _, id := range ids {
		if d, ok := f.s.data.variants[id]; ok {
			c := *d
			c.Images = slices.Clone(d.Images)
			out[id] = &c
		}
	}
	return out, nil
}

// ---- carts ----

type fakeCarts struct{ s *fakeStore }

func (f fakeCarts) GetOrCreate(_ context.Context, userID string) (*domain.Cart, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.data.carts[userID]
	if !ok {
		now := time.Now()
		c = &domain.Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		f.s.data.carts[userID] = c
	}
	cp := *c
	return &cp, nil
}

func (f fakeCarts) FindByUser(_ context.Context, userID string) (*domain.Cart, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.data.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCarts) Items(_ context.Context, cartID string) ([]*domain.CartItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*domain.CartItem
	for _, it := range f.s.data.cartItems[cartID] {
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (f fakeCarts) UpsertItem(_ context.Context, cartID, variantID string, qty int) error {
	if err := f.s.lock("Carts.UpsertItem"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	for _, it := range f.s.data.cartItems[cartID] {
		if it.VariantID == variantID {
			it.Qty = qty
			return nil
		}
	}
	f.s.data.cartItems[cartID] = append(f.s.data.cartItems[cartID], &domain.CartItem{CartID: cartID, VariantID: variantID, Qty: qty})
	return nil
}

func (f fakeCarts) DeleteItem(_ context.Context, cartID, variantID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.data.cartItems[cartID] = slices.DeleteFunc(f.s.data.cartItems[cartID], func(it *domain.CartItem) bool {
		return it.VariantID == variantID
	})
	return nil
}

func (f fakeCarts) DeleteItems(_ context.Context, cartID string) error {
	if err := f.s.lock("Carts.DeleteItems"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	delete(f.s.data.cartItems, cartID)
	return nil
}

func (f fakeCarts) Touch(_ context.Context, cartID string, at time.Time) (*domain.Cart, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.data.carts {
		if c.ID == cartID {
			c.UpdatedAt = at
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCartNotFound
}

// ---- orders ----

type fakeOrders struct{ s *fakeStore }

func (f fakeOrders) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	if err := f.s.lock("Orders.Create"); err != nil {
		return nil, err
	}
	defer f.s.mu.Unlock()
	stored := *o
	stored.ID = uuid.NewString()
	stored.CreatedAt = o.PlacedAt
	stored.UpdatedAt = o.PlacedAt
	stored.Items, stored.Events = nil, nil
	f.s.data.orders[stored.ID] = &stored

	items := make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.ID = uuid.NewString()
		it.OrderID = stored.ID
		items[i] = it
	}
	f.s.data.orderIt[stored.ID] = items

	out := stored
	out.Items = slices.Clone(items)
	return &out, nil
}

func (f fakeOrders) AppendEvent(_ context.Context, e *domain.OrderEvent) error {
	if err := f.s.lock("Orders.AppendEvent"); err != nil {
		return err
	}
	defer f.s.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	f.s.data.events[e.OrderID] = append(f.s.data.events[e.OrderID], *e)
	return nil
}

func (f fakeOrders) UpdateStatus(_ context.Context, in repository.UpdateStatusInput) (*domain.Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.data.orders[in.OrderID]
	if !ok || o.Status != in.From {
		return nil, domain.ErrInvalidTransition
	}
	o.Status = in.To
	o.PaidAt = in.PaidAt
	o.CanceledAt = in.CanceledAt
	o.UpdatedAt = in.At
	c := *o
	return &c, nil
}

func (f fakeOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.data.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (f fakeOrders) FindForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	o, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f fakeOrders) Items(_ context.Context, ids []string) (map[string][]domain.OrderItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string][]domain.OrderItem{}
	for _, id := range ids {
		out[id] = slices.Clone(f.s.data.orderIt[id])
	}
	return out, nil
}

func (f fakeOrders) Events(_ context.Context, ids []string) (map[string][]domain.OrderEvent, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[string][]domain.OrderEvent{}
	for _, id := range ids {
		out[id] = slices.Clone(f.s.data.events[id])
	}
	return out, nil
}

func (f fakeOrders) List(_ context.Context, in repository.ListOrdersInput) ([]*domain.Order, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var all []*domain.Order
	for _, o := range f.s.data.orders {
		if in.UserID != "" && o.UserID != in.UserID {
			continue
		}
		if in.Status != "" && o.Status != in.Status {
			continue
		}
		if in.Email != "" && !strings.Contains(o.Contact.Email, in.Email) {
			continue
		}
		c := *o
		all = append(all, &c)
	}
	slices.SortFunc(all, func(a, b *domain.Order) int { return b.PlacedAt.Compare(a.PlacedAt) })
	return window(all, in.Offset, in.Limit), len(all), nil
}

func window[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end]
}

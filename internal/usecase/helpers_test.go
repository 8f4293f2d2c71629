package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/ratelimit"
	"github.com/ErlanBelekov/shop-backend/internal/security"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/stretchr/testify/require"
)

const testSecret = "usecase-test-secret-at-least-32-chars"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeNotifier struct {
	mu     sync.Mutex
	to     []string
	tokens []string
}

func (n *fakeNotifier) Notify(_ context.Context, to, rawToken string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.to = append(n.to, to)
	n.tokens = append(n.tokens, rawToken)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokens)
}

func newHasher(t *testing.T, namespace string) security.Hasher {
	t.Helper()
	h, err := security.NewHMACHasher([]byte(testSecret), namespace)
	require.NoError(t, err)
	return h
}

type authFixture struct {
	store    *fakeStore
	clock    *testClock
	notifier *fakeNotifier
	hasher   security.Hasher
	auth     *usecase.AuthUsecase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := newFakeStore()
	clock := newTestClock()
	notifier := &fakeNotifier{}
	hasher := newHasher(t, security.NamespaceMagicLink)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), time.Minute).WithClock(clock.Now)
	auth := usecase.NewAuthUsecase(store, hasher, limiter, notifier, 15*time.Minute, discardLogger).WithClock(clock.Now)
	return &authFixture{store: store, clock: clock, notifier: notifier, hasher: hasher, auth: auth}
}

func (f *authFixture) requestLink(t *testing.T, email, ip string) string {
	t.Helper()
	raw, err := f.auth.RequestLink(context.Background(), usecase.RequestLinkInput{Email: email, ClientIP: ip})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	return raw
}

type sessionFixture struct {
	store   *fakeStore
	clock   *testClock
	hasher  security.Hasher
	session *usecase.SessionUsecase
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := newFakeStore()
	clock := newTestClock()
	hasher := newHasher(t, security.NamespaceRefreshToken)
	session := usecase.NewSessionUsecase(store, hasher, usecase.SessionConfig{
		JWTKey:     []byte(testSecret),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}, discardLogger).WithClock(clock.Now)
	return &sessionFixture{store: store, clock: clock, hasher: hasher, session: session}
}

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limited")

// Store keeps the last accepted time per key. MemoryStore is process-local;
// a shared cache can implement the same interface for multiple instances.
type Store interface {
	Last(ctx context.Context, key string) (time.Time, bool, error)
	Set(ctx context.Context, key string, at time.Time) error
}

// Limiter allows one event per key per fixed interval. Check and Mark are
// separate so the caller only marks after the guarded action succeeded.
type Limiter struct {
	store    Store
	interval time.Duration
	now      func() time.Time
}

func NewLimiter(store Store, interval time.Duration) *Limiter {
	return &Limiter{store: store, interval: interval, now: time.Now}
}

// WithClock replaces the limiter's time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Interval() time.Duration { return l.interval }

// Check returns ErrRateLimited if key was marked less than one interval ago.
func (l *Limiter) Check(ctx context.Context, key string) error {
	last, ok, err := l.store.Last(ctx, key)
	if err != nil {
		return err
	}
	if ok && l.now().Sub(last) < l.interval {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) Mark(ctx context.Context, key string) error {
	return l.store.Set(ctx, key, l.now())
}

type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (s *MemoryStore) Last(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.last[key]
	return t, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key] = at
	return nil
}

// Sweep drops entries recorded before cutoff and returns how many were removed.
func (s *MemoryStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, t := range s.last {
		if t.Before(cutoff) {
			delete(s.last, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

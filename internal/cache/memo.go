// Package cache provides a TTL-bounded, single-flight memo for values that are
// expensive to fetch, such as a provider's model listing.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const flightKey = "value"

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memo holds one value for at most ttl. Concurrent misses share a single fetch,
// and errors are never stored. A ttl of zero or less disables storage, so every
// Get fetches (still single-flight).
type Memo[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	entry *entry[T]
	sf    singleflight.Group
}

// Option configures a Memo.
type Option func(*memoOptions)

type memoOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *memoOptions) { o.now = now }
}

// New creates a Memo with the given time-to-live.
func New[T any](ttl time.Duration, opts ...Option) *Memo[T] {
	o := memoOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[T]{ttl: ttl, now: o.now}
}

// TTL returns the configured time-to-live.
func (m *Memo[T]) TTL() time.Duration { return m.ttl }

// Peek returns the stored value if it is still fresh.
func (m *Memo[T]) Peek() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.entry == nil || !m.now().Before(m.entry.expiresAt) {
		var zero T
		return zero, false
	}
	return m.entry.value, true
}

// Get returns the fresh stored value, or calls fetch to obtain one. The fetch
// runs on a context detached from ctx's cancellation so that one caller giving
// up does not fail the others waiting on the same flight; ctx's deadline is kept.
func (m *Memo[T]) Get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := m.Peek(); ok {
		return v, nil
	}

	ch := m.sf.DoChan(flightKey, func() (any, error) {
		// A flight that finished just before this one started may have stored a value.
		if v, ok := m.Peek(); ok {
			return v, nil
		}
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		m.store(v)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// Invalidate drops the stored value.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	m.entry = nil
	m.mu.Unlock()
}

func (m *Memo[T]) store(v T) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entry = &entry[T]{value: v, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// detachCancel returns a context that ignores parent's cancellation but keeps
// its deadline.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

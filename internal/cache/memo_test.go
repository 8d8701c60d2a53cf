package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counter(calls *atomic.Int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestGetReturnsCachedValueWhileFresh(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m := New[string](2*time.Minute, WithClock(clock.Now))
	var calls atomic.Int32
	ctx := context.Background()

	v, err := m.Get(ctx, counter(&calls, "first"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	clock.Advance(119 * time.Second)
	v, err = m.Get(ctx, counter(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.EqualValues(t, 1, calls.Load())

	clock.Advance(time.Second)
	v, err = m.Get(ctx, counter(&calls, "third"))
	require.NoError(t, err)
	assert.Equal(t, "third", v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	m := New[int](time.Hour)
	boom := errors.New("boom")

	_, err := m.Get(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	_, ok := m.Peek()
	assert.False(t, ok)

	v, err := m.Get(context.Background(), func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestZeroTTLAlwaysFetches(t *testing.T) {
	m := New[string](0)
	var calls atomic.Int32
	for j := 0; j < 3; j++ {
		_, err := m.Get(context.Background(), counter(&calls, "v"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestInvalidate(t *testing.T) {
	m := New[string](time.Hour)
	var calls atomic.Int32
	_, _ = m.Get(context.Background(), counter(&calls, "v"))
	m.Invalidate()
	_, _ = m.Get(context.Background(), counter(&calls, "v"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	m := New[string](time.Hour)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Get(context.Background(), fetch)
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestCancelledCallerDoesNotFailFlight(t *testing.T) {
	m := New[string](time.Hour)
	release := make(chan struct{})
	started := make(chan struct{})

	var fetchErr atomic.Value
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := m.Get(ctx, fetch)
		errCh <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := m.Peek()
		return ok
	}, time.Second, time.Millisecond)
	assert.Nil(t, fetchErr.Load())
}

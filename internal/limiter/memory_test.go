package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
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

func newMemory(t *testing.T, clock *fakeClock, rules Rules) *MemoryLimiter {
	t.Helper()
	l, err := NewMemoryLimiter(rules, WithClock(clock.Now))
	require.NoError(t, err)
	return l
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := newMemory(t, clock, Rules{"e": {Limit: 5, Window: time.Minute}})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := l.Admit(ctx, "10.0.0.1", "e")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 4-i, d.Remaining)
		clock.Advance(time.Second)
	}

	d, err := l.Admit(ctx, "10.0.0.1", "e")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 55*time.Second, d.RetryAfter)

	clock.Advance(55 * time.Second)
	d, err = l.Admit(ctx, "10.0.0.1", "e")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "first request of a new window")
	assert.Equal(t, 4, d.Remaining)
}

func TestMemoryLimiterRejectionsDoNotExtendWindow(t *testing.T) {
	clock := newFakeClock()
	l := newMemory(t, clock, Rules{"e": {Limit: 1, Window: 10 * time.Second}})
	ctx := context.Background()

	d, _ := l.Admit(ctx, "c", "e")
	require.True(t, d.Allowed)
	for i := 0; i < 9; i++ {
		clock.Advance(time.Second)
		d, _ = l.Admit(ctx, "c", "e")
		require.False(t, d.Allowed)
	}
	assert.Equal(t, time.Second, d.RetryAfter)
	clock.Advance(time.Second)
	d, _ = l.Admit(ctx, "c", "e")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newMemory(t, clock, Rules{
		"a": {Limit: 1, Window: time.Minute},
		"b": {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	d, _ := l.Admit(ctx, "c1", "a")
	assert.True(t, d.Allowed)
	d, _ = l.Admit(ctx, "c1", "a")
	assert.False(t, d.Allowed)
	d, _ = l.Admit(ctx, "c2", "a")
	assert.True(t, d.Allowed, "other client")
	d, _ = l.Admit(ctx, "c1", "b")
	assert.True(t, d.Allowed, "other endpoint")
}

func TestMemoryLimiterUnknownEndpoint(t *testing.T) {
	l := newMemory(t, newFakeClock(), Rules{})
	_, err := l.Admit(context.Background(), "c", "missing")
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestMemoryLimiterRejectsInvalidRules(t *testing.T) {
	_, err := NewMemoryLimiter(Rules{"e": {Limit: 0, Window: time.Minute}})
	assert.Error(t, err)
}

func TestMemoryLimiterConcurrentAdmission(t *testing.T) {
	l, err := NewMemoryLimiter(Rules{"e": {Limit: 10, Window: time.Hour}})
	require.NoError(t, err)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(context.Background(), "same-client", "e")
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), admitted.Load())
}

func TestMemoryLimiterEvict(t *testing.T) {
	clock := newFakeClock()
	l := newMemory(t, clock, Rules{
		"short": {Limit: 1, Window: time.Minute},
		"long":  {Limit: 1, Window: time.Hour},
	})
	ctx := context.Background()
	_, _ = l.Admit(ctx, "c", "short")
	_, _ = l.Admit(ctx, "c", "long")
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Evict(clock.Now().Add(59*time.Second)))
	assert.Equal(t, 1, l.Evict(clock.Now().Add(time.Minute)))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.Evict(clock.Now().Add(time.Hour)))
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLimiterRunStopsOnCancel(t *testing.T) {
	l, err := NewMemoryLimiter(Rules{"e": {Limit: 1, Window: time.Millisecond}})
	require.NoError(t, err)
	_, _ = l.Admit(context.Background(), "c", "e")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

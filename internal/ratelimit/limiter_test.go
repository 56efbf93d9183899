package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance the limiter's view of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(maxRequests int, window time.Duration) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := New(maxRequests, window)
	l.now = clock.Now
	return l, clock
}

func TestAcquireWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	assert.Equal(t, 0, l.Remaining())
}

func TestAcquireBlocksWhenExhausted(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireAdmitsAfterWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	clock.Advance(30 * time.Second)
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 0, l.Remaining())

	// The first stamp leaves the window; one slot frees up.
	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, l.Remaining())
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 0, l.Remaining())
}

func TestRemainingPrunesExpiredStamps(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	assert.Equal(t, 0, l.Remaining())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 5, l.Remaining())
}

func TestAcquireNoBudget(t *testing.T) {
	l := New(0, time.Minute)

	err := l.Acquire(context.Background())
	assert.Error(t, err)
}

func TestAcquireConcurrent(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, l.Remaining())
}

func TestDefaultBudgets(t *testing.T) {
	assert.Equal(t, DefaultSourceRequests, NewSource().Remaining())
	assert.Equal(t, DefaultDestRequests, NewDest().Remaining())
}

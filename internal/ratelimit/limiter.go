// Package ratelimit provides sliding-window admission control for the
// provider APIs.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Conservative per-provider budgets, tuned below each provider's
// published limit (source: 60 req/min, destination: 1200 req/5min).
const (
	DefaultSourceRequests = 50
	DefaultSourceWindow   = time.Minute

	DefaultDestRequests = 1100
	DefaultDestWindow   = 5 * time.Minute
)

// Limiter is a sliding-window admission gate. Acquire blocks until
// admitting one more request keeps the trailing window within budget.
// Safe for concurrent use; waiters are woken on a time basis and
// re-compete for admission, so no caller is starved indefinitely.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu     sync.Mutex
	stamps []time.Time

	// now is injectable for tests.
	now func() time.Time
}

// New creates a limiter admitting at most maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// NewSource creates a limiter with the source provider's default budget.
func NewSource() *Limiter {
	return New(DefaultSourceRequests, DefaultSourceWindow)
}

// NewDest creates a limiter with the destination provider's default budget.
func NewDest() *Limiter {
	return New(DefaultDestRequests, DefaultDestWindow)
}

// Acquire blocks until one request is admitted or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.maxRequests <= 0 {
		return errors.New("limiter has no budget")
	}

	for {
		wait, admitted := l.tryAdmit()
		if admitted {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Oldest stamp has left the window; re-compete.
		}
	}
}

// tryAdmit records a request stamp if the window has budget. Otherwise
// it returns the wait until the oldest stamp expires.
func (l *Limiter) tryAdmit() (wait time.Duration, admitted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) < l.maxRequests {
		l.stamps = append(l.stamps, now)
		return 0, true
	}

	wait = l.stamps[0].Add(l.window).Sub(now)
	if wait <= 0 {
		// The oldest stamp expired between prune and here; re-check
		// immediately rather than sleeping.
		wait = time.Millisecond
	}
	return wait, false
}

// prune drops stamps that have left the trailing window. Callers must
// hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.stamps) && !l.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
	}
}

// Remaining returns the number of requests the window can still admit.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.maxRequests - len(l.stamps)
}

// Package retry provides retry with linear backoff for the source
// provider's transient resource-lock contention.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when max retry attempts are exceeded
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled during retry
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// Defaults for the lock-aware retry policy.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to produce each
	// backoff: base*1 after the first failure, base*2 after the second.
	BaseDelay time.Duration
	// IsRetryable determines if an error should be retried.
	IsRetryable func(error) bool
	// Sleep waits for the given backoff. Defaults to a context-aware
	// timer sleep; injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the default lock-aware retry configuration.
func DefaultConfig(isRetryable func(error) bool) Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		IsRetryable: isRetryable,
	}
}

// Do executes fn, retrying retryable errors with linear backoff.
func Do(ctx context.Context, config Config, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.Sleep == nil {
		config.Sleep = sleep
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if config.IsRetryable == nil || !config.IsRetryable(err) {
			return err
		}

		// No sleep after the final attempt.
		if attempt < config.MaxAttempts {
			if sleepErr := config.Sleep(ctx, config.BaseDelay*time.Duration(attempt)); sleepErr != nil {
				return fmt.Errorf("%w: %v", ErrContextCancelled, sleepErr)
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

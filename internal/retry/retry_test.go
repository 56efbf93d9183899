package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomigrate/internal/retry"
)

var errTransient = errors.New("transient")

// recordingSleep captures requested backoffs without waiting.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	config := retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		IsRetryable: func(error) bool { return true },
		Sleep:       recordingSleep(&delays),
	}

	calls := 0
	err := retry.Do(context.Background(), config, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDoLinearBackoff(t *testing.T) {
	var delays []time.Duration
	config := retry.Config{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		IsRetryable: func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:       recordingSleep(&delays),
	}

	calls := 0
	err := retry.Do(context.Background(), config, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// base*1 after the first failure, base*2 after the second.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	config := retry.Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		IsRetryable: func(error) bool { return true },
		Sleep:       recordingSleep(&delays),
	}

	calls := 0
	err := retry.Do(context.Background(), config, func() error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	// No sleep after the final attempt.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDoNonRetryableReturnsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	var delays []time.Duration
	config := retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		IsRetryable: func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:       recordingSleep(&delays),
	}

	calls := 0
	err := retry.Do(context.Background(), config, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDoNilIsRetryable(t *testing.T) {
	config := retry.Config{MaxAttempts: 5, BaseDelay: time.Second}

	calls := 0
	err := retry.Do(context.Background(), config, func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := retry.Config{MaxAttempts: 5, BaseDelay: time.Second}

	err := retry.Do(ctx, config, func() error { return nil })
	assert.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestDoCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		IsRetryable: func(error) bool { return true },
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	err := retry.Do(ctx, config, func() error { return errTransient })
	assert.ErrorIs(t, err, retry.ErrContextCancelled)
}

func TestDoZeroConfigUsesDefaults(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Config{}, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

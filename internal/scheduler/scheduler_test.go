package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/gomigrate/internal/domain"
	"github.com/jonesrussell/gomigrate/internal/logger"
	"github.com/jonesrussell/gomigrate/internal/scheduler"
)

// fakeMigrator fails the domains listed in failures and tracks the peak
// number of concurrent Migrate calls.
type fakeMigrator struct {
	mu       sync.Mutex
	active   int
	peak     int
	migrated []string
	failures map[string]error
	delay    time.Duration
}

func (m *fakeMigrator) Migrate(_ context.Context, state *domain.DomainState) error {
	m.mu.Lock()
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	m.migrated = append(m.migrated, state.Domain)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	if err, ok := m.failures[state.Domain]; ok {
		return err
	}
	return nil
}

func states(n int) []*domain.DomainState {
	out := make([]*domain.DomainState, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &domain.DomainState{
			Domain: fmt.Sprintf("domain-%02d.com", i),
			Status: domain.StatusPending,
		})
	}
	return out
}

func TestRunAllSucceed(t *testing.T) {
	m := &fakeMigrator{}
	s := scheduler.New(m, 4, logger.NewNoOp())

	result := s.Run(context.Background(), states(6))

	assert.Equal(t, 6, result.Succeeded())
	assert.Equal(t, 0, result.Failed())
	assert.Len(t, m.migrated, 6)
}

func TestRunOneFailureDoesNotAffectSiblings(t *testing.T) {
	backupErr := errors.New("DNS backup: records endpoint down")
	m := &fakeMigrator{
		failures: map[string]error{"domain-03.com": backupErr},
	}
	s := scheduler.New(m, 8, logger.NewNoOp())

	result := s.Run(context.Background(), states(10))

	assert.Equal(t, 9, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
	assert.ErrorIs(t, result.Outcomes["domain-03.com"], backupErr)
	for name, err := range result.Outcomes {
		if name != "domain-03.com" {
			assert.NoError(t, err, name)
		}
	}
	// Every domain ran; the failure blocked nothing.
	assert.Len(t, m.migrated, 10)
}

func TestRunBoundsConcurrency(t *testing.T) {
	m := &fakeMigrator{delay: 20 * time.Millisecond}
	s := scheduler.New(m, 3, logger.NewNoOp())

	result := s.Run(context.Background(), states(12))

	assert.Equal(t, 12, result.Succeeded())
	assert.LessOrEqual(t, m.peak, 3)
	assert.GreaterOrEqual(t, m.peak, 2)
}

func TestRunDefaultConcurrency(t *testing.T) {
	m := &fakeMigrator{}
	s := scheduler.New(m, 0, logger.NewNoOp())

	result := s.Run(context.Background(), states(3))
	assert.Equal(t, 3, result.Succeeded())
}

func TestRunCancelledContextRecordsUnstarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Concurrency 1 with a slow migrator keeps the semaphore full, so
	// later domains hit the ctx.Done branch.
	m := &fakeMigrator{delay: 20 * time.Millisecond}
	s := scheduler.New(m, 1, logger.NewNoOp())

	result := s.Run(ctx, states(4))

	assert.Len(t, result.Outcomes, 4)
	cancelled := 0
	for _, err := range result.Outcomes {
		if errors.Is(err, context.Canceled) {
			cancelled++
		}
	}
	// At least the domains never admitted carry the context error.
	assert.GreaterOrEqual(t, cancelled, 3)
}

func TestRunEmptyBatch(t *testing.T) {
	m := &fakeMigrator{}
	s := scheduler.New(m, 4, logger.NewNoOp())

	result := s.Run(context.Background(), nil)

	assert.Equal(t, 0, result.Succeeded())
	assert.Equal(t, 0, result.Failed())
}

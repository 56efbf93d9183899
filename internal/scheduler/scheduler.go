// Package scheduler runs the per-domain migration pipeline concurrently
// with bounded parallelism and per-domain error isolation.
package scheduler

import (
	"context"
	"sync"

	"github.com/jonesrussell/gomigrate/internal/domain"
	"github.com/jonesrussell/gomigrate/internal/logger"
)

// DefaultConcurrency is the default number of domains migrated in parallel.
const DefaultConcurrency = 8

// Migrator runs the pipeline for one domain.
type Migrator interface {
	Migrate(ctx context.Context, state *domain.DomainState) error
}

// Result aggregates the per-domain outcomes of one batch.
type Result struct {
	// Outcomes maps domain name to its pipeline error; nil means success.
	Outcomes map[string]error
}

// Succeeded returns the number of domains that finished without error.
func (r *Result) Succeeded() int {
	count := 0
	for _, err := range r.Outcomes {
		if err == nil {
			count++
		}
	}
	return count
}

// Failed returns the number of domains whose pipeline returned an error.
func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Scheduler fans domains out across a bounded worker pool. One domain's
// failure never cancels or blocks its siblings.
type Scheduler struct {
	migrator    Migrator
	concurrency int
	logger      logger.Interface
}

// New creates a scheduler. A non-positive concurrency uses the default.
func New(migrator Migrator, concurrency int, log logger.Interface) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		migrator:    migrator,
		concurrency: concurrency,
		logger:      log,
	}
}

// Run migrates every domain, at most `concurrency` at a time, and
// returns the aggregated outcome map. When ctx is cancelled mid-batch,
// no further domains are admitted; domains never started are recorded
// with the context error and running pipelines stop at their next
// suspension point.
func (s *Scheduler) Run(ctx context.Context, states []*domain.DomainState) *Result {
	result := &Result{Outcomes: make(map[string]error, len(states))}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Outcomes[name] = err
	}

	for _, state := range states {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			record(state.Domain, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(state *domain.DomainState) {
			defer func() {
				<-sem
				wg.Done()
			}()

			err := s.migrator.Migrate(ctx, state)
			if err != nil {
				s.logger.Error("domain migration failed",
					"domain", state.Domain,
					"error", err,
				)
			}
			record(state.Domain, err)
		}(state)
	}

	wg.Wait()

	s.logger.Info("batch finished",
		"domains", len(states),
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
	)
	return result
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomigrate/internal/domain"
)

// ErrNoActiveRun is returned when no migration run is active.
var ErrNoActiveRun = errors.New("no active migration run")

// ErrRunNotFound is returned when the requested run does not exist.
var ErrRunNotFound = errors.New("migration run not found")

// ErrDomainNotInRun is returned when updating a domain the run does not contain.
var ErrDomainNotInRun = errors.New("domain is not part of the run")

// MigrationStore persists migration runs and their per-domain state.
// Each domain's read-modify-write is a single SQL statement, so an
// interruption between pipeline steps leaves the last recorded status
// consistent with exactly the side effects already performed.
type MigrationStore struct {
	db *sqlx.DB
}

// NewMigrationStore creates a migration store over db.
func NewMigrationStore(db *sqlx.DB) *MigrationStore {
	return &MigrationStore{db: db}
}

// CreateRun creates a new run seeded with the given domains in pending
// status and marks it the single active run.
func (s *MigrationStore) CreateRun(ctx context.Context, domains []string) (*domain.Run, error) {
	if len(domains) == 0 {
		return nil, errors.New("cannot create a run with no domains")
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Active:    true,
		Domains:   make(map[string]*domain.DomainState, len(domains)),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err = tx.ExecContext(ctx, `UPDATE runs SET active = 0 WHERE active = 1`); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous run: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, active) VALUES (?, ?, 1)`,
		run.ID, run.StartedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for _, name := range domains {
		state := &domain.DomainState{
			Domain:    name,
			Status:    domain.StatusPending,
			UpdatedAt: run.StartedAt,
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_domains (run_id, domain, status, updated_at) VALUES (?, ?, ?, ?)`,
			run.ID, name, state.Status, state.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to seed domain %s: %w", name, err)
		}
		run.Domains[name] = state
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	return run, nil
}

// ActiveRun returns the currently active run.
func (s *MigrationStore) ActiveRun(ctx context.Context) (*domain.Run, error) {
	var run domain.Run
	err := s.db.GetContext(ctx, &run, `SELECT id, started_at, active FROM runs WHERE active = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveRun
		}
		return nil, fmt.Errorf("failed to load active run: %w", err)
	}

	if err = s.loadDomains(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun returns the run with the given id.
func (s *MigrationStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	err := s.db.GetContext(ctx, &run, `SELECT id, started_at, active FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	if err = s.loadDomains(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, most recent first.
func (s *MigrationStore) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	var runs []*domain.Run
	err := s.db.SelectContext(ctx, &runs, `SELECT id, started_at, active FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	for _, run := range runs {
		if err = s.loadDomains(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// UpdateDomain atomically transitions one domain's state within a run:
// the status change and every merged field land in a single statement.
// Nil update fields leave the stored values untouched; a nil LastError
// clears any previous error.
func (s *MigrationStore) UpdateDomain(ctx context.Context, runID, name string, update domain.StateUpdate) error {
	if !update.Status.Valid() {
		return fmt.Errorf("invalid status %q", update.Status)
	}

	var backup any
	if update.Backup != nil {
		backup = domain.RecordSet(update.Backup)
	}

	var zoneID any
	if update.ZoneID != nil {
		zoneID = *update.ZoneID
	}

	var nameservers any
	if update.Nameservers != nil {
		nameservers = domain.StringList(update.Nameservers)
	}

	lastError := ""
	if update.LastError != nil {
		lastError = *update.LastError
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE run_domains
		SET status      = ?,
		    backup      = COALESCE(?, backup),
		    zone_id     = COALESCE(?, zone_id),
		    nameservers = COALESCE(?, nameservers),
		    last_error  = ?,
		    updated_at  = ?
		WHERE run_id = ? AND domain = ?`,
		update.Status, backup, zoneID, nameservers, lastError, time.Now().UTC(), runID, name,
	)
	if err != nil {
		return fmt.Errorf("failed to update domain %s: %w", name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of domain %s: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDomainNotInRun, name)
	}
	return nil
}

// Resumable returns the run's domains that are not durably done, in
// deterministic (sorted) order. Completed and transfer-initiated
// domains are never retried.
func (s *MigrationStore) Resumable(run *domain.Run) []string {
	names := make([]string, 0, len(run.Domains))
	for name, state := range run.Domains {
		if !state.Status.Durable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clear deletes every run and all per-domain state.
func (s *MigrationStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_domains`); err != nil {
		return fmt.Errorf("failed to clear domain state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

// loadDomains populates run.Domains from the run_domains table.
func (s *MigrationStore) loadDomains(ctx context.Context, run *domain.Run) error {
	var states []domain.DomainState
	err := s.db.SelectContext(ctx, &states, `
		SELECT domain, status, backup, zone_id, nameservers, updated_at, last_error
		FROM run_domains
		WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load domains for run %s: %w", run.ID, err)
	}

	run.Domains = make(map[string]*domain.DomainState, len(states))
	for i := range states {
		run.Domains[states[i].Domain] = &states[i]
	}
	return nil
}

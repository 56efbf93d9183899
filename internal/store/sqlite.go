// Package store provides the persisted, resumable migration state and
// the provider credential store, backed by a single sqlite database.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

// schema creates the tables on first open. The run_domains table
// deliberately has no auth-code column: the transfer authorization code
// is never written at rest, and any legacy payload field of that name
// is dropped by the JSON decoding of the typed columns.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	active     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_domains (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	domain      TEXT NOT NULL,
	status      TEXT NOT NULL,
	backup      TEXT NOT NULL DEFAULT '[]',
	zone_id     TEXT NOT NULL DEFAULT '',
	nameservers TEXT NOT NULL DEFAULT '[]',
	updated_at  TIMESTAMP NOT NULL,
	last_error  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, domain)
);

CREATE TABLE IF NOT EXISTS credentials (
	provider   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and
// applies the schema.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	if _, execErr := db.ExecContext(ctx, schema); execErr != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", execErr)
	}

	return db, nil
}

// OpenInMemory opens a fresh in-memory database. Used in tests.
func OpenInMemory() (*sqlx.DB, error) {
	return Open(":memory:")
}

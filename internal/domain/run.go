package domain

import "time"

// MigrationStatus is the per-domain pipeline status.
type MigrationStatus string

// Pipeline statuses, in execution order. Failed can be entered from any
// in-progress status and is exited again on a successful resume.
const (
	StatusPending            MigrationStatus = "pending"
	StatusDNSMigrated        MigrationStatus = "dns_migrated"
	StatusUnlocked           MigrationStatus = "unlocked"
	StatusAuthObtained       MigrationStatus = "auth_obtained"
	StatusNSChanged          MigrationStatus = "ns_changed"
	StatusTransferInitiated  MigrationStatus = "transfer_initiated"
	StatusCompleted          MigrationStatus = "completed"
	StatusFailed             MigrationStatus = "failed"
)

// statusRank orders statuses along the pipeline. Failed ranks below
// every in-progress status so a resumed domain re-enters at the first
// incomplete step.
var statusRank = map[MigrationStatus]int{
	StatusFailed:            -1,
	StatusPending:           0,
	StatusDNSMigrated:       1,
	StatusUnlocked:          2,
	StatusAuthObtained:      3,
	StatusNSChanged:         4,
	StatusTransferInitiated: 5,
	StatusCompleted:         6,
}

// Rank returns the status's position in pipeline order.
func (s MigrationStatus) Rank() int {
	return statusRank[s]
}

// Reached reports whether this status is at or past the given status in
// pipeline order. Failed has reached nothing.
func (s MigrationStatus) Reached(other MigrationStatus) bool {
	return s.Rank() >= other.Rank()
}

// Durable reports whether the domain is durably done: it is never
// retried by a resume.
func (s MigrationStatus) Durable() bool {
	return s == StatusCompleted || s == StatusTransferInitiated
}

// Valid reports whether s is a known status.
func (s MigrationStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// DomainState is the persisted migration state of one domain within a run.
// Mutated only by the transfer engine via the migration store. The
// transfer auth code is deliberately absent: it is held in memory for
// the duration of one pipeline execution and never written at rest.
type DomainState struct {
	Domain      string          `db:"domain"      json:"domain"`
	Status      MigrationStatus `db:"status"      json:"status"`
	Backup      RecordSet       `db:"backup"      json:"backup,omitempty"`
	ZoneID      string          `db:"zone_id"     json:"zone_id,omitempty"`
	Nameservers StringList      `db:"nameservers" json:"nameservers,omitempty"`
	UpdatedAt   time.Time       `db:"updated_at"  json:"updated_at"`
	LastError   string          `db:"last_error"  json:"last_error,omitempty"`
}

// Run is one invocation of the top-level migrate operation: a set of
// domains being moved together. Exactly one run is active at a time.
type Run struct {
	ID        string    `db:"id"         json:"id"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	Active    bool      `db:"active"     json:"active"`

	// Domains maps domain name to its migration state.
	Domains map[string]*DomainState `json:"domains"`
}

// StateUpdate carries the fields merged into a DomainState on a status
// transition. Nil fields are left untouched.
type StateUpdate struct {
	Status      MigrationStatus
	Backup      []Record
	ZoneID      *string
	Nameservers []string
	LastError   *string
}

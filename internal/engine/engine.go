// Package engine drives one domain through the migration pipeline: DNS
// backup, destination zone provisioning, record migration, source-side
// unlock, auth code retrieval, nameserver change, and transfer
// initiation. Every step persists its status before the next begins, so
// an interrupted run resumes at the first incomplete step.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/gomigrate/internal/domain"
	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
	"github.com/jonesrussell/gomigrate/internal/logger"
)

// Lock clearance polling defaults: after the unlock patch, the domain
// detail is re-read until the lock flag reads false.
const (
	DefaultLockPollAttempts = 10
	DefaultLockPollInterval = 5 * time.Second
)

// Registrar is the source-provider surface the engine consumes.
type Registrar interface {
	GetDomain(ctx context.Context, name string) (*domain.Domain, error)
	GetRecords(ctx context.Context, name string) ([]domain.Record, error)
	DeletePrivacy(ctx context.Context, name string) error
	UpdateDomain(ctx context.Context, name string, patch domain.Patch) error
	GetTransferAuthCode(ctx context.Context, name string) (string, error)
}

// DNSHost is the destination-provider surface the engine consumes.
type DNSHost interface {
	CreateZone(ctx context.Context, domainName string) (*domain.Zone, error)
	GetZoneByName(ctx context.Context, domainName string) (*domain.Zone, error)
	CreateRecord(ctx context.Context, zoneID string, rec domain.DestRecord) error
	WaitForActive(ctx context.Context, zoneID string) error
	CheckAuthCode(ctx context.Context, domainName, authCode string) error
	InitiateTransfer(ctx context.Context, domainName, zoneID, authCode string, registrant *domain.RegistrantContact) error
}

// StateStore persists per-domain pipeline state.
type StateStore interface {
	UpdateDomain(ctx context.Context, runID, name string, update domain.StateUpdate) error
}

// Translator maps source records to destination records.
type Translator func(records []domain.Record, domainName string, proxiedDefault bool) []domain.DestRecord

// Options selects the optional pipeline behaviors for one run.
type Options struct {
	// DryRun stops the pipeline after the DNS backup step.
	DryRun bool

	// MigrateDNS enables creating the translated records at the
	// destination during zone provisioning.
	MigrateDNS bool

	// ProxiedDefault is the destination proxy flag applied to
	// proxyable record types.
	ProxiedDefault bool

	// Registrant, when set, enables the final transfer-initiation step.
	// Without it the pipeline stops after the nameserver change and the
	// domain is reported ready for transfer.
	Registrant *domain.RegistrantContact
}

// Config wires an Engine.
type Config struct {
	RunID      string
	Source     Registrar
	Dest       DNSHost
	Store      StateStore
	Translate  Translator
	Observer   Observer
	Logger     logger.Interface
	Options    Options

	// LockPollAttempts and LockPollInterval tune the post-unlock poll
	// loop. Zero values use the defaults.
	LockPollAttempts int
	LockPollInterval time.Duration

	// Sleep is injectable for tests. Defaults to a context-aware timer
	// sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine executes the migration pipeline for single domains.
type Engine struct {
	runID     string
	source    Registrar
	dest      DNSHost
	store     StateStore
	translate Translator
	observer  Observer
	logger    logger.Interface
	opts      Options

	lockPollAttempts int
	lockPollInterval time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
}

// New creates an Engine for one run.
func New(cfg Config) *Engine {
	attempts := cfg.LockPollAttempts
	if attempts == 0 {
		attempts = DefaultLockPollAttempts
	}
	interval := cfg.LockPollInterval
	if interval == 0 {
		interval = DefaultLockPollInterval
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	return &Engine{
		runID:            cfg.RunID,
		source:           cfg.Source,
		dest:             cfg.Dest,
		store:            cfg.Store,
		translate:        cfg.Translate,
		observer:         observer,
		logger:           cfg.Logger,
		opts:             cfg.Options,
		lockPollAttempts: attempts,
		lockPollInterval: interval,
		sleep:            sleep,
	}
}

// pipeline carries the in-memory context of one domain's execution.
// The auth code lives here and only here; it is never persisted.
type pipeline struct {
	name     string
	state    *domain.DomainState
	zone     *domain.Zone
	authCode string
}

// Migrate runs the pipeline for one domain, resuming from the state's
// persisted status. Any step failure records the error, transitions the
// domain to failed, and is returned to the caller.
func (e *Engine) Migrate(ctx context.Context, state *domain.DomainState) error {
	log := e.logger.WithDomain(state.Domain)

	if state.Status.Durable() {
		log.Info("domain already migrated, skipping", "status", state.Status)
		e.observer.Progress(state.Domain, "already done", state.Status)
		return nil
	}

	p := &pipeline{name: state.Domain, state: state}
	if state.ZoneID != "" {
		p.zone = &domain.Zone{ID: state.ZoneID, Name: state.Domain, Nameservers: state.Nameservers}
	}

	if err := e.run(ctx, p, log); err != nil {
		e.fail(ctx, p, err, log)
		return err
	}
	return nil
}

// run executes the pipeline steps in order, skipping those the
// persisted status shows as already done.
func (e *Engine) run(ctx context.Context, p *pipeline, log logger.Interface) error {
	if err := e.backup(ctx, p, log); err != nil {
		return err
	}
	if e.opts.DryRun {
		log.Info("dry run, stopping after DNS backup")
		e.observer.Progress(p.name, "dry run complete", p.state.Status)
		return nil
	}

	if !p.state.Status.Reached(domain.StatusDNSMigrated) {
		if err := e.provisionZone(ctx, p, log); err != nil {
			return err
		}
	}

	if !p.state.Status.Reached(domain.StatusUnlocked) {
		if err := e.prepareSource(ctx, p, log); err != nil {
			return err
		}
	}

	if !p.state.Status.Reached(domain.StatusAuthObtained) {
		if err := e.obtainAuthCode(ctx, p, log); err != nil {
			return err
		}
	}

	if !p.state.Status.Reached(domain.StatusNSChanged) {
		if err := e.updateNameservers(ctx, p, log); err != nil {
			return err
		}
	}

	if e.opts.Registrant == nil {
		log.Info("no registrant contact configured, domain is ready for transfer")
		e.observer.Progress(p.name, "ready for transfer", p.state.Status)
		return nil
	}

	return e.initiateTransfer(ctx, p, log)
}

// backup fetches and persists the domain's full DNS record set. Runs
// even on a dry run; skipped when a resumed domain already has one.
func (e *Engine) backup(ctx context.Context, p *pipeline, log logger.Interface) error {
	if len(p.state.Backup) > 0 {
		log.Debug("DNS backup already present, skipping")
		return nil
	}

	e.observer.Progress(p.name, "backing up DNS records", p.state.Status)

	records, err := e.source.GetRecords(ctx, p.name)
	if err != nil {
		return fmt.Errorf("DNS backup: %w", err)
	}

	if err := e.persist(ctx, p, domain.StateUpdate{
		Status: p.state.Status,
		Backup: records,
	}); err != nil {
		return err
	}
	p.state.Backup = records

	log.Info("backed up DNS records", "count", len(records))
	return nil
}

// provisionZone creates (or adopts) the destination zone and, when
// record migration is enabled, creates the translated records. Record
// creation failures are reported but never abort the domain.
func (e *Engine) provisionZone(ctx context.Context, p *pipeline, log logger.Interface) error {
	e.observer.Progress(p.name, "creating destination zone", p.state.Status)

	zone, err := e.dest.CreateZone(ctx, p.name)
	if errors.Is(err, apperrors.ErrZoneExists) {
		log.Info("zone already exists, looking it up by name")
		zone, err = e.dest.GetZoneByName(ctx, p.name)
	}
	if err != nil {
		return fmt.Errorf("zone provisioning: %w", err)
	}
	p.zone = zone

	if e.opts.MigrateDNS {
		e.applyRecords(ctx, p, log)
	}

	if err := e.persist(ctx, p, domain.StateUpdate{
		Status:      domain.StatusDNSMigrated,
		ZoneID:      &zone.ID,
		Nameservers: zone.Nameservers,
	}); err != nil {
		return err
	}
	p.state.Status = domain.StatusDNSMigrated
	p.state.ZoneID = zone.ID
	p.state.Nameservers = zone.Nameservers

	e.observer.Progress(p.name, "destination zone ready", p.state.Status)
	return nil
}

// applyRecords translates the backup and creates each record at the
// destination. Existing records count as success; other failures are
// accumulated and logged, never escalated.
func (e *Engine) applyRecords(ctx context.Context, p *pipeline, log logger.Interface) {
	records := e.translate(p.state.Backup, p.name, e.opts.ProxiedDefault)

	created := 0
	var failed []string
	for _, rec := range records {
		err := e.dest.CreateRecord(ctx, p.zone.ID, rec)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrRecordExists):
			// Idempotent retry of a previous partial run.
			created++
		default:
			failed = append(failed, fmt.Sprintf("%s %s: %v", rec.Type, rec.Name, err))
			log.Warn("failed to create DNS record",
				"type", rec.Type,
				"name", rec.Name,
				"error", err,
			)
		}
	}

	log.Info("migrated DNS records", "created", created, "failed", len(failed))
	e.observer.Progress(p.name, fmt.Sprintf("migrated %d DNS record(s), %d failed", created, len(failed)), p.state.Status)
}

// prepareSource removes WHOIS privacy, unlocks the domain, and disables
// auto-renew, then polls until the lock flag reads false.
func (e *Engine) prepareSource(ctx context.Context, p *pipeline, log logger.Interface) error {
	e.observer.Progress(p.name, "removing privacy and unlocking", p.state.Status)

	if err := e.removePrivacy(ctx, p, log); err != nil {
		return err
	}

	if err := e.unlock(ctx, p, log); err != nil {
		return err
	}

	if err := e.waitUnlocked(ctx, p, log); err != nil {
		return err
	}

	if err := e.persist(ctx, p, domain.StateUpdate{Status: domain.StatusUnlocked}); err != nil {
		return err
	}
	p.state.Status = domain.StatusUnlocked

	e.observer.Progress(p.name, "domain unlocked", p.state.Status)
	return nil
}

// removePrivacy clears WHOIS privacy. "Not enabled" and free-tier
// refusals are non-fatal.
func (e *Engine) removePrivacy(ctx context.Context, p *pipeline, log logger.Interface) error {
	err := e.source.DeletePrivacy(ctx, p.name)
	if err == nil {
		return nil
	}

	var httpErr *apperrors.ProviderHTTPError
	if errors.As(err, &httpErr) {
		// 404: privacy was never enabled. 422: the provider refuses the
		// delete on free-tier privacy; the transfer drops it anyway.
		if httpErr.StatusCode == 404 || httpErr.StatusCode == 422 {
			log.Warn("could not remove privacy, continuing", "error", err)
			return nil
		}
	}
	return fmt.Errorf("privacy removal: %w", err)
}

// unlock issues the combined unlock + auto-renew-off patch. If the
// provider rejects the combination for a reason other than transient
// lock contention, it retries with only the critical unlock field.
func (e *Engine) unlock(ctx context.Context, p *pipeline, log logger.Interface) error {
	unlocked := false
	renewOff := false

	err := e.source.UpdateDomain(ctx, p.name, domain.Patch{Locked: &unlocked, RenewAuto: &renewOff})
	if err == nil {
		return nil
	}
	if apperrors.IsResourceLock(err) {
		return fmt.Errorf("unlock: %w", err)
	}

	log.Warn("combined unlock patch rejected, retrying with unlock only", "error", err)
	if err := e.source.UpdateDomain(ctx, p.name, domain.Patch{Locked: &unlocked}); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}

// waitUnlocked polls the domain detail until the lock flag reads false.
// Exhausting the poll budget is a hard failure for this domain.
func (e *Engine) waitUnlocked(ctx context.Context, p *pipeline, log logger.Interface) error {
	for attempt := 1; attempt <= e.lockPollAttempts; attempt++ {
		detail, err := e.source.GetDomain(ctx, p.name)
		if err != nil {
			return fmt.Errorf("lock clearance poll: %w", err)
		}
		if !detail.Locked {
			return nil
		}

		log.Debug("domain still locked, polling", "attempt", attempt)
		if attempt < e.lockPollAttempts {
			if err := e.sleep(ctx, e.lockPollInterval); err != nil {
				return err
			}
		}
	}

	return &apperrors.TimeoutError{
		Operation: "lock clearance for " + p.name,
		Waited:    (time.Duration(e.lockPollAttempts) * e.lockPollInterval).String(),
	}
}

// obtainAuthCode fetches the transfer authorization code, falling back
// to the domain detail payload when the dedicated endpoint is
// unsupported for this suffix. The code stays in memory only.
func (e *Engine) obtainAuthCode(ctx context.Context, p *pipeline, log logger.Interface) error {
	e.observer.Progress(p.name, "retrieving transfer auth code", p.state.Status)

	code, err := e.fetchAuthCode(ctx, p.name, log)
	if err != nil {
		return err
	}
	p.authCode = code

	if err := e.persist(ctx, p, domain.StateUpdate{Status: domain.StatusAuthObtained}); err != nil {
		return err
	}
	p.state.Status = domain.StatusAuthObtained

	e.observer.Progress(p.name, "auth code obtained", p.state.Status)
	return nil
}

// fetchAuthCode tries the dedicated endpoint, then the domain detail.
func (e *Engine) fetchAuthCode(ctx context.Context, name string, log logger.Interface) (string, error) {
	code, err := e.source.GetTransferAuthCode(ctx, name)
	if err == nil {
		return code, nil
	}
	if !apperrors.IsNotFound(err) {
		return "", fmt.Errorf("auth code retrieval: %w", err)
	}

	log.Debug("auth code endpoint unsupported for this suffix, reading domain detail")
	detail, detailErr := e.source.GetDomain(ctx, name)
	if detailErr != nil {
		return "", fmt.Errorf("auth code retrieval: %w", detailErr)
	}
	if detail.AuthCode == "" {
		return "", fmt.Errorf("auth code retrieval: no auth code available for %s", name)
	}
	return detail.AuthCode, nil
}

// updateNameservers pushes the destination zone's nameservers to the
// source provider.
func (e *Engine) updateNameservers(ctx context.Context, p *pipeline, log logger.Interface) error {
	if p.zone == nil || len(p.zone.Nameservers) == 0 {
		log.Warn("destination zone reported no nameservers, skipping nameserver update")
	} else {
		e.observer.Progress(p.name, "updating nameservers", p.state.Status)
		if err := e.source.UpdateDomain(ctx, p.name, domain.Patch{Nameservers: p.zone.Nameservers}); err != nil {
			return fmt.Errorf("nameserver update: %w", err)
		}
	}

	if err := e.persist(ctx, p, domain.StateUpdate{Status: domain.StatusNSChanged}); err != nil {
		return err
	}
	p.state.Status = domain.StatusNSChanged

	e.observer.Progress(p.name, "nameservers updated", p.state.Status)
	return nil
}

// initiateTransfer waits for zone activation, validates the auth code
// with the destination, and submits the transfer request.
func (e *Engine) initiateTransfer(ctx context.Context, p *pipeline, log logger.Interface) error {
	e.observer.Progress(p.name, "waiting for zone activation", p.state.Status)

	if err := e.dest.WaitForActive(ctx, p.zone.ID); err != nil {
		return fmt.Errorf("transfer initiation: %w", err)
	}

	// A resumed pipeline past auth_obtained has lost the in-memory
	// code; re-fetch it.
	if p.authCode == "" {
		code, err := e.fetchAuthCode(ctx, p.name, log)
		if err != nil {
			return err
		}
		p.authCode = code
	}

	if err := e.dest.CheckAuthCode(ctx, p.name, p.authCode); err != nil {
		return fmt.Errorf("auth code validation: %w", err)
	}

	e.observer.Progress(p.name, "initiating registrar transfer", p.state.Status)
	if err := e.dest.InitiateTransfer(ctx, p.name, p.zone.ID, p.authCode, e.opts.Registrant); err != nil {
		return fmt.Errorf("transfer initiation: %w", err)
	}

	if err := e.persist(ctx, p, domain.StateUpdate{Status: domain.StatusTransferInitiated}); err != nil {
		return err
	}
	p.state.Status = domain.StatusTransferInitiated

	log.Info("registrar transfer initiated")
	e.observer.Progress(p.name, "transfer initiated", p.state.Status)
	return nil
}

// persist writes a state update through the store.
func (e *Engine) persist(ctx context.Context, p *pipeline, update domain.StateUpdate) error {
	if err := e.store.UpdateDomain(ctx, e.runID, p.name, update); err != nil {
		return fmt.Errorf("state persistence: %w", err)
	}
	return nil
}

// fail records the step error and transitions the domain to failed.
// The write detaches from ctx cancellation: a step that failed because
// of an interrupt must still leave the failure on record.
func (e *Engine) fail(ctx context.Context, p *pipeline, stepErr error, log logger.Interface) {
	log.Error("migration failed", "error", stepErr)

	message := stepErr.Error()
	if err := e.store.UpdateDomain(context.WithoutCancel(ctx), e.runID, p.name, domain.StateUpdate{
		Status:    domain.StatusFailed,
		LastError: &message,
	}); err != nil {
		log.Error("failed to record failure state", "error", err)
	}

	e.observer.Progress(p.name, "failed: "+message, domain.StatusFailed)
}

// defaultSleep waits for d or until ctx is done.
func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

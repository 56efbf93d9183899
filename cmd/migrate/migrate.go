// Package migrate implements the migrate command: preflight, run
// creation, and the concurrent batch pipeline for a new set of domains.
package migrate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
	"github.com/jonesrussell/gomigrate/internal/dns"
	"github.com/jonesrussell/gomigrate/internal/domain"
	"github.com/jonesrussell/gomigrate/internal/engine"
	"github.com/jonesrussell/gomigrate/internal/preflight"
	"github.com/jonesrussell/gomigrate/internal/scheduler"
)

// Command returns the migrate command.
func Command() *cobra.Command {
	var (
		dryRun      bool
		skipDNS     bool
		proxied     bool
		concurrency int
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "migrate [domains...]",
		Short: "Migrate domains to the destination provider",
		Long: `Runs preflight checks on the given domains (or every active domain in
the source account), creates a new migration run, and drives each
eligible domain through the transfer pipeline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, options{
				dryRun:      dryRun,
				skipDNS:     skipDNS,
				proxied:     proxied,
				concurrency: concurrency,
				yes:         yes,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "back up DNS records and stop; no mutations")
	cmd.Flags().BoolVar(&skipDNS, "skip-dns", false, "skip creating DNS records at the destination")
	cmd.Flags().BoolVar(&proxied, "proxied", false, "enable the destination proxy on migrated records")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of domains migrated in parallel (default 8)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

type options struct {
	dryRun      bool
	skipDNS     bool
	proxied     bool
	concurrency int
	yes         bool
}

func run(ctx context.Context, args []string, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.BuildProviders(ctx); err != nil {
		return err
	}
	if err := deps.Source.Verify(ctx); err != nil {
		return fmt.Errorf("source credentials rejected: %w", err)
	}
	if err := deps.Dest.Verify(ctx); err != nil {
		return fmt.Errorf("destination credentials rejected: %w", err)
	}

	eligible, err := selectDomains(ctx, deps, args)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		fmt.Println("No eligible domains to migrate.")
		return nil
	}

	fmt.Printf("Migrating %d domain(s):\n", len(eligible))
	for _, name := range eligible {
		fmt.Printf("  %s\n", name)
	}
	if !opts.yes && !opts.dryRun && !confirm() {
		fmt.Println("Aborted.")
		return nil
	}

	migRun, err := deps.Migrations.CreateRun(ctx, eligible)
	if err != nil {
		return err
	}
	deps.Logger.Info("created migration run", "run_id", migRun.ID, "domains", len(eligible))

	concurrency := opts.concurrency
	if concurrency == 0 {
		concurrency = deps.Config.Migration.Concurrency
	}

	eng := engine.New(engine.Config{
		RunID:     migRun.ID,
		Source:    deps.Source,
		Dest:      deps.Dest,
		Store:     deps.Migrations,
		Translate: dns.Translate,
		Observer:  common.Progress(),
		Logger:    deps.Logger,
		Options: engine.Options{
			DryRun:         opts.dryRun,
			MigrateDNS:     deps.Config.Migration.MigrateDNS && !opts.skipDNS,
			ProxiedDefault: opts.proxied || deps.Config.Migration.Proxied,
			Registrant:     registrant(deps),
		},
	})

	sched := scheduler.New(eng, concurrency, deps.Logger)
	result := sched.Run(ctx, statesFor(migRun, eligible))

	if ctx.Err() != nil {
		reportInterrupt(ctx, deps, migRun.ID)
	}

	common.PrintSummary(result)
	return nil
}

// selectDomains resolves the domain list (args or the whole account)
// and filters it through preflight, printing ineligibility reasons.
func selectDomains(ctx context.Context, deps *common.Deps, args []string) ([]string, error) {
	domains, err := candidateDomains(ctx, deps, args)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var eligible []string
	for i := range domains {
		result := preflight.Evaluate(&domains[i], now)
		if err := result.Err(domains[i].Name); err != nil {
			deps.Logger.Warn("domain failed preflight", "error", err)
			fmt.Printf("Skipping %s:\n", domains[i].Name)
			for _, reason := range result.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
			continue
		}
		eligible = append(eligible, domains[i].Name)
	}
	return eligible, nil
}

// candidateDomains fetches details for the requested domains, or lists
// the whole account when none were named.
func candidateDomains(ctx context.Context, deps *common.Deps, args []string) ([]domain.Domain, error) {
	if len(args) == 0 {
		return deps.Source.ListActiveDomains(ctx)
	}

	domains := make([]domain.Domain, 0, len(args))
	for _, name := range args {
		name = strings.ToLower(strings.TrimSpace(name))
		if err := domain.ValidateName(name); err != nil {
			return nil, err
		}
		detail, err := deps.Source.GetDomain(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", name, err)
		}
		domains = append(domains, *detail)
	}
	return domains, nil
}

// statesFor returns the run's states for the given domains.
func statesFor(run *domain.Run, names []string) []*domain.DomainState {
	states := make([]*domain.DomainState, 0, len(names))
	for _, name := range names {
		if state, ok := run.Domains[name]; ok {
			states = append(states, state)
		}
	}
	return states
}

// registrant returns the configured ICANN contact, or nil in
// DNS-only credential mode.
func registrant(deps *common.Deps) *domain.RegistrantContact {
	if !deps.Config.HasRegistrant() {
		return nil
	}
	return deps.Config.Registrant
}

// reportInterrupt summarizes how far the run got before the interrupt.
func reportInterrupt(ctx context.Context, deps *common.Deps, runID string) {
	// The scheduler has stopped mutating; read with a fresh context.
	run, err := deps.Migrations.GetRun(context.WithoutCancel(ctx), runID)
	if err != nil {
		deps.Logger.Error("failed to load run after interrupt", "error", err)
		return
	}

	done := 0
	for _, state := range run.Domains {
		if state.Status.Durable() {
			done++
		}
	}
	fmt.Printf("\nInterrupted: %d of %d domain(s) reached a terminal status; run 'gomigrate resume' to continue.\n",
		done, len(run.Domains))
}

// confirm asks for an explicit yes on stdin.
func confirm() bool {
	fmt.Print("Proceed? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

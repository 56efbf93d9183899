// Package resume implements the resume command: it re-enters the active
// run's pipeline for every domain that is not durably done.
package resume

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
	"github.com/jonesrussell/gomigrate/internal/dns"
	"github.com/jonesrussell/gomigrate/internal/domain"
	"github.com/jonesrussell/gomigrate/internal/engine"
	"github.com/jonesrussell/gomigrate/internal/scheduler"
	"github.com/jonesrussell/gomigrate/internal/store"
)

// Command returns the resume command.
func Command() *cobra.Command {
	var (
		skipDNS     bool
		proxied     bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the active migration run",
		Long: `Re-enters the pipeline for every domain in the active run whose status
is not completed or transfer-initiated. Each domain picks up at its
first incomplete step; finished steps are never repeated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), options{
				skipDNS:     skipDNS,
				proxied:     proxied,
				concurrency: concurrency,
			})
		},
	}

	cmd.Flags().BoolVar(&skipDNS, "skip-dns", false, "skip creating DNS records at the destination")
	cmd.Flags().BoolVar(&proxied, "proxied", false, "enable the destination proxy on migrated records")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of domains migrated in parallel (default 8)")

	return cmd
}

type options struct {
	skipDNS     bool
	proxied     bool
	concurrency int
}

func run(ctx context.Context, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	migRun, err := deps.Migrations.ActiveRun(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveRun) {
			fmt.Println("No active migration run; use 'gomigrate migrate' to start one.")
			return nil
		}
		return err
	}

	resumable := deps.Migrations.Resumable(migRun)
	if len(resumable) == 0 {
		fmt.Println("Nothing to resume: every domain is completed or transfer-initiated.")
		return nil
	}

	if err := deps.BuildProviders(ctx); err != nil {
		return err
	}

	fmt.Printf("Resuming %d domain(s) from run %s\n", len(resumable), migRun.ID)

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
			MigrateDNS:     deps.Config.Migration.MigrateDNS && !opts.skipDNS,
			ProxiedDefault: opts.proxied || deps.Config.Migration.Proxied,
			Registrant:     registrant(deps),
		},
	})

	states := make([]*domain.DomainState, 0, len(resumable))
	for _, name := range resumable {
		states = append(states, migRun.Domains[name])
	}

	result := scheduler.New(eng, concurrency, deps.Logger).Run(ctx, states)
	common.PrintSummary(result)
	return nil
}

func registrant(deps *common.Deps) *domain.RegistrantContact {
	if !deps.Config.HasRegistrant() {
		return nil
	}
	return deps.Config.Registrant
}

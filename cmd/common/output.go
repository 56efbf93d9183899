package common

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/gomigrate/internal/domain"
	"github.com/jonesrussell/gomigrate/internal/engine"
	"github.com/jonesrussell/gomigrate/internal/scheduler"
)

// Progress returns an engine observer that prints one line per pipeline
// step. It only formats and writes; it never touches engine state.
func Progress() engine.ObserverFunc {
	return func(domainName, step string, status domain.MigrationStatus) {
		fmt.Printf("  %-30s %s [%s]\n", domainName, step, status)
	}
}

// PrintRunTable renders the per-domain state of a run.
func PrintRunTable(run *domain.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Domain", "Status", "Zone", "Updated", "Error"})

	names := make([]string, 0, len(run.Domains))
	for name := range run.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := run.Domains[name]
		t.AppendRow(table.Row{
			state.Domain,
			state.Status,
			state.ZoneID,
			state.UpdatedAt.Format("2006-01-02 15:04:05"),
			state.LastError,
		})
	}

	t.Render()
}

// PrintSummary prints the aggregate outcome of a batch.
func PrintSummary(result *scheduler.Result) {
	fmt.Printf("\n%d domain(s) succeeded, %d failed\n", result.Succeeded(), result.Failed())

	names := make([]string, 0, len(result.Outcomes))
	for name, err := range result.Outcomes {
		if err != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  %s: %v\n", name, result.Outcomes[name])
	}
}

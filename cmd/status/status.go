// Package status implements the status command: a table of the active
// run's per-domain migration state.
package status

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
	"github.com/jonesrussell/gomigrate/internal/store"
)

// Command returns the status command.
func Command() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the active migration run",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()

			run, err := deps.Migrations.ActiveRun(ctx)
			if runID != "" {
				run, err = deps.Migrations.GetRun(ctx, runID)
			}
			if err != nil {
				if errors.Is(err, store.ErrNoActiveRun) {
					fmt.Println("No active migration run.")
					return nil
				}
				return err
			}

			fmt.Printf("Run %s (started %s)\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
			common.PrintRunTable(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "show a specific run instead of the active one")

	return cmd
}

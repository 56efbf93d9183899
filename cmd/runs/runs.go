// Package runs implements the runs command group: listing and clearing
// persisted migration runs.
package runs

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
)

// Command returns the runs command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage persisted migration runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(clearCommand())

	return cmd
}

// listCommand lists all runs, most recent first.
func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all migration runs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			runs, err := deps.Migrations.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No migration runs.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Run", "Started", "Active", "Domains", "Done"})

			for _, run := range runs {
				done := 0
				for _, state := range run.Domains {
					if state.Status.Durable() {
						done++
					}
				}
				t.AppendRow(table.Row{
					run.ID,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Active,
					len(run.Domains),
					done,
				})
			}

			t.Render()
			return nil
		},
	}
}

// clearCommand deletes every run and all per-domain state.
func clearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all persisted migration state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Println("Refusing to clear without --yes.")
				return nil
			}

			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Migrations.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cleared all migration runs.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")

	return cmd
}

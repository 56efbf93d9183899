// Package cmd implements the command-line interface for gomigrate.
// It provides the root command and subcommands for managing domain
// migrations between providers.
package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
	"github.com/jonesrussell/gomigrate/cmd/migrate"
	"github.com/jonesrussell/gomigrate/cmd/resume"
	"github.com/jonesrussell/gomigrate/cmd/runs"
	"github.com/jonesrussell/gomigrate/cmd/status"
	"github.com/jonesrussell/gomigrate/cmd/verify"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// rootCmd represents the root command for the gomigrate CLI.
	rootCmd = &cobra.Command{
		Use:   "gomigrate",
		Short: "Migrate domains between registrars",
		Long:  `A batch migration tool that moves domains from one registrar/DNS provider to another.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ~/.gomigrate/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	common.Bind(&cfgFile, &debug)

	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(resume.Command())
	rootCmd.AddCommand(status.Command())
	rootCmd.AddCommand(runs.Command())
	rootCmd.AddCommand(verify.Command())
}

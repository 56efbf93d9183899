// Package verify implements the verify command: credential checks
// against both providers, with optional persistence.
package verify

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomigrate/cmd/common"
	"github.com/jonesrussell/gomigrate/internal/cloudflare"
	"github.com/jonesrussell/gomigrate/internal/godaddy"
	"github.com/jonesrussell/gomigrate/internal/store"
)

// Command returns the verify command.
func Command() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify provider credentials",
		Long: `Checks the configured credentials against both provider APIs. With
--save, working credentials are persisted so later commands can run
without environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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
			fmt.Println("Source credentials OK.")

			if err := deps.Dest.Verify(ctx); err != nil {
				return fmt.Errorf("destination credentials rejected: %w", err)
			}
			fmt.Println("Destination credentials OK.")

			if !save {
				return nil
			}

			if err := deps.Credentials.Save(ctx, godaddy.ProviderName, store.Credentials{
				APIKey:    deps.Config.Source.APIKey,
				APISecret: deps.Config.Source.APISecret,
			}); err != nil {
				return err
			}
			if err := deps.Credentials.Save(ctx, cloudflare.ProviderName, store.Credentials{
				APIToken:  deps.Config.Dest.APIToken,
				AccountID: deps.Config.Dest.AccountID,
			}); err != nil {
				return err
			}
			fmt.Println("Credentials saved.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "persist the verified credentials")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/core/store"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the record cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired records from the libsql record cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := mustLoadConfig(ctx)
		if cfg.Store.Driver != store.DriverLibsql {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Nothing to purge: %s cache expires entries itself\n", cfg.Store.Driver)
			return err
		}

		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		removed, err := db.PurgeExpired(ctx)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Record cache purged",
			zap.Int64("removed", removed),
			zap.String("database", storeLocation(cfg)))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired records from %s\n", removed, storeLocation(cfg))
		return err
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

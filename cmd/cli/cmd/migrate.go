package cmd

import (
	"github.com/spf13/cobra"

	"interpreting-pricing/db/postgres"
	"interpreting-pricing/internal/config"
)

// migrateCmd applies the rate store schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if err := requireDSN(cfg); err != nil {
			return err
		}
		return postgres.Migrate(cfg.Postgres.DSN)
	},
}

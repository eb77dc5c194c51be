package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema, including the confirmed stay exclusion constraint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(load)
			if err != nil {
				return err
			}
			p, err := openPlatform(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.Migrate(cmd.Context()); err != nil {
				logger.Error("migration failed", "error", err)
				return err
			}
			logger.Info("schema up to date", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

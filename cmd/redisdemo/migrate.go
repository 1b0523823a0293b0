package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/go-redisdemo/v1/adapter"
	"github.com/mirkobrombin/go-redisdemo/v1/config"
	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

func newMigrateCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = closeDatabase(db) }()
			store := adapter.NewGormUserStore(db, adapter.WithGormTimeout(cfg.Database.Timeout))
			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logging.Info().Msg("schema up to date")
			return nil
		},
	}
}

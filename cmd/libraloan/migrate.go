// cmd/libraloan/migrate.go
package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"libraloan/internal/config"
)

func newMigrateCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			_, db, closeStore, err := openBackend(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore()
			if db == nil {
				return errors.New("migrate needs a postgres or mysql database")
			}

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			slog.Info("schema up to date", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

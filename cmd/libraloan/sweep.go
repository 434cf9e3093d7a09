// cmd/libraloan/sweep.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/config"
)

// newSweepCmd marks overdue loans once, for running from cron.
func newSweepCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark loans past their expected return date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			store, _, closeStore, err := openBackend(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore()

			sweeper := circulation.NewSweeper(store, clock.System{Location: cfg.Location()})
			n, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d loans marked overdue\n", n)
			return nil
		},
	}
}

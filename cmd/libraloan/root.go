// cmd/libraloan/root.go
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"libraloan/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "libraloan",
		Short: "Library loan engine",
		Long: `libraloan tracks books, borrowers and loans for a small library.

It enforces copy availability, computes late fees on return and keeps an
audit journal of every loan mutation.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("LIBRALOAN_CONFIG"), "Path to a YAML config file")

	load := func() (config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return cfg, nil
	}

	cmd.AddCommand(newServeCmd(load))
	cmd.AddCommand(newMigrateCmd(load))
	cmd.AddCommand(newSweepCmd(load))

	return cmd
}

// cmd/libraloan/serve.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/config"
	"libraloan/internal/httpapi"
	"libraloan/internal/membership"
	"libraloan/internal/reporting"
	"libraloan/internal/session"
	"libraloan/internal/telemetry"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		port    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # In-memory store on the default port
  libraloan serve

  # Postgres, creating tables first
  DATABASE_DRIVER=postgres DATABASE_URL=postgres://... libraloan serve --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.HTTP.Port = port
			}
			if cfg.InsecureSecret() {
				slog.Warn("SESSION_SECRET is not set, using the development secret")
			}

			ctx := cmd.Context()

			shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTelemetry(shutdownCtx); err != nil {
					slog.Error("telemetry shutdown failed", "err", err)
				}
			}()

			store, db, closeStore, err := openBackend(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore()

			var health httpapi.Pinger
			if db != nil {
				if migrate {
					if err := db.Migrate(ctx); err != nil {
						return err
					}
				}
				health = db
			}

			c := clock.System{Location: cfg.Location()}
			policy := circulation.Policy{
				Fees:            circulation.FeeSchedule{RatePerDay: cfg.FeePerDay()},
				DefaultLoanDays: cfg.Loans.DefaultLoanDays,
			}
			perMinute := cfg.Session.LoginRatePerMinute
			limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)

			router := httpapi.NewRouter(httpapi.Deps{
				Catalog:    catalog.NewService(store, c),
				Membership: membership.NewService(store, c, membership.WithLoginLimiter(limiter)),
				Loans:      circulation.NewService(store, c, policy),
				Sweeper:    circulation.NewSweeper(store, c),
				Reports:    reporting.NewService(store, c, policy.Fees),
				Sessions:   session.NewIssuer([]byte(cfg.Session.Secret), cfg.Session.TTL, c),
				Clock:      c,
				Health:     health,
			})

			addr := ":" + cfg.HTTP.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("libraloan listening", "addr", addr, "driver", cfg.Database.Driver)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				slog.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("server shutdown failed", "err", err)
					return err
				}
				slog.Info("server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create tables before serving")

	return cmd
}

// cmd/libraloan/backend.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/config"
	"libraloan/internal/membership"
	"libraloan/internal/reporting"
	"libraloan/internal/store/memstore"
	"libraloan/internal/store/sqlstore"
)

// backend is everything the services need from storage.
type backend interface {
	catalog.Repository
	membership.Repository
	circulation.Store
	reporting.Source
}

// openBackend returns the configured store. The returned close func is never nil.
func openBackend(ctx context.Context, cfg config.DatabaseConfig) (backend, *sqlstore.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		slog.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil, func() {}, nil
	case sqlstore.DriverPostgres, sqlstore.DriverMySQL:
		store, err := sqlstore.Open(ctx, cfg.Driver, cfg.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close database", "err", err)
			}
		}
		return store, store, closeFn, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// internal/store/sqlstore/sqlstore.go
//
// Package sqlstore persists the library in PostgreSQL or MySQL.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/journal"
	"libraloan/internal/membership"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const (
	defaultMaxOpenConnections = 50
	defaultMaxIdleConnections = 10
	defaultMaxConnLifetime    = time.Hour
	defaultMaxConnIdleTime    = time.Minute * 5
)

var (
	_ catalog.Repository    = (*Store)(nil)
	_ membership.Repository = (*Store)(nil)
	_ circulation.Store     = (*Store)(nil)
	_ journal.Reader        = (*Store)(nil)
)

// Store implements every repository on top of a *sqlx.DB.
type Store struct {
	db      *sqlx.DB
	builder goqu.DialectWrapper
}

// Open connects to the database, configures the pool and pings it.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres:
	case DriverMySQL:
		normalized, err := normalizeMySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = normalized
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db), nil
}

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		builder: goqu.Dialect(db.DriverName()),
	}
}

// normalizeMySQLDSN makes the driver return DATE and DATETIME columns as
// time.Time in UTC and report matched rather than changed rows.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// dateArg renders a calendar date for a DATE column.
func dateArg(t time.Time) string {
	return clock.DateOf(t).Format(clock.DateLayout)
}

func nullDateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dateArg(*t)
}

// normalizeDate maps a scanned DATE to midnight UTC whatever location the
// driver attached to it.
func normalizeDate(t time.Time) time.Time {
	return clock.DateOf(t)
}

// internal/store/sqlstore/schema.go
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author_id UUID NULL,
		publisher_id UUID NULL,
		genre_id UUID NULL,
		isbn VARCHAR(20) NOT NULL DEFAULT '',
		publication_year INTEGER NOT NULL DEFAULT 0,
		available_copies INTEGER NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT books_available_copies_check CHECK (available_copies >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS books_title_idx ON books (title)`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		enrolled_on DATE NOT NULL,
		fine_balance NUMERIC(10, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT borrowers_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		borrower_id UUID PRIMARY KEY REFERENCES borrowers (id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		borrower_id UUID NOT NULL REFERENCES borrowers (id),
		book_id UUID NOT NULL REFERENCES books (id),
		loan_date DATE NOT NULL,
		expected_return_date DATE NOT NULL,
		actual_return_date DATE NULL,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT loans_status_check CHECK (status IN ('pending', 'overdue', 'returned')),
		CONSTRAINT loans_date_range_check CHECK (expected_return_date >= loan_date)
	)`,
	`CREATE INDEX IF NOT EXISTS loans_status_due_idx ON loans (status, expected_return_date)`,
	`CREATE INDEX IF NOT EXISTS loans_borrower_idx ON loans (borrower_id, loan_date)`,
	`CREATE INDEX IF NOT EXISTS loans_book_idx ON loans (book_id)`,
	`CREATE TABLE IF NOT EXISTS journal (
		id BIGSERIAL PRIMARY KEY,
		operation VARCHAR(32) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id UUID NOT NULL,
		payload JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS journal_recorded_at_idx ON journal (recorded_at)`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id CHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		author_id CHAR(36) NULL,
		publisher_id CHAR(36) NULL,
		genre_id CHAR(36) NULL,
		isbn VARCHAR(20) NOT NULL DEFAULT '',
		publication_year INT NOT NULL DEFAULT 0,
		available_copies INT NOT NULL DEFAULT 0,
		summary TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX books_title_idx (title),
		CONSTRAINT books_available_copies_check CHECK (available_copies >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS borrowers (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		enrolled_on DATE NOT NULL,
		fine_balance DECIMAL(10, 2) NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY borrowers_email_key (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS credentials (
		borrower_id CHAR(36) PRIMARY KEY,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		CONSTRAINT credentials_borrower_fk FOREIGN KEY (borrower_id) REFERENCES borrowers (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS loans (
		id CHAR(36) PRIMARY KEY,
		borrower_id CHAR(36) NOT NULL,
		book_id CHAR(36) NOT NULL,
		loan_date DATE NOT NULL,
		expected_return_date DATE NOT NULL,
		actual_return_date DATE NULL,
		status VARCHAR(16) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX loans_status_due_idx (status, expected_return_date),
		INDEX loans_borrower_idx (borrower_id, loan_date),
		CONSTRAINT loans_borrower_fk FOREIGN KEY (borrower_id) REFERENCES borrowers (id),
		CONSTRAINT loans_book_fk FOREIGN KEY (book_id) REFERENCES books (id),
		CONSTRAINT loans_status_check CHECK (status IN ('pending', 'overdue', 'returned')),
		CONSTRAINT loans_date_range_check CHECK (expected_return_date >= loan_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS journal (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		operation VARCHAR(32) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id CHAR(36) NOT NULL,
		payload JSON NOT NULL,
		recorded_at DATETIME(6) NOT NULL,
		INDEX journal_recorded_at_idx (recorded_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables and indexes. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if s.db.DriverName() == DriverMySQL {
		statements = mysqlSchema
	}

	for i, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	slog.Info("schema migrated", "driver", s.db.DriverName(), "statements", len(statements))
	return nil
}

// internal/reporting/service.go
package reporting

import (
	"context"

	"github.com/google/uuid"

	"libraloan/internal/circulation"
	"libraloan/internal/journal"
	"libraloan/internal/membership"
)

// Service defines the read-only reporting operations.
type Service interface {
	BorrowerStatistics(ctx context.Context, borrowerID uuid.UUID) (*Stats, error)
	BorrowerHistory(ctx context.Context, borrowerID uuid.UUID, limit int) ([]*LoanLine, error)
	OverdueLoans(ctx context.Context) ([]*LoanLine, error)
	Loans(ctx context.Context) ([]*circulation.LoanView, error)
	AuditLog(ctx context.Context, filter journal.Filter) ([]journal.Entry, error)
}

// Source is the storage the reports read from.
type Source interface {
	GetBorrower(ctx context.Context, id uuid.UUID) (*membership.Borrower, error)
	ListLoans(ctx context.Context, filter circulation.Filter) ([]*circulation.LoanView, error)
	journal.Reader
}

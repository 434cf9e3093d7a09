// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraloan/internal/journal"
)

// Service defines the interface for the loan engine.
type Service interface {
	CreateLoan(ctx context.Context, req CreateLoanRequest) (*CreateLoanResult, error)
	ReturnLoan(ctx context.Context, id uuid.UUID, actualReturnDate time.Time) (*ReturnResult, error)
	CancelLoan(ctx context.Context, id uuid.UUID) error
	GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error)
}

// Store is the persistence the engine runs against. Every engine write goes
// through WithinTx; a non-nil error from fn rolls back every change fn made.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error)
	ListLoans(ctx context.Context, filter Filter) ([]*LoanView, error)
}

// Tx is the set of writes available inside one transaction. Lock* methods
// hold the row until the transaction ends.
type Tx interface {
	BorrowerFineBalance(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error)
	AddFine(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error
	LockBookCopies(ctx context.Context, bookID uuid.UUID) (int, error)
	AdjustBookCopies(ctx context.Context, bookID uuid.UUID, delta int, at time.Time) error
	InsertLoan(ctx context.Context, loan *Loan) error
	LockLoan(ctx context.Context, id uuid.UUID) (*Loan, error)
	UpdateLoan(ctx context.Context, loan *Loan) error
	DeleteLoan(ctx context.Context, id uuid.UUID) error
	AppendEntry(ctx context.Context, entry journal.Entry) error
}

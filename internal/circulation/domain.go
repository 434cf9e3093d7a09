// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusPending  Status = "pending"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
)

// Active reports whether the loan still holds a copy of its book.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusOverdue
}

// Loan represents a book lent to a borrower. Dates are calendar dates at midnight UTC.
type Loan struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	BorrowerID         uuid.UUID  `json:"borrower_id" db:"borrower_id"`
	BookID             uuid.UUID  `json:"book_id" db:"book_id"`
	LoanDate           time.Time  `json:"loan_date" db:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date" db:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Status             Status     `json:"status" db:"status"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// LoanView is a loan joined with the names a listing displays.
type LoanView struct {
	Loan
	BorrowerName string `json:"borrower_name" db:"borrower_name"`
	BookTitle    string `json:"book_title" db:"book_title"`
}

// CreateLoanRequest carries the fields of a new loan. A nil
// ExpectedReturnDate selects the default loan period.
type CreateLoanRequest struct {
	BorrowerID         uuid.UUID
	BookID             uuid.UUID
	LoanDate           time.Time
	ExpectedReturnDate *time.Time
}

// CreateLoanResult is the created loan plus an advisory with the due date
// and any outstanding fine.
type CreateLoanResult struct {
	Loan     *Loan  `json:"loan"`
	Advisory string `json:"advisory"`
}

// ReturnResult carries the fine computed when a loan is returned.
type ReturnResult struct {
	Loan     *Loan           `json:"loan"`
	DaysLate int             `json:"days_late"`
	Fine     decimal.Decimal `json:"fine"`
	Advisory string          `json:"advisory"`
}

// Order selects the sort order of a loan listing.
type Order int

const (
	// NewestFirst sorts by loan date, most recent first.
	NewestFirst Order = iota
	// DueSoonest sorts by expected return date, earliest first.
	DueSoonest
)

// Filter selects loans for listings. Zero values are ignored.
type Filter struct {
	BorrowerID uuid.NullUUID
	Statuses   []Status
	Order      Order
	Limit      int
}

// Matches reports whether l passes the borrower and status conditions.
func (f Filter) Matches(l *Loan) bool {
	if f.BorrowerID.Valid && l.BorrowerID != f.BorrowerID.UUID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if l.Status == s {
			return true
		}
	}
	return false
}

// Journal payloads.

type loanCreatedPayload struct {
	BorrowerID         uuid.UUID `json:"borrower_id"`
	BookID             uuid.UUID `json:"book_id"`
	LoanDate           string    `json:"loan_date"`
	ExpectedReturnDate string    `json:"expected_return_date"`
}

type loanReturnedPayload struct {
	BorrowerID       uuid.UUID `json:"borrower_id"`
	BookID           uuid.UUID `json:"book_id"`
	ActualReturnDate string    `json:"actual_return_date"`
	PreviousStatus   Status    `json:"previous_status"`
	DaysLate         int       `json:"days_late"`
	Fine             string    `json:"fine"`
}

type loanCancelledPayload struct {
	BorrowerID uuid.UUID `json:"borrower_id"`
	BookID     uuid.UUID `json:"book_id"`
	Status     Status    `json:"status"`
	Restocked  bool      `json:"restocked"`
}

// internal/reporting/domain.go
package reporting

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraloan/internal/circulation"
)

// DefaultHistoryLimit is the number of loans a history shows by default.
const DefaultHistoryLimit = 10

// Stats summarises a borrower's loans and fines. Money values are rounded to
// cents; LateRate is a percentage rounded to two decimals.
type Stats struct {
	BorrowerID      uuid.UUID       `json:"borrower_id"`
	BorrowerName    string          `json:"borrower_name"`
	TotalLoans      int             `json:"total_loans"`
	OverdueCount    int             `json:"overdue_count"`
	StoredFine      decimal.Decimal `json:"stored_fine"`
	OutstandingFine decimal.Decimal `json:"outstanding_fine"`
	TotalFine       decimal.Decimal `json:"total_fine"`
	LateRate        decimal.Decimal `json:"late_rate"`
}

// LoanLine is a listed loan with its lateness evaluated at the return date,
// or at today for loans still out.
type LoanLine struct {
	circulation.LoanView
	DaysLate int             `json:"days_late"`
	Fine     decimal.Decimal `json:"fine"`
}

// internal/store/memstore/tx.go
package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraloan/internal/apperrors"
	"libraloan/internal/circulation"
	"libraloan/internal/journal"
)

// tx mutates a working copy owned by WithinTx; the store mutex is held for
// its whole lifetime.
type tx struct {
	st *state
}

func (t *tx) BorrowerFineBalance(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	b, ok := t.st.borrowers[borrowerID]
	if !ok {
		return decimal.Zero, apperrors.NotFound(apperrors.EntityBorrower, borrowerID)
	}
	return b.FineBalance, nil
}

func (t *tx) AddFine(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error {
	b, ok := t.st.borrowers[borrowerID]
	if !ok {
		return apperrors.NotFound(apperrors.EntityBorrower, borrowerID)
	}
	b.FineBalance = b.FineBalance.Add(amount)
	t.st.borrowers[borrowerID] = b
	return nil
}

func (t *tx) LockBookCopies(ctx context.Context, bookID uuid.UUID) (int, error) {
	b, ok := t.st.books[bookID]
	if !ok {
		return 0, apperrors.NotFound(apperrors.EntityBook, bookID)
	}
	return b.AvailableCopies, nil
}

func (t *tx) AdjustBookCopies(ctx context.Context, bookID uuid.UUID, delta int, at time.Time) error {
	b, ok := t.st.books[bookID]
	if !ok {
		return apperrors.NotFound(apperrors.EntityBook, bookID)
	}
	if b.AvailableCopies+delta < 0 {
		return apperrors.Constraint(apperrors.NegativeCopyCount,
			fmt.Sprintf("book %s has %d copies, cannot adjust by %d", bookID, b.AvailableCopies, delta), nil)
	}
	b.AvailableCopies += delta
	b.UpdatedAt = at
	t.st.books[bookID] = b
	return nil
}

func (t *tx) InsertLoan(ctx context.Context, loan *circulation.Loan) error {
	if _, ok := t.st.borrowers[loan.BorrowerID]; !ok {
		return apperrors.NotFound(apperrors.EntityBorrower, loan.BorrowerID)
	}
	if _, ok := t.st.books[loan.BookID]; !ok {
		return apperrors.NotFound(apperrors.EntityBook, loan.BookID)
	}
	if _, exists := t.st.loans[loan.ID]; exists {
		return apperrors.Constraint(apperrors.Duplicate, "loan "+loan.ID.String()+" already exists", nil)
	}
	t.st.loans[loan.ID] = *loan
	return nil
}

func (t *tx) LockLoan(ctx context.Context, id uuid.UUID) (*circulation.Loan, error) {
	l, ok := t.st.loans[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityLoan, id)
	}
	return &l, nil
}

func (t *tx) UpdateLoan(ctx context.Context, loan *circulation.Loan) error {
	if _, ok := t.st.loans[loan.ID]; !ok {
		return apperrors.NotFound(apperrors.EntityLoan, loan.ID)
	}
	t.st.loans[loan.ID] = *loan
	return nil
}

func (t *tx) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.st.loans[id]; !ok {
		return apperrors.NotFound(apperrors.EntityLoan, id)
	}
	delete(t.st.loans, id)
	return nil
}

func (t *tx) AppendEntry(ctx context.Context, entry journal.Entry) error {
	t.st.lastEntryID++
	entry.ID = t.st.lastEntryID
	t.st.entries = append(t.st.entries, entry)
	return nil
}

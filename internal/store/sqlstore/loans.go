// internal/store/sqlstore/loans.go
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"libraloan/internal/apperrors"
	"libraloan/internal/circulation"
	"libraloan/internal/journal"
)

const loanColumns = `id, borrower_id, book_id, loan_date, expected_return_date,
	actual_return_date, status, created_at`

func normalizeLoan(l *circulation.Loan) {
	l.LoanDate = normalizeDate(l.LoanDate)
	l.ExpectedReturnDate = normalizeDate(l.ExpectedReturnDate)
	if l.ActualReturnDate != nil {
		d := normalizeDate(*l.ActualReturnDate)
		l.ActualReturnDate = &d
	}
}

// WithinTx runs fn in one database transaction. The transaction commits only
// when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &loanTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}
	return nil
}

// MarkOverdue is a single UPDATE, so concurrent sweeps converge on the same rows.
func (s *Store) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	query := s.db.Rebind(`
		UPDATE loans SET status = ?
		WHERE status = ? AND expected_return_date < ?
	`)
	res, err := s.db.ExecContext(ctx, query, circulation.StatusOverdue, circulation.StatusPending, dateArg(today))
	if err != nil {
		return 0, classify(err, "mark overdue loans")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (*circulation.Loan, error) {
	return getLoan(ctx, s.db, id, false)
}

// ListLoans joins each loan with its borrower's name and the book title.
func (s *Store) ListLoans(ctx context.Context, filter circulation.Filter) ([]*circulation.LoanView, error) {
	ds := s.builder.From(goqu.T("loans").As("l")).
		Join(goqu.T("borrowers").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.borrower_id")))).
		Join(goqu.T("books").As("k"), goqu.On(goqu.I("k.id").Eq(goqu.I("l.book_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.borrower_id"), goqu.I("l.book_id"),
			goqu.I("l.loan_date"), goqu.I("l.expected_return_date"), goqu.I("l.actual_return_date"),
			goqu.I("l.status"), goqu.I("l.created_at"),
			goqu.I("b.name").As("borrower_name"),
			goqu.I("k.title").As("book_title"),
		).
		Prepared(true)

	var where []exp.Expression
	if filter.BorrowerID.Valid {
		where = append(where, goqu.I("l.borrower_id").Eq(filter.BorrowerID.UUID.String()))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]any, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, goqu.I("l.status").In(statuses...))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}

	switch filter.Order {
	case circulation.DueSoonest:
		ds = ds.Order(goqu.I("l.expected_return_date").Asc(), goqu.I("l.loan_date").Asc())
	default:
		ds = ds.Order(goqu.I("l.loan_date").Desc(), goqu.I("l.created_at").Desc())
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, classify(err, "build loan listing")
	}

	var views []*circulation.LoanView
	if err := s.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, classify(err, "list loans")
	}
	for _, v := range views {
		normalizeLoan(&v.Loan)
	}
	return views, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getLoan(ctx context.Context, q queryer, id uuid.UUID, lock bool) (*circulation.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}

	var loan circulation.Loan
	if err := sqlx.GetContext(ctx, q, &loan, q.Rebind(query), id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(apperrors.EntityLoan, id)
		}
		return nil, classify(err, "get loan")
	}
	normalizeLoan(&loan)
	return &loan, nil
}

// loanTx implements circulation.Tx. Row locks are held until the enclosing
// WithinTx commits or rolls back.
type loanTx struct {
	tx *sqlx.Tx
}

func (t *loanTx) BorrowerFineBalance(ctx context.Context, borrowerID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := t.tx.Rebind(`SELECT fine_balance FROM borrowers WHERE id = ?`)
	if err := t.tx.GetContext(ctx, &balance, query, borrowerID); err != nil {
		if isNoRows(err) {
			return decimal.Zero, apperrors.NotFound(apperrors.EntityBorrower, borrowerID)
		}
		return decimal.Zero, classify(err, "get fine balance")
	}
	return balance, nil
}

func (t *loanTx) AddFine(ctx context.Context, borrowerID uuid.UUID, amount decimal.Decimal) error {
	query := t.tx.Rebind(`UPDATE borrowers SET fine_balance = fine_balance + ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, query, amount, borrowerID)
	if err != nil {
		return classify(err, "add fine")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBorrower, borrowerID))
}

func (t *loanTx) LockBookCopies(ctx context.Context, bookID uuid.UUID) (int, error) {
	var available int
	query := t.tx.Rebind(`SELECT available_copies FROM books WHERE id = ? FOR UPDATE`)
	if err := t.tx.GetContext(ctx, &available, query, bookID); err != nil {
		if isNoRows(err) {
			return 0, apperrors.NotFound(apperrors.EntityBook, bookID)
		}
		return 0, classify(err, "lock book")
	}
	return available, nil
}

// AdjustBookCopies relies on the CHECK constraint to reject a negative result.
func (t *loanTx) AdjustBookCopies(ctx context.Context, bookID uuid.UUID, delta int, at time.Time) error {
	query := t.tx.Rebind(`
		UPDATE books SET available_copies = available_copies + ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := t.tx.ExecContext(ctx, query, delta, at, bookID)
	if err != nil {
		return classify(err, "adjust available copies")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBook, bookID))
}

func (t *loanTx) InsertLoan(ctx context.Context, loan *circulation.Loan) error {
	query := t.tx.Rebind(`
		INSERT INTO loans (` + loanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := t.tx.ExecContext(ctx, query,
		loan.ID, loan.BorrowerID, loan.BookID,
		dateArg(loan.LoanDate), dateArg(loan.ExpectedReturnDate), nullDateArg(loan.ActualReturnDate),
		loan.Status, loan.CreatedAt,
	)
	return classify(err, "insert loan")
}

func (t *loanTx) LockLoan(ctx context.Context, id uuid.UUID) (*circulation.Loan, error) {
	return getLoan(ctx, t.tx, id, true)
}

func (t *loanTx) UpdateLoan(ctx context.Context, loan *circulation.Loan) error {
	query := t.tx.Rebind(`
		UPDATE loans SET status = ?, expected_return_date = ?, actual_return_date = ?
		WHERE id = ?
	`)
	res, err := t.tx.ExecContext(ctx, query,
		loan.Status, dateArg(loan.ExpectedReturnDate), nullDateArg(loan.ActualReturnDate), loan.ID,
	)
	if err != nil {
		return classify(err, "update loan")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityLoan, loan.ID))
}

func (t *loanTx) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM loans WHERE id = ?`), id)
	if err != nil {
		return classify(err, "delete loan")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityLoan, id))
}

func (t *loanTx) AppendEntry(ctx context.Context, entry journal.Entry) error {
	query := t.tx.Rebind(`
		INSERT INTO journal (operation, entity_type, entity_id, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := t.tx.ExecContext(ctx, query,
		string(entry.Operation), entry.EntityType, entry.EntityID, string(entry.Payload), entry.RecordedAt,
	)
	return classify(err, "append journal entry")
}

package reporting_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libraloan/internal/apperrors"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/journal"
	"libraloan/internal/membership"
	"libraloan/internal/reporting"
	"libraloan/internal/store/memstore"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type env struct {
	store    *memstore.Store
	engine   circulation.Service
	sweeper  *circulation.Sweeper
	reports  reporting.Service
	borrower uuid.UUID
	book     uuid.UUID
}

func setup(t *testing.T, today time.Time) *env {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	c := clock.Fixed(today)
	policy := circulation.DefaultPolicy()

	borrower := &membership.Borrower{ID: uuid.New(), Name: "Joana", Email: "joana@example.com", FineBalance: decimal.RequireFromString("5")}
	require.NoError(t, store.InsertBorrower(ctx, borrower, nil))
	book := &catalog.Book{ID: uuid.New(), Title: "Iracema", AvailableCopies: 20}
	require.NoError(t, store.InsertBook(ctx, book))

	return &env{
		store:    store,
		engine:   circulation.NewService(store, c, policy),
		sweeper:  circulation.NewSweeper(store, c),
		reports:  reporting.NewService(store, c, policy.Fees),
		borrower: borrower.ID,
		book:     book.ID,
	}
}

func (e *env) lend(t *testing.T, loanDate time.Time) uuid.UUID {
	t.Helper()
	res, err := e.engine.CreateLoan(context.Background(), circulation.CreateLoanRequest{
		BorrowerID: e.borrower,
		BookID:     e.book,
		LoanDate:   loanDate,
	})
	require.NoError(t, err)
	return res.Loan.ID
}

func TestBorrowerStatistics(t *testing.T) {
	e := setup(t, date(2024, 2, 1))
	ctx := context.Background()

	e.lend(t, date(2024, 1, 1))  // due 01-21, 11 days late on 02-01
	e.lend(t, date(2024, 1, 20)) // due 02-09, still pending
	returned := e.lend(t, date(2024, 1, 2))
	_, err := e.engine.ReturnLoan(ctx, returned, date(2024, 1, 24)) // 2 days late, 4.00
	require.NoError(t, err)

	_, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)

	stats, err := e.reports.BorrowerStatistics(ctx, e.borrower)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalLoans)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, "9.00", stats.StoredFine.StringFixed(2))
	assert.Equal(t, "22.00", stats.OutstandingFine.StringFixed(2))
	assert.Equal(t, "31.00", stats.TotalFine.StringFixed(2))
	assert.Equal(t, "33.33", stats.LateRate.StringFixed(2))
}

func TestBorrowerStatisticsWithoutLoans(t *testing.T) {
	e := setup(t, date(2024, 2, 1))

	stats, err := e.reports.BorrowerStatistics(context.Background(), e.borrower)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalLoans)
	assert.True(t, stats.LateRate.IsZero())
	assert.True(t, stats.OutstandingFine.IsZero())
}

func TestBorrowerStatisticsUnknownBorrower(t *testing.T) {
	e := setup(t, date(2024, 2, 1))

	_, err := e.reports.BorrowerStatistics(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBorrower))
}

func TestBorrowerHistory(t *testing.T) {
	e := setup(t, date(2024, 3, 1))
	ctx := context.Background()

	for day := 1; day <= 12; day++ {
		e.lend(t, date(2024, 1, day))
	}

	lines, err := e.reports.BorrowerHistory(ctx, e.borrower, 0)
	require.NoError(t, err)
	require.Len(t, lines, reporting.DefaultHistoryLimit)
	assert.Equal(t, date(2024, 1, 12), lines[0].LoanDate)

	// Loan of 01-12 is due 02-01 and still out on 03-01.
	assert.Equal(t, 29, lines[0].DaysLate)
	assert.Equal(t, "58.00", lines[0].Fine.StringFixed(2))

	_, err = e.engine.ReturnLoan(ctx, lines[0].ID, date(2024, 2, 3))
	require.NoError(t, err)

	lines, err = e.reports.BorrowerHistory(ctx, e.borrower, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 2, lines[0].DaysLate)
	assert.Equal(t, "4.00", lines[0].Fine.StringFixed(2))
}

func TestOverdueLoansOldestDueFirst(t *testing.T) {
	e := setup(t, date(2024, 3, 1))
	ctx := context.Background()

	later := e.lend(t, date(2024, 1, 10))
	earlier := e.lend(t, date(2024, 1, 5))
	e.lend(t, date(2024, 2, 25))

	_, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)

	lines, err := e.reports.OverdueLoans(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, earlier, lines[0].ID)
	assert.Equal(t, later, lines[1].ID)
	assert.Equal(t, "Joana", lines[0].BorrowerName)
	assert.Equal(t, "Iracema", lines[0].BookTitle)
	assert.Equal(t, 36, lines[0].DaysLate)
}

func TestLoansAndAuditLog(t *testing.T) {
	e := setup(t, date(2024, 3, 1))
	ctx := context.Background()

	first := e.lend(t, date(2024, 1, 10))
	e.lend(t, date(2024, 2, 10))
	require.NoError(t, e.engine.CancelLoan(ctx, first))

	loans, err := e.reports.Loans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)

	entries, err := e.reports.AuditLog(ctx, journal.Filter{Operation: journal.OpLoanCancelled})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first, entries[0].EntityID)
}

func TestLateRateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 500).Draw(t, "total")
		overdue := rapid.IntRange(0, total).Draw(t, "overdue")

		rate := reporting.LateRate(overdue, total)
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			t.Fatalf("rate %s out of range", rate)
		}
		if rate.Exponent() < -2 {
			t.Fatalf("rate %s has more than two decimals", rate)
		}
		if total == 0 && !rate.IsZero() {
			t.Fatalf("rate %s for zero loans", rate)
		}
	})
}

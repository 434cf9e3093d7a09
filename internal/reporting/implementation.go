// internal/reporting/implementation.go
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/journal"
)

var hundred = decimal.NewFromInt(100)

// service implements the Service interface.
type service struct {
	source Source
	clock  clock.Clock
	fees   circulation.FeeSchedule
	tracer trace.Tracer
}

// NewService creates a reporting service that prices lateness with fees.
func NewService(source Source, c clock.Clock, fees circulation.FeeSchedule) Service {
	return &service{
		source: source,
		clock:  c,
		fees:   fees,
		tracer: otel.Tracer("libraloan/reporting"),
	}
}

// BorrowerStatistics aggregates the borrower's loans. Outstanding fines are
// accrued live for overdue loans and are not yet part of the stored balance.
func (s *service) BorrowerStatistics(ctx context.Context, borrowerID uuid.UUID) (*Stats, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.borrower_statistics",
		trace.WithAttributes(attribute.String("borrower.id", borrowerID.String())),
	)
	defer span.End()

	borrower, err := s.source.GetBorrower(ctx, borrowerID)
	if err != nil {
		return nil, err
	}

	loans, err := s.source.ListLoans(ctx, circulation.Filter{
		BorrowerID: uuid.NullUUID{UUID: borrowerID, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	today := clock.Today(s.clock)
	stats := &Stats{
		BorrowerID:      borrower.ID,
		BorrowerName:    borrower.Name,
		TotalLoans:      len(loans),
		StoredFine:      borrower.FineBalance.Round(2),
		OutstandingFine: decimal.Zero,
		LateRate:        decimal.Zero,
	}
	for _, l := range loans {
		if l.Status != circulation.StatusOverdue {
			continue
		}
		stats.OverdueCount++
		if today.After(l.ExpectedReturnDate) {
			_, fine := s.fees.Accrued(l.ExpectedReturnDate, today)
			stats.OutstandingFine = stats.OutstandingFine.Add(fine)
		}
	}
	stats.TotalFine = stats.StoredFine.Add(stats.OutstandingFine)
	stats.LateRate = LateRate(stats.OverdueCount, stats.TotalLoans)

	span.SetAttributes(
		attribute.Int("loans.total", stats.TotalLoans),
		attribute.Int("loans.overdue", stats.OverdueCount),
	)
	return stats, nil
}

// LateRate returns overdue/total as a percentage rounded to two decimals,
// or zero when there are no loans.
func LateRate(overdue, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(overdue)).Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}

// BorrowerHistory lists the borrower's most recent loans, newest first.
func (s *service) BorrowerHistory(ctx context.Context, borrowerID uuid.UUID, limit int) ([]*LoanLine, error) {
	if _, err := s.source.GetBorrower(ctx, borrowerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	loans, err := s.source.ListLoans(ctx, circulation.Filter{
		BorrowerID: uuid.NullUUID{UUID: borrowerID, Valid: true},
		Order:      circulation.NewestFirst,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return s.lines(loans), nil
}

// OverdueLoans lists every overdue loan, oldest due date first.
func (s *service) OverdueLoans(ctx context.Context) ([]*LoanLine, error) {
	loans, err := s.source.ListLoans(ctx, circulation.Filter{
		Statuses: []circulation.Status{circulation.StatusOverdue},
		Order:    circulation.DueSoonest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return s.lines(loans), nil
}

// Loans lists every loan, newest loan date first.
func (s *service) Loans(ctx context.Context) ([]*circulation.LoanView, error) {
	loans, err := s.source.ListLoans(ctx, circulation.Filter{Order: circulation.NewestFirst})
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// AuditLog lists journal entries newest first.
func (s *service) AuditLog(ctx context.Context, filter journal.Filter) ([]journal.Entry, error) {
	entries, err := s.source.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

func (s *service) lines(loans []*circulation.LoanView) []*LoanLine {
	today := clock.Today(s.clock)
	out := make([]*LoanLine, 0, len(loans))
	for _, l := range loans {
		out = append(out, s.line(l, today))
	}
	return out
}

func (s *service) line(l *circulation.LoanView, today time.Time) *LoanLine {
	at := today
	if l.ActualReturnDate != nil {
		at = *l.ActualReturnDate
	}
	days, fine := s.fees.Accrued(l.ExpectedReturnDate, at)
	return &LoanLine{LoanView: *l, DaysLate: days, Fine: fine}
}

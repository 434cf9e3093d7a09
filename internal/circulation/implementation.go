// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libraloan/internal/apperrors"
	"libraloan/internal/clock"
	"libraloan/internal/journal"
)

const entityLoan = "loan"

// service implements the Service interface.
type service struct {
	store  Store
	clock  clock.Clock
	policy Policy
	tracer trace.Tracer

	loansCreated   metric.Int64Counter
	loansReturned  metric.Int64Counter
	loansCancelled metric.Int64Counter
	finesAssessed  metric.Float64Counter
}

// NewService creates a new loan engine.
func NewService(store Store, c clock.Clock, policy Policy) Service {
	meter := otel.Meter("libraloan/circulation")
	s := &service{
		store:  store,
		clock:  c,
		policy: policy,
		tracer: otel.Tracer("libraloan/circulation"),
	}

	var err error
	if s.loansCreated, err = meter.Int64Counter("loans.created"); err != nil {
		otel.Handle(err)
	}
	if s.loansReturned, err = meter.Int64Counter("loans.returned"); err != nil {
		otel.Handle(err)
	}
	if s.loansCancelled, err = meter.Int64Counter("loans.cancelled"); err != nil {
		otel.Handle(err)
	}
	if s.finesAssessed, err = meter.Float64Counter("fines.assessed", metric.WithUnit("{currency}")); err != nil {
		otel.Handle(err)
	}
	return s
}

// CreateLoan validates the dates, then reserves a copy and records the loan
// in one transaction. The advisory always carries the due date.
func (s *service) CreateLoan(ctx context.Context, req CreateLoanRequest) (*CreateLoanResult, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.create_loan",
		trace.WithAttributes(
			attribute.String("borrower.id", req.BorrowerID.String()),
			attribute.String("book.id", req.BookID.String()),
		),
	)
	defer span.End()

	loanDate := clock.DateOf(req.LoanDate)
	expected := loanDate.AddDate(0, 0, s.policy.DefaultLoanDays)
	if req.ExpectedReturnDate != nil {
		expected = clock.DateOf(*req.ExpectedReturnDate)
	}

	if expected.Before(loanDate) {
		return nil, apperrors.Validation(apperrors.InvalidDateRange,
			"expected return date %s cannot be before loan date %s",
			expected.Format(clock.DateLayout), loanDate.Format(clock.DateLayout))
	}
	if loanDate.After(clock.Today(s.clock)) {
		return nil, apperrors.Validation(apperrors.FutureLoanDate,
			"loan date %s cannot be in the future", loanDate.Format(clock.DateLayout))
	}

	now := s.clock.Now().UTC()
	loan := &Loan{
		ID:                 uuid.New(),
		BorrowerID:         req.BorrowerID,
		BookID:             req.BookID,
		LoanDate:           loanDate,
		ExpectedReturnDate: expected,
		Status:             StatusPending,
		CreatedAt:          now,
	}

	var balance decimal.Decimal
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		balance, err = tx.BorrowerFineBalance(ctx, req.BorrowerID)
		if err != nil {
			return err
		}

		available, err := tx.LockBookCopies(ctx, req.BookID)
		if err != nil {
			return err
		}
		if available <= 0 {
			return apperrors.Constraint(apperrors.NegativeCopyCount,
				fmt.Sprintf("no copies of book %s available", req.BookID), nil)
		}
		if err := tx.AdjustBookCopies(ctx, req.BookID, -1, now); err != nil {
			return err
		}

		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}

		entry, err := journal.NewEntry(journal.OpLoanCreated, entityLoan, loan.ID, loanCreatedPayload{
			BorrowerID:         loan.BorrowerID,
			BookID:             loan.BookID,
			LoanDate:           loan.LoanDate.Format(clock.DateLayout),
			ExpectedReturnDate: loan.ExpectedReturnDate.Format(clock.DateLayout),
		}, now)
		if err != nil {
			return err
		}
		return tx.AppendEntry(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create loan failed")
		return nil, err
	}

	result := &CreateLoanResult{
		Loan:     loan,
		Advisory: fmt.Sprintf("Loan recorded. Due %s.", expected.Format(clock.DateLayout)),
	}
	if balance.IsPositive() {
		result.Advisory += fmt.Sprintf(" Borrower has an outstanding fine of %s.", balance.StringFixed(2))
	}

	s.loansCreated.Add(ctx, 1)
	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	slog.Info("loan created",
		"loan_id", loan.ID,
		"borrower_id", loan.BorrowerID,
		"book_id", loan.BookID,
		"expected_return_date", loan.ExpectedReturnDate.Format(clock.DateLayout),
	)
	return result, nil
}

// ReturnLoan closes a loan, charges the late fee to the borrower and puts the
// copy back on the shelf in one transaction.
func (s *service) ReturnLoan(ctx context.Context, id uuid.UUID, actualReturnDate time.Time) (*ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.return_loan",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	actual := clock.DateOf(actualReturnDate)
	now := s.clock.Now().UTC()

	var result *ReturnResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		loan, err := tx.LockLoan(ctx, id)
		if err != nil {
			return err
		}
		if loan.Status == StatusReturned {
			return apperrors.Validation(apperrors.AlreadyReturned, "loan %s was already returned", id)
		}
		if actual.Before(loan.LoanDate) {
			return apperrors.Validation(apperrors.InvalidDateRange,
				"return date %s cannot be before loan date %s",
				actual.Format(clock.DateLayout), loan.LoanDate.Format(clock.DateLayout))
		}

		days, fine := s.policy.Fees.Accrued(loan.ExpectedReturnDate, actual)
		previous := loan.Status

		loan.Status = StatusReturned
		loan.ActualReturnDate = &actual
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		if fine.IsPositive() {
			if err := tx.AddFine(ctx, loan.BorrowerID, fine); err != nil {
				return err
			}
		}
		if err := tx.AdjustBookCopies(ctx, loan.BookID, 1, now); err != nil {
			return err
		}

		entry, err := journal.NewEntry(journal.OpLoanReturned, entityLoan, loan.ID, loanReturnedPayload{
			BorrowerID:       loan.BorrowerID,
			BookID:           loan.BookID,
			ActualReturnDate: actual.Format(clock.DateLayout),
			PreviousStatus:   previous,
			DaysLate:         days,
			Fine:             fine.StringFixed(2),
		}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		result = &ReturnResult{Loan: loan, DaysLate: days, Fine: fine}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "return loan failed")
		return nil, err
	}

	result.Advisory = fmt.Sprintf("Return recorded. Fine: %s (%d days late).", result.Fine.StringFixed(2), result.DaysLate)

	s.loansReturned.Add(ctx, 1)
	s.finesAssessed.Add(ctx, result.Fine.InexactFloat64())
	span.SetAttributes(
		attribute.Int("loan.days_late", result.DaysLate),
		attribute.String("loan.fine", result.Fine.StringFixed(2)),
	)
	slog.Info("loan returned", "loan_id", id, "days_late", result.DaysLate, "fine", result.Fine.StringFixed(2))
	return result, nil
}

// CancelLoan deletes a loan. Only a pending loan gives its copy back.
func (s *service) CancelLoan(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "circulation.cancel_loan",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	now := s.clock.Now().UTC()
	var restocked bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		loan, err := tx.LockLoan(ctx, id)
		if err != nil {
			return err
		}

		if loan.Status == StatusPending {
			if err := tx.AdjustBookCopies(ctx, loan.BookID, 1, now); err != nil {
				return err
			}
			restocked = true
		}
		if err := tx.DeleteLoan(ctx, id); err != nil {
			return err
		}

		entry, err := journal.NewEntry(journal.OpLoanCancelled, entityLoan, loan.ID, loanCancelledPayload{
			BorrowerID: loan.BorrowerID,
			BookID:     loan.BookID,
			Status:     loan.Status,
			Restocked:  restocked,
		}, now)
		if err != nil {
			return err
		}
		return tx.AppendEntry(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel loan failed")
		return err
	}

	s.loansCancelled.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("loan.restocked", restocked))
	slog.Info("loan cancelled", "loan_id", id, "restocked", restocked)
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *service) GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	return s.store.GetLoan(ctx, id)
}

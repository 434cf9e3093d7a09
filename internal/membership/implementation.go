// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"libraloan/internal/apperrors"
	"libraloan/internal/clock"
)

var (
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// phonePattern accepts "(XX) 9XXXX-XXXX" with optional spacing and ninth digit.
var phonePattern = regexp.MustCompile(`^\(\d{2}\)\s*9?\s*\d{4}-\d{4}$`)

// service implements the Service interface.
type service struct {
	repo         Repository
	clock        clock.Clock
	loginLimiter *rate.Limiter
}

// Option configures the membership service.
type Option func(*service)

// WithLoginLimiter replaces the default login throttle.
func WithLoginLimiter(l *rate.Limiter) Option {
	return func(s *service) {
		s.loginLimiter = l
	}
}

// NewService creates a new membership service instance.
func NewService(repo Repository, c clock.Clock, opts ...Option) Service {
	s := &service{
		repo:         repo,
		clock:        c,
		loginLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 attempts per minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new borrower with a zero fine balance.
func (s *service) Register(ctx context.Context, reg Registration) (*Borrower, error) {
	name, email, phone, err := validateContact(reg.Name, reg.Email, reg.Phone)
	if err != nil {
		return nil, err
	}
	if reg.Password == "" {
		return nil, apperrors.Validation(apperrors.InvalidInput, "password is required")
	}

	enrolled := reg.EnrolledOn
	if enrolled.IsZero() {
		enrolled = clock.Today(s.clock)
	}

	borrower := &Borrower{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Phone:       phone,
		EnrolledOn:  clock.DateOf(enrolled),
		FineBalance: decimal.Zero,
		CreatedAt:   s.clock.Now().UTC(),
	}
	cred, err := newCredential(borrower.ID, reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.InsertBorrower(ctx, borrower, cred); err != nil {
		return nil, fmt.Errorf("failed to register borrower: %w", err)
	}

	slog.Info("borrower registered", "borrower_id", borrower.ID)
	return borrower, nil
}

// UpdateBorrower edits a borrower's profile. The credential is untouched.
func (s *service) UpdateBorrower(ctx context.Context, id uuid.UUID, upd BorrowerUpdate) (*Borrower, error) {
	name, email, phone, err := validateContact(upd.Name, upd.Email, upd.Phone)
	if err != nil {
		return nil, err
	}

	borrower, err := s.repo.GetBorrower(ctx, id)
	if err != nil {
		return nil, err
	}
	borrower.Name = name
	borrower.Email = email
	borrower.Phone = phone
	if !upd.EnrolledOn.IsZero() {
		borrower.EnrolledOn = clock.DateOf(upd.EnrolledOn)
	}
	if upd.FineBalance != nil {
		borrower.FineBalance = upd.FineBalance.Round(2)
	}

	if err := s.repo.UpdateBorrower(ctx, borrower); err != nil {
		return nil, fmt.Errorf("failed to update borrower: %w", err)
	}

	slog.Info("borrower updated", "borrower_id", borrower.ID)
	return borrower, nil
}

// RemoveBorrower deletes a borrower that no loan references, along with
// their credential.
func (s *service) RemoveBorrower(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteBorrower(ctx, id); err != nil {
		if apperrors.IsConstraint(err, apperrors.InUse) {
			slog.Warn("borrower cannot be removed", "borrower_id", id, "err", err)
		}
		return err
	}
	slog.Info("borrower removed", "borrower_id", id)
	return nil
}

// validateContact trims the fields, lowercases the email and checks the
// phone format.
func validateContact(name, email, phone string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", "", apperrors.Validation(apperrors.InvalidInput, "name is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", "", "", apperrors.Validation(apperrors.InvalidInput, "invalid email %q", email)
	}
	phone = strings.TrimSpace(phone)
	if phone != "" && !phonePattern.MatchString(phone) {
		return "", "", "", apperrors.Validation(apperrors.InvalidPhone, "invalid phone format, use (XX) 9XXXX-XXXX")
	}
	return name, normalized, phone, nil
}

// Authenticate verifies a borrower's credentials and returns the borrower if successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Borrower, error) {
	if !s.loginLimiter.Allow() {
		return nil, ErrRateLimited
	}

	borrower, err := s.repo.GetBorrowerByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperrors.IsNotFound(err, "") {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	cred, err := s.repo.GetCredential(ctx, borrower.ID)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := cred.matches(password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return borrower, nil
}

// GetBorrower retrieves a borrower by their ID.
func (s *service) GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return s.repo.GetBorrower(ctx, id)
}

// ListBorrowers lists all borrowers ordered by name.
func (s *service) ListBorrowers(ctx context.Context) ([]*Borrower, error) {
	borrowers, err := s.repo.ListBorrowers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrowers: %w", err)
	}
	return borrowers, nil
}

// SetFineBalance overwrites a borrower's stored fine. Negative balances are
// accepted, as the balance is not constrained at write time.
func (s *service) SetFineBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if err := s.repo.UpdateFineBalance(ctx, id, balance.Round(2)); err != nil {
		return err
	}
	slog.Info("fine balance set", "borrower_id", id, "balance", balance.StringFixed(2))
	return nil
}

// internal/store/memstore/memstore.go
//
// Package memstore keeps every record in process memory. It backs the
// "memory" database driver and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraloan/internal/apperrors"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/journal"
	"libraloan/internal/membership"
)

var (
	_ catalog.Repository    = (*Store)(nil)
	_ membership.Repository = (*Store)(nil)
	_ circulation.Store     = (*Store)(nil)
	_ journal.Reader        = (*Store)(nil)
)

type state struct {
	books       map[uuid.UUID]catalog.Book
	borrowers   map[uuid.UUID]membership.Borrower
	credentials map[uuid.UUID]membership.Credential
	loans       map[uuid.UUID]circulation.Loan
	entries     []journal.Entry
	lastEntryID int64
}

func newState() *state {
	return &state{
		books:       make(map[uuid.UUID]catalog.Book),
		borrowers:   make(map[uuid.UUID]membership.Borrower),
		credentials: make(map[uuid.UUID]membership.Credential),
		loans:       make(map[uuid.UUID]circulation.Loan),
	}
}

func (s *state) clone() *state {
	c := &state{
		books:       make(map[uuid.UUID]catalog.Book, len(s.books)),
		borrowers:   make(map[uuid.UUID]membership.Borrower, len(s.borrowers)),
		credentials: make(map[uuid.UUID]membership.Credential, len(s.credentials)),
		loans:       make(map[uuid.UUID]circulation.Loan, len(s.loans)),
		entries:     append([]journal.Entry(nil), s.entries...),
		lastEntryID: s.lastEntryID,
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.borrowers {
		c.borrowers[k] = v
	}
	for k, v := range s.credentials {
		c.credentials[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	return c
}

// Store is an in-memory implementation of every repository. A single mutex
// serialises transactions, so a transaction sees no concurrent writes.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx circulation.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.st.clone()
	if err := fn(ctx, &tx{st: working}); err != nil {
		return err
	}
	s.st = working
	return nil
}

// MarkOverdue flips pending loans due before today to overdue.
func (s *Store) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, l := range s.st.loans {
		if l.Status == circulation.StatusPending && l.ExpectedReturnDate.Before(today) {
			l.Status = circulation.StatusOverdue
			s.st.loans[id] = l
			n++
		}
	}
	return n, nil
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (*circulation.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.st.loans[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityLoan, id)
	}
	return &l, nil
}

func (s *Store) ListLoans(ctx context.Context, filter circulation.Filter) ([]*circulation.LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var views []*circulation.LoanView
	for _, l := range s.st.loans {
		if !filter.Matches(&l) {
			continue
		}
		views = append(views, &circulation.LoanView{
			Loan:         l,
			BorrowerName: s.st.borrowers[l.BorrowerID].Name,
			BookTitle:    s.st.books[l.BookID].Title,
		})
	}

	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if filter.Order == circulation.DueSoonest {
			if !a.ExpectedReturnDate.Equal(b.ExpectedReturnDate) {
				return a.ExpectedReturnDate.Before(b.ExpectedReturnDate)
			}
			return a.LoanDate.Before(b.LoanDate)
		}
		if !a.LoanDate.Equal(b.LoanDate) {
			return a.LoanDate.After(b.LoanDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if filter.Limit > 0 && len(views) > filter.Limit {
		views = views[:filter.Limit]
	}
	return views, nil
}

func (s *Store) ListEntries(ctx context.Context, filter journal.Filter) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.EffectiveLimit()
	var out []journal.Entry
	for i := len(s.st.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.st.entries[i]; filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Catalog

func (s *Store) InsertBook(ctx context.Context, book *catalog.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.st.books[book.ID]; exists {
		return apperrors.Constraint(apperrors.Duplicate, "book "+book.ID.String()+" already exists", nil)
	}
	if book.AvailableCopies < 0 {
		return apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", nil)
	}
	s.st.books[book.ID] = *book
	return nil
}

func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.st.books[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityBook, id)
	}
	return &b, nil
}

func (s *Store) ListBooks(ctx context.Context, availableOnly bool) ([]*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var books []*catalog.Book
	for _, b := range s.st.books {
		if availableOnly && b.AvailableCopies <= 0 {
			continue
		}
		b := b
		books = append(books, &b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID.String() < books[j].ID.String()
	})
	return books, nil
}

func (s *Store) UpdateBook(ctx context.Context, book *catalog.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.books[book.ID]; !ok {
		return apperrors.NotFound(apperrors.EntityBook, book.ID)
	}
	if book.AvailableCopies < 0 {
		return apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", nil)
	}
	s.st.books[book.ID] = *book
	return nil
}

func (s *Store) UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.st.books[id]
	if !ok {
		return apperrors.NotFound(apperrors.EntityBook, id)
	}
	if available < 0 {
		return apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", nil)
	}
	b.AvailableCopies = available
	b.UpdatedAt = at
	s.st.books[id] = b
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.books[id]; !ok {
		return apperrors.NotFound(apperrors.EntityBook, id)
	}
	for _, l := range s.st.loans {
		if l.BookID == id {
			return apperrors.Constraint(apperrors.InUse, "book "+id.String()+" is referenced by loans", nil)
		}
	}
	delete(s.st.books, id)
	return nil
}

// Membership

func (s *Store) InsertBorrower(ctx context.Context, b *membership.Borrower, cred *membership.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.st.borrowers[b.ID]; exists {
		return apperrors.Constraint(apperrors.Duplicate, "borrower "+b.ID.String()+" already exists", nil)
	}
	for _, existing := range s.st.borrowers {
		if strings.EqualFold(existing.Email, b.Email) {
			return apperrors.Constraint(apperrors.Duplicate, "email "+b.Email+" is already registered", nil)
		}
	}
	s.st.borrowers[b.ID] = *b
	if cred != nil {
		s.st.credentials[b.ID] = *cred
	}
	return nil
}

func (s *Store) GetBorrower(ctx context.Context, id uuid.UUID) (*membership.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.st.borrowers[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityBorrower, id)
	}
	return &b, nil
}

func (s *Store) GetBorrowerByEmail(ctx context.Context, email string) (*membership.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.st.borrowers {
		if strings.EqualFold(b.Email, email) {
			return &b, nil
		}
	}
	return nil, &apperrors.NotFoundError{Entity: apperrors.EntityBorrower, ID: email}
}

func (s *Store) GetCredential(ctx context.Context, borrowerID uuid.UUID) (*membership.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.st.credentials[borrowerID]
	if !ok {
		return nil, apperrors.NotFound(apperrors.EntityBorrower, borrowerID)
	}
	return &c, nil
}

func (s *Store) ListBorrowers(ctx context.Context) ([]*membership.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var borrowers []*membership.Borrower
	for _, b := range s.st.borrowers {
		b := b
		borrowers = append(borrowers, &b)
	}
	sort.Slice(borrowers, func(i, j int) bool {
		if borrowers[i].Name != borrowers[j].Name {
			return borrowers[i].Name < borrowers[j].Name
		}
		return borrowers[i].ID.String() < borrowers[j].ID.String()
	})
	return borrowers, nil
}

func (s *Store) UpdateBorrower(ctx context.Context, b *membership.Borrower) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.borrowers[b.ID]; !ok {
		return apperrors.NotFound(apperrors.EntityBorrower, b.ID)
	}
	for id, existing := range s.st.borrowers {
		if id != b.ID && strings.EqualFold(existing.Email, b.Email) {
			return apperrors.Constraint(apperrors.Duplicate, "email "+b.Email+" is already registered", nil)
		}
	}
	s.st.borrowers[b.ID] = *b
	return nil
}

func (s *Store) DeleteBorrower(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.borrowers[id]; !ok {
		return apperrors.NotFound(apperrors.EntityBorrower, id)
	}
	for _, l := range s.st.loans {
		if l.BorrowerID == id {
			return apperrors.Constraint(apperrors.InUse, "borrower "+id.String()+" is referenced by loans", nil)
		}
	}
	delete(s.st.borrowers, id)
	delete(s.st.credentials, id)
	return nil
}

func (s *Store) UpdateFineBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.st.borrowers[id]
	if !ok {
		return apperrors.NotFound(apperrors.EntityBorrower, id)
	}
	b.FineBalance = balance
	s.st.borrowers[id] = b
	return nil
}

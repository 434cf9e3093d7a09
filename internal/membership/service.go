// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, reg Registration) (*Borrower, error)
	Authenticate(ctx context.Context, email, password string) (*Borrower, error)
	GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error)
	ListBorrowers(ctx context.Context) ([]*Borrower, error)
	UpdateBorrower(ctx context.Context, id uuid.UUID, upd BorrowerUpdate) (*Borrower, error)
	SetFineBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	RemoveBorrower(ctx context.Context, id uuid.UUID) error
}

// Repository persists borrowers and their credentials.
type Repository interface {
	InsertBorrower(ctx context.Context, b *Borrower, cred *Credential) error
	GetBorrower(ctx context.Context, id uuid.UUID) (*Borrower, error)
	GetBorrowerByEmail(ctx context.Context, email string) (*Borrower, error)
	GetCredential(ctx context.Context, borrowerID uuid.UUID) (*Credential, error)
	ListBorrowers(ctx context.Context) ([]*Borrower, error)
	UpdateBorrower(ctx context.Context, b *Borrower) error
	UpdateFineBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	DeleteBorrower(ctx context.Context, id uuid.UUID) error
}

// internal/catalog/service.go
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, nb NewBook) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context, availableOnly bool) ([]*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, nb NewBook) (*Book, error)
	SetAvailableCopies(ctx context.Context, id uuid.UUID, available int) error
	RemoveBook(ctx context.Context, id uuid.UUID) error
}

// Repository persists books. Implementations return apperrors.NotFoundError
// for unknown ids and apperrors.ConstraintError for rejected writes.
type Repository interface {
	InsertBook(ctx context.Context, book *Book) error
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context, availableOnly bool) ([]*Book, error)
	UpdateBook(ctx context.Context, book *Book) error
	UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int, at time.Time) error
	DeleteBook(ctx context.Context, id uuid.UUID) error
}

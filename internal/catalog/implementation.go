// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libraloan/internal/apperrors"
	"libraloan/internal/clock"
)

// service implements the Service interface.
type service struct {
	repo   Repository
	clock  clock.Clock
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(repo Repository, c clock.Clock) Service {
	return &service{
		repo:   repo,
		clock:  c,
		tracer: otel.Tracer("libraloan/catalog"),
	}
}

// AddBook catalogues a new title.
func (s *service) AddBook(ctx context.Context, nb NewBook) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_book")
	defer span.End()

	title, err := validateBook(nb)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	book := &Book{
		ID:              uuid.New(),
		Title:           title,
		AuthorID:        nb.AuthorID,
		PublisherID:     nb.PublisherID,
		GenreID:         nb.GenreID,
		ISBN:            strings.TrimSpace(nb.ISBN),
		PublicationYear: nb.PublicationYear,
		AvailableCopies: nb.AvailableCopies,
		Summary:         nb.Summary,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}

	span.SetAttributes(attribute.String("book.id", book.ID.String()))
	slog.Info("book added", "book_id", book.ID, "title", book.Title, "copies", book.AvailableCopies)
	return book, nil
}

// UpdateBook replaces every editable field of a book, including its shelf
// counter. CreatedAt is kept.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, nb NewBook) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	title, err := validateBook(nb)
	if err != nil {
		return nil, err
	}

	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	book.Title = title
	book.AuthorID = nb.AuthorID
	book.PublisherID = nb.PublisherID
	book.GenreID = nb.GenreID
	book.ISBN = strings.TrimSpace(nb.ISBN)
	book.PublicationYear = nb.PublicationYear
	book.AvailableCopies = nb.AvailableCopies
	book.Summary = nb.Summary
	book.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	slog.Info("book updated", "book_id", book.ID, "title", book.Title, "copies", book.AvailableCopies)
	return book, nil
}

func validateBook(nb NewBook) (string, error) {
	title := strings.TrimSpace(nb.Title)
	if title == "" {
		return "", apperrors.Validation(apperrors.InvalidInput, "title is required")
	}
	if nb.AvailableCopies < 0 {
		return "", apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", nil)
	}
	return title, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.repo.GetBook(ctx, id)
}

// ListBooks lists the catalog ordered by title.
func (s *service) ListBooks(ctx context.Context, availableOnly bool) ([]*Book, error) {
	books, err := s.repo.ListBooks(ctx, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// SetAvailableCopies overwrites the shelf counter of a book.
func (s *service) SetAvailableCopies(ctx context.Context, id uuid.UUID, available int) error {
	ctx, span := s.tracer.Start(ctx, "catalog.set_available_copies",
		trace.WithAttributes(
			attribute.String("book.id", id.String()),
			attribute.Int("book.available", available),
		),
	)
	defer span.End()

	if available < 0 {
		return apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", nil)
	}
	return s.repo.UpdateAvailableCopies(ctx, id, available, s.clock.Now().UTC())
}

// RemoveBook deletes a book that no loan references.
func (s *service) RemoveBook(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		if apperrors.IsConstraint(err, apperrors.InUse) {
			slog.Warn("book cannot be removed", "book_id", id, "err", err)
		}
		return err
	}
	slog.Info("book removed", "book_id", id)
	return nil
}

// internal/store/sqlstore/catalog.go
package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libraloan/internal/apperrors"
	"libraloan/internal/catalog"
)

const bookColumns = `id, title, author_id, publisher_id, genre_id, isbn, publication_year,
	available_copies, summary, created_at, updated_at`

func (s *Store) InsertBook(ctx context.Context, book *catalog.Book) error {
	query := s.db.Rebind(`
		INSERT INTO books (` + bookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		book.ID, book.Title, book.AuthorID, book.PublisherID, book.GenreID, book.ISBN,
		book.PublicationYear, book.AvailableCopies, book.Summary, book.CreatedAt, book.UpdatedAt,
	)
	return classify(err, "insert book")
}

func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	query := s.db.Rebind(`SELECT ` + bookColumns + ` FROM books WHERE id = ?`)
	if err := s.db.GetContext(ctx, &book, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(apperrors.EntityBook, id)
		}
		return nil, classify(err, "get book")
	}
	return &book, nil
}

func (s *Store) ListBooks(ctx context.Context, availableOnly bool) ([]*catalog.Book, error) {
	ds := s.builder.From("books").
		Select(goquCols(bookColumns)...).
		Order(goquAsc("title"), goquAsc("id")).
		Prepared(true)
	if availableOnly {
		ds = ds.Where(goquCol("available_copies").Gt(0))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, classify(err, "build book listing")
	}

	var books []*catalog.Book
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, classify(err, "list books")
	}
	return books, nil
}

func (s *Store) UpdateBook(ctx context.Context, book *catalog.Book) error {
	query := s.db.Rebind(`
		UPDATE books
		SET title = ?, author_id = ?, publisher_id = ?, genre_id = ?, isbn = ?,
			publication_year = ?, available_copies = ?, summary = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query,
		book.Title, book.AuthorID, book.PublisherID, book.GenreID, book.ISBN,
		book.PublicationYear, book.AvailableCopies, book.Summary, book.UpdatedAt, book.ID,
	)
	if err != nil {
		return classify(err, "update book")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBook, book.ID))
}

func (s *Store) UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int, at time.Time) error {
	query := s.db.Rebind(`UPDATE books SET available_copies = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, available, at, id)
	if err != nil {
		return classify(err, "update available copies")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBook, id))
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	query := s.db.Rebind(`DELETE FROM books WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		err = classify(err, "delete book")
		if apperrors.IsConstraint(err, apperrors.InUse) {
			return apperrors.Constraint(apperrors.InUse, "book "+id.String()+" is referenced by loans", err)
		}
		return err
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBook, id))
}

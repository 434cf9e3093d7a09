package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraloan/internal/apperrors"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/membership"
	"libraloan/internal/store/memstore"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAddBook(t *testing.T) {
	svc := catalog.NewService(memstore.New(), clock.Fixed(now))
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.NewBook{Title: "  Dom Casmurro ", ISBN: " 978-85 ", AvailableCopies: 3})
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro", book.Title)
	assert.Equal(t, "978-85", book.ISBN)
	assert.Equal(t, now, book.CreatedAt)

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableCopies)

	_, err = svc.AddBook(ctx, catalog.NewBook{Title: " "})
	assert.True(t, apperrors.IsValidation(err, apperrors.InvalidInput))

	_, err = svc.AddBook(ctx, catalog.NewBook{Title: "Iracema", AvailableCopies: -1})
	assert.True(t, apperrors.IsConstraint(err, apperrors.NegativeCopyCount))
}

func TestListBooksAvailableOnly(t *testing.T) {
	svc := catalog.NewService(memstore.New(), clock.Fixed(now))
	ctx := context.Background()

	_, err := svc.AddBook(ctx, catalog.NewBook{Title: "Vidas Secas", AvailableCopies: 0})
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, catalog.NewBook{Title: "Capitães da Areia", AvailableCopies: 2})
	require.NoError(t, err)

	all, err := svc.ListBooks(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Capitães da Areia", all[0].Title)

	available, err := svc.ListBooks(ctx, true)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Capitães da Areia", available[0].Title)
}

func TestSetAvailableCopies(t *testing.T) {
	store := memstore.New()
	svc := catalog.NewService(store, clock.Fixed(now))
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.NewBook{Title: "Senhora", AvailableCopies: 1})
	require.NoError(t, err)

	require.NoError(t, svc.SetAvailableCopies(ctx, book.ID, 7))
	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.AvailableCopies)

	assert.Equal(t, now, got.UpdatedAt)

	later := now.Add(48 * time.Hour)
	require.NoError(t, catalog.NewService(store, clock.Fixed(later)).SetAvailableCopies(ctx, book.ID, 4))
	got, err = svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, later, got.UpdatedAt)

	err = svc.SetAvailableCopies(ctx, book.ID, -2)
	assert.True(t, apperrors.IsConstraint(err, apperrors.NegativeCopyCount))

	err = svc.SetAvailableCopies(ctx, uuid.New(), 1)
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBook))
}

func TestRemoveBook(t *testing.T) {
	store := memstore.New()
	c := clock.Fixed(now)
	svc := catalog.NewService(store, c)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.NewBook{Title: "Quincas Borba", AvailableCopies: 1})
	require.NoError(t, err)
	borrower, err := membership.NewService(store, c).Register(ctx, membership.Registration{
		Name: "Ana", Email: "ana@example.com", Password: "pw",
	})
	require.NoError(t, err)
	_, err = circulation.NewService(store, c, circulation.DefaultPolicy()).CreateLoan(ctx, circulation.CreateLoanRequest{
		BorrowerID: borrower.ID,
		BookID:     book.ID,
		LoanDate:   now,
	})
	require.NoError(t, err)

	err = svc.RemoveBook(ctx, book.ID)
	assert.True(t, apperrors.IsConstraint(err, apperrors.InUse))
	_, err = svc.GetBook(ctx, book.ID)
	require.NoError(t, err)

	other, err := svc.AddBook(ctx, catalog.NewBook{Title: "Lucíola"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveBook(ctx, other.ID))
	_, err = svc.GetBook(ctx, other.ID)
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBook))
}

func TestUpdateBook(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	book, err := catalog.NewService(store, clock.Fixed(now)).AddBook(ctx, catalog.NewBook{Title: "Memórias Póstumas", AvailableCopies: 2})
	require.NoError(t, err)

	later := now.Add(24 * time.Hour)
	svc := catalog.NewService(store, clock.Fixed(later))
	author := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	updated, err := svc.UpdateBook(ctx, book.ID, catalog.NewBook{
		Title:           " Memórias Póstumas de Brás Cubas ",
		AuthorID:        author,
		ISBN:            "978-85-359-0277-0",
		PublicationYear: 1881,
		AvailableCopies: 5,
		Summary:         "Narrated by a dead man.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Memórias Póstumas de Brás Cubas", updated.Title)

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Memórias Póstumas de Brás Cubas", got.Title)
	assert.Equal(t, author, got.AuthorID)
	assert.Equal(t, 1881, got.PublicationYear)
	assert.Equal(t, 5, got.AvailableCopies)
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, later, got.UpdatedAt)
}

func TestUpdateBookRejections(t *testing.T) {
	store := memstore.New()
	svc := catalog.NewService(store, clock.Fixed(now))
	ctx := context.Background()

	book, err := svc.AddBook(ctx, catalog.NewBook{Title: "O Guarani", AvailableCopies: 1})
	require.NoError(t, err)

	_, err = svc.UpdateBook(ctx, book.ID, catalog.NewBook{Title: "O Guarani", AvailableCopies: -1})
	assert.True(t, apperrors.IsConstraint(err, apperrors.NegativeCopyCount))

	_, err = svc.UpdateBook(ctx, book.ID, catalog.NewBook{Title: "  "})
	assert.True(t, apperrors.IsValidation(err, apperrors.InvalidInput))

	_, err = svc.UpdateBook(ctx, uuid.New(), catalog.NewBook{Title: "Ubirajara"})
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBook))

	got, err := svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
}

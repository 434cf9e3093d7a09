package membership_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"libraloan/internal/apperrors"
	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/membership"
	"libraloan/internal/store/memstore"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func newService(opts ...membership.Option) membership.Service {
	return membership.NewService(memstore.New(), clock.Fixed(now), opts...)
}

func TestRegister(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{
		Name:     " Clarice ",
		Email:    "Clarice@Example.com",
		Phone:    "(21) 98765-4321",
		Password: "SecurePass123!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Clarice", b.Name)
	assert.Equal(t, "clarice@example.com", b.Email)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), b.EnrolledOn)
	assert.True(t, b.FineBalance.IsZero())

	got, err := svc.GetBorrower(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Email, got.Email)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		reg  membership.Registration
		kind apperrors.ValidationKind
	}{
		{"missing name", membership.Registration{Email: "a@b.com", Password: "pw"}, apperrors.InvalidInput},
		{"bad email", membership.Registration{Name: "A", Email: "not-an-email", Password: "pw"}, apperrors.InvalidInput},
		{"bad phone", membership.Registration{Name: "A", Email: "a@b.com", Phone: "21 98765 4321", Password: "pw"}, apperrors.InvalidPhone},
		{"missing password", membership.Registration{Name: "A", Email: "a@b.com"}, apperrors.InvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Register(context.Background(), tt.reg)
			assert.True(t, apperrors.IsValidation(err, tt.kind), "got %v", err)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, membership.Registration{Name: "A", Email: "dup@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, membership.Registration{Name: "B", Email: "DUP@example.com", Password: "pw"})
	assert.True(t, apperrors.IsConstraint(err, apperrors.Duplicate))
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{Name: "Jorge", Email: "jorge@example.com", Password: "s3cret"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, " JORGE@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = svc.Authenticate(ctx, "jorge@example.com", "wrong")
	assert.ErrorIs(t, err, membership.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
}

func TestAuthenticateRateLimited(t *testing.T) {
	svc := newService(membership.WithLoginLimiter(rate.NewLimiter(rate.Every(time.Hour), 2)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(ctx, "x@example.com", "pw")
		assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
	}
	_, err := svc.Authenticate(ctx, "x@example.com", "pw")
	assert.ErrorIs(t, err, membership.ErrRateLimited)
}

func TestSetFineBalance(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{Name: "Cecília", Email: "c@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.SetFineBalance(ctx, b.ID, decimal.RequireFromString("12.345")))
	got, err := svc.GetBorrower(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.35", got.FineBalance.StringFixed(2))

	err = svc.SetFineBalance(ctx, uuid.New(), decimal.Zero)
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBorrower))
}

func TestListBorrowersByName(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for i, name := range []string{"Zélia", "Bruno", "Marta"} {
		_, err := svc.Register(ctx, membership.Registration{Name: name, Email: fmt.Sprintf("member%d@example.com", i), Password: "pw"})
		require.NoError(t, err)
	}

	borrowers, err := svc.ListBorrowers(ctx)
	require.NoError(t, err)
	require.Len(t, borrowers, 3)
	assert.Equal(t, "Bruno", borrowers[0].Name)
	assert.Equal(t, "Zélia", borrowers[2].Name)
}

func TestUpdateBorrower(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{Name: "Raquel", Email: "raquel@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, svc.SetFineBalance(ctx, b.ID, decimal.RequireFromString("4.00")))

	updated, err := svc.UpdateBorrower(ctx, b.ID, membership.BorrowerUpdate{
		Name:       "Raquel de Queiroz",
		Email:      " Raquel.Q@Example.com",
		Phone:      "(85) 99876-5432",
		EnrolledOn: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "raquel.q@example.com", updated.Email)

	got, err := svc.GetBorrower(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Raquel de Queiroz", got.Name)
	assert.Equal(t, "(85) 99876-5432", got.Phone)
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), got.EnrolledOn)
	assert.Equal(t, "4.00", got.FineBalance.StringFixed(2), "nil fine keeps the stored balance")
	assert.Equal(t, b.CreatedAt, got.CreatedAt)

	fine := decimal.RequireFromString("0")
	_, err = svc.UpdateBorrower(ctx, b.ID, membership.BorrowerUpdate{Name: "Raquel", Email: "raquel.q@example.com", FineBalance: &fine})
	require.NoError(t, err)
	got, err = svc.GetBorrower(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.FineBalance.IsZero())

	_, err = svc.Authenticate(ctx, "raquel.q@example.com", "pw")
	require.NoError(t, err)
}

func TestUpdateBorrowerRejections(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	a, err := svc.Register(ctx, membership.Registration{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, membership.Registration{Name: "B", Email: "b@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.UpdateBorrower(ctx, a.ID, membership.BorrowerUpdate{Name: "A", Email: "B@example.com"})
	assert.True(t, apperrors.IsConstraint(err, apperrors.Duplicate))

	_, err = svc.UpdateBorrower(ctx, a.ID, membership.BorrowerUpdate{Name: "A", Email: "a@example.com", Phone: "12345"})
	assert.True(t, apperrors.IsValidation(err, apperrors.InvalidPhone))

	_, err = svc.UpdateBorrower(ctx, a.ID, membership.BorrowerUpdate{Email: "a@example.com"})
	assert.True(t, apperrors.IsValidation(err, apperrors.InvalidInput))

	_, err = svc.UpdateBorrower(ctx, uuid.New(), membership.BorrowerUpdate{Name: "C", Email: "c@example.com"})
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBorrower))

	got, err := svc.GetBorrower(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
}

func TestRemoveBorrower(t *testing.T) {
	store := memstore.New()
	c := clock.Fixed(now)
	svc := membership.NewService(store, c)
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{Name: "Graciliano", Email: "g@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveBorrower(ctx, b.ID))

	_, err = svc.GetBorrower(ctx, b.ID)
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBorrower))
	_, err = svc.Authenticate(ctx, "g@example.com", "pw")
	assert.ErrorIs(t, err, membership.ErrInvalidCredentials)

	err = svc.RemoveBorrower(ctx, b.ID)
	assert.True(t, apperrors.IsNotFound(err, apperrors.EntityBorrower))
}

func TestRemoveBorrowerWithLoans(t *testing.T) {
	store := memstore.New()
	c := clock.Fixed(now)
	svc := membership.NewService(store, c)
	ctx := context.Background()

	b, err := svc.Register(ctx, membership.Registration{Name: "Lima", Email: "lima@example.com", Password: "pw"})
	require.NoError(t, err)
	book, err := catalog.NewService(store, c).AddBook(ctx, catalog.NewBook{Title: "Triste Fim", AvailableCopies: 1})
	require.NoError(t, err)
	_, err = circulation.NewService(store, c, circulation.DefaultPolicy()).CreateLoan(ctx, circulation.CreateLoanRequest{
		BorrowerID: b.ID,
		BookID:     book.ID,
		LoanDate:   now,
	})
	require.NoError(t, err)

	err = svc.RemoveBorrower(ctx, b.ID)
	assert.True(t, apperrors.IsConstraint(err, apperrors.InUse))

	_, err = svc.GetBorrower(ctx, b.ID)
	require.NoError(t, err)
}

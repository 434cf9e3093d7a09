package session

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraloan/internal/clock"
	"libraloan/internal/membership"
)

var testSecret = []byte("test-secret")

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	issuer := NewIssuer(testSecret, time.Hour, clock.Fixed(now))
	id := uuid.New()

	token, expires, err := issuer.Issue(id)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	token, _, err := NewIssuer(testSecret, time.Hour, clock.Fixed(now)).Issue(uuid.New())
	require.NoError(t, err)

	later := NewIssuer(testSecret, time.Hour, clock.Fixed(now.Add(2*time.Hour)))
	_, err = later.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewIssuer([]byte("other-secret"), time.Hour, clock.Fixed(now))
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = other.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireBorrower(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, clock.Fixed(time.Now()))
	id := uuid.New()
	token, _, err := issuer.Issue(id)
	require.NoError(t, err)

	var seen uuid.UUID
	protected := issuer.RequireBorrower(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = BorrowerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me/statistics", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, seen)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me/statistics", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/statistics", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	})

	t.Run("invalid token redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me/statistics", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

type stubAuth struct {
	borrower *membership.Borrower
	err      error
}

func (s stubAuth) Authenticate(context.Context, string, string) (*membership.Borrower, error) {
	return s.borrower, s.err
}

func TestHandleLogin(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, clock.Fixed(time.Now()))
	borrower := &membership.Borrower{ID: uuid.New(), Name: "Ana"}

	tests := []struct {
		name   string
		auth   stubAuth
		body   string
		status int
	}{
		{"success", stubAuth{borrower: borrower}, `{"email":"ana@example.com","password":"pw"}`, http.StatusOK},
		{"bad credentials", stubAuth{err: membership.ErrInvalidCredentials}, `{"email":"ana@example.com","password":"x"}`, http.StatusUnauthorized},
		{"rate limited", stubAuth{err: membership.ErrRateLimited}, `{"email":"ana@example.com","password":"x"}`, http.StatusTooManyRequests},
		{"missing fields", stubAuth{}, `{"email":""}`, http.StatusBadRequest},
		{"malformed body", stubAuth{}, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tt.auth, issuer).Routes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, LoginPath, bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				cookies := rec.Result().Cookies()
				require.Len(t, cookies, 1)
				assert.Equal(t, CookieName, cookies[0].Name)

				id, err := issuer.Parse(cookies[0].Value)
				require.NoError(t, err)
				assert.Equal(t, borrower.ID, id)
			}
		})
	}
}

package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraloan/internal/apperrors"
)

func TestWriteError(t *testing.T) {
	driverErr := errors.New(`pq: new row for relation "books" violates check constraint "books_available_copies_check"`)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "constraint hides driver text",
			err:    fmt.Errorf("failed to add book: %w", apperrors.Constraint(apperrors.NegativeCopyCount, "available copies cannot be negative", driverErr)),
			status: http.StatusConflict,
			body:   "available copies cannot be negative",
		},
		{
			name:   "validation",
			err:    apperrors.Validation(apperrors.FutureLoanDate, "loan date 2030-01-01 cannot be in the future"),
			status: http.StatusUnprocessableEntity,
			body:   "loan date 2030-01-01 cannot be in the future",
		},
		{
			name:   "not found",
			err:    apperrors.NotFound(apperrors.EntityLoan, uuid.Nil),
			status: http.StatusNotFound,
			body:   "loan with ID " + uuid.Nil.String() + " not found",
		},
		{
			name:   "internal",
			err:    errors.New("dial tcp 10.0.0.5:5432: connection refused"),
			status: http.StatusInternalServerError,
			body:   "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodPost, "/books", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, strings.TrimSpace(rec.Body.String()))
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestUUIDParam(t *testing.T) {
	id := uuid.New()
	r := chi.NewRouter()

	var got uuid.UUID
	var gotErr error
	r.Get("/books/{id}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = UUIDParam(req, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/"+id.String(), nil))
	require.NoError(t, gotErr)
	assert.Equal(t, id, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/42", nil))
	assert.True(t, apperrors.IsValidation(gotErr, apperrors.InvalidInput))
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	var dst struct{ Title string }
	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/books", strings.NewReader("{")), &dst)
	assert.True(t, apperrors.IsValidation(err, apperrors.InvalidInput))
}

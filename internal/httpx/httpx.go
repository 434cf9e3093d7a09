// internal/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libraloan/internal/apperrors"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// WriteError answers with the status that matches err's kind.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", status)
		return
	}

	// Constraint errors may wrap driver messages; only the notice is public.
	var ce *apperrors.ConstraintError
	if errors.As(err, &ce) {
		http.Error(w, ce.Message, status)
		return
	}
	http.Error(w, err.Error(), status)
}

// DecodeJSON decodes the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation(apperrors.InvalidInput, "invalid request body: %v", err)
	}
	return nil
}

// UUIDParam parses a chi URL parameter as a UUID.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperrors.Validation(apperrors.InvalidInput, "invalid %s", name)
	}
	return id, nil
}

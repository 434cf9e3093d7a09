// internal/session/handler.go
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libraloan/internal/apperrors"
	"libraloan/internal/httpx"
	"libraloan/internal/membership"
)

// Authenticator checks borrower credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*membership.Borrower, error)
}

type Handler struct {
	auth   Authenticator
	issuer *Issuer
}

func NewHandler(auth Authenticator, issuer *Issuer) *Handler {
	return &Handler{auth: auth, issuer: issuer}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post(LoginPath, h.HandleLogin)
}

type loginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Borrower  *membership.Borrower `json:"borrower"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, r, apperrors.Validation(apperrors.InvalidInput, "email and password are required"))
		return
	}

	borrower, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, membership.ErrRateLimited):
		http.Error(w, "too many login attempts", http.StatusTooManyRequests)
		return
	case errors.Is(err, membership.ErrInvalidCredentials):
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	case err != nil:
		httpx.WriteError(w, r, err)
		return
	}

	token, expires, err := h.issuer.Issue(borrower.ID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("borrower logged in", "borrower_id", borrower.ID)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, Borrower: borrower})
}

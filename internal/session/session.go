// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"libraloan/internal/clock"
)

// CookieName is the cookie that carries the session token.
const CookieName = "session"

// LoginPath is where unauthenticated requests are redirected.
const LoginPath = "/login"

var ErrInvalidToken = errors.New("invalid session token")

const issuer = "libraloan"

// Issuer signs and verifies HS256 session tokens whose subject is the
// borrower id.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(secret []byte, ttl time.Duration, c clock.Clock) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, clock: c}
}

// Issue returns a signed token for the borrower and its expiry.
func (i *Issuer) Issue(borrowerID uuid.UUID) (string, time.Time, error) {
	now := i.clock.Now()
	expires := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   borrowerID.String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expires, nil
}

// Parse verifies the token and returns the borrower id it carries.
func (i *Issuer) Parse(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

type ctxKey struct{}

// WithBorrower returns a context carrying the authenticated borrower id.
func WithBorrower(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// BorrowerFrom returns the borrower id stored by RequireBorrower.
func BorrowerFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}

// RequireBorrower reads the token from the Authorization header or the
// session cookie. Requests without a valid token are sent to the login page.
func (i *Issuer) RequireBorrower(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r)
		if token == "" {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		id, err := i.Parse(token)
		if err != nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithBorrower(r.Context(), id)))
	})
}

func tokenFrom(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// internal/membership/password.go
package membership

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// newCredential derives a salted Argon2id hash of password for the borrower.
func newCredential(borrowerID uuid.UUID, password string) (*Credential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return &Credential{
		BorrowerID:   borrowerID,
		PasswordHash: base64.StdEncoding.EncodeToString(hash),
		Salt:         base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// matches compares password against the stored hash in constant time.
func (c *Credential) matches(password string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(c.Salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	stored, err := base64.StdEncoding.DecodeString(c.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	candidate := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(stored, candidate) == 1, nil
}

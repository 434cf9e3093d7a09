// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Borrower is a registered library patron.
type Borrower struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Email       string          `json:"email" db:"email"`
	Phone       string          `json:"phone,omitempty" db:"phone"`
	EnrolledOn  time.Time       `json:"enrolled_on" db:"enrolled_on"`
	FineBalance decimal.Decimal `json:"fine_balance" db:"fine_balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Credential holds a borrower's password hash. It is never serialised.
type Credential struct {
	BorrowerID   uuid.UUID `json:"-" db:"borrower_id"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
}

// BorrowerUpdate carries an edit of a borrower's profile. A zero EnrolledOn
// or a nil FineBalance keeps the stored value.
type BorrowerUpdate struct {
	Name        string
	Email       string
	Phone       string
	EnrolledOn  time.Time
	FineBalance *decimal.Decimal
}

// Registration carries the fields of a new borrower.
type Registration struct {
	Name       string
	Email      string
	Phone      string
	EnrolledOn time.Time
	Password   string
}

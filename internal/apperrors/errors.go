// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationKind classifies a rejected input.
type ValidationKind string

const (
	InvalidDateRange ValidationKind = "invalid_date_range"
	FutureLoanDate   ValidationKind = "future_loan_date"
	AlreadyReturned  ValidationKind = "already_returned"
	InvalidInput     ValidationKind = "invalid_input"
	InvalidPhone     ValidationKind = "invalid_phone"
)

// ValidationError reports input that was rejected before any mutation.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError with a formatted message.
func Validation(kind ValidationKind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Entity names a record type.
type Entity string

const (
	EntityLoan     Entity = "loan"
	EntityBook     Entity = "book"
	EntityBorrower Entity = "borrower"
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity Entity
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError for the given entity and id.
func NotFound(entity Entity, id fmt.Stringer) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// ConstraintKind classifies a violated storage invariant.
type ConstraintKind string

const (
	NegativeCopyCount ConstraintKind = "negative_copy_count"
	Duplicate         ConstraintKind = "duplicate"
	InUse             ConstraintKind = "in_use"
)

// ConstraintError reports a write that would break a storage invariant.
// The enclosing transaction is always rolled back.
type ConstraintError struct {
	Kind    ConstraintKind
	Message string
	Err     error
}

func (e *ConstraintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Constraint builds a ConstraintError.
func Constraint(kind ConstraintKind, message string, err error) error {
	return &ConstraintError{Kind: kind, Message: message, Err: err}
}

// IsValidation reports whether err is a ValidationError of the given kind.
// An empty kind matches any validation error.
func IsValidation(err error, kind ValidationKind) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return kind == "" || ve.Kind == kind
}

// IsNotFound reports whether err is a NotFoundError for the given entity.
// An empty entity matches any not-found error.
func IsNotFound(err error, entity Entity) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return entity == "" || nf.Entity == entity
}

// IsConstraint reports whether err is a ConstraintError of the given kind.
// An empty kind matches any constraint error.
func IsConstraint(err error, kind ConstraintKind) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return kind == "" || ce.Kind == kind
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConstraintError
	)
	switch {
	case errors.As(err, &ve):
		if ve.Kind == InvalidInput {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

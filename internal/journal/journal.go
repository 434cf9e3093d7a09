// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names a recorded mutation.
type Operation string

const (
	OpLoanCreated   Operation = "LoanCreated"
	OpLoanReturned  Operation = "LoanReturned"
	OpLoanCancelled Operation = "LoanCancelled"
)

// Entry is one append-only audit record. Entries are written in the same
// transaction as the mutation they describe.
type Entry struct {
	ID         int64           `json:"id" db:"id"`
	Operation  Operation       `json:"operation" db:"operation"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}

// NewEntry marshals payload and stamps the entry with at.
func NewEntry(op Operation, entityType string, entityID uuid.UUID, payload any, at time.Time) (Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal %s payload: %w", op, err)
	}
	return Entry{
		Operation:  op,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    data,
		RecordedAt: at.UTC(),
	}, nil
}

// DefaultLimit caps listings that do not set their own limit.
const DefaultLimit = 100

// Filter selects entries for the audit listing. Zero values are ignored.
type Filter struct {
	From      time.Time
	To        time.Time
	Operation Operation
	Limit     int
}

// EffectiveLimit returns the limit to apply.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

// Matches reports whether e passes the filter. To is inclusive.
func (f Filter) Matches(e Entry) bool {
	if !f.From.IsZero() && e.RecordedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.RecordedAt.After(f.To) {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	return true
}

// Reader lists journal entries newest first.
type Reader interface {
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
}

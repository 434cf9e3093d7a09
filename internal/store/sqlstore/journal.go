// internal/store/sqlstore/journal.go
package sqlstore

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"libraloan/internal/journal"
)

// entryRow copies the payload out of the driver's buffer on scan.
type entryRow struct {
	ID         int64     `db:"id"`
	Operation  string    `db:"operation"`
	EntityType string    `db:"entity_type"`
	EntityID   uuid.UUID `db:"entity_id"`
	Payload    []byte    `db:"payload"`
	RecordedAt time.Time `db:"recorded_at"`
}

// ListEntries returns journal entries newest first.
func (s *Store) ListEntries(ctx context.Context, filter journal.Filter) ([]journal.Entry, error) {
	ds := s.builder.From("journal").
		Select(goquCols("id, operation, entity_type, entity_id, payload, recorded_at")...).
		Order(goqu.I("id").Desc()).
		Limit(uint(filter.EffectiveLimit())).
		Prepared(true)

	var where []exp.Expression
	if !filter.From.IsZero() {
		where = append(where, goqu.I("recorded_at").Gte(filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		where = append(where, goqu.I("recorded_at").Lte(filter.To.UTC()))
	}
	if filter.Operation != "" {
		where = append(where, goqu.I("operation").Eq(string(filter.Operation)))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, classify(err, "build journal listing")
	}

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err, "list journal entries")
	}

	entries := make([]journal.Entry, len(rows))
	for i, r := range rows {
		entries[i] = journal.Entry{
			ID:         r.ID,
			Operation:  journal.Operation(r.Operation),
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Payload:    r.Payload,
			RecordedAt: r.RecordedAt.UTC(),
		}
	}
	return entries, nil
}

// internal/circulation/sweeper.go
package circulation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libraloan/internal/clock"
)

// Sweeper moves pending loans past their expected return date to overdue.
type Sweeper struct {
	store  Store
	clock  clock.Clock
	tracer trace.Tracer
	swept  metric.Int64Counter
}

func NewSweeper(store Store, c clock.Clock) *Sweeper {
	s := &Sweeper{
		store:  store,
		clock:  c,
		tracer: otel.Tracer("libraloan/circulation"),
	}

	var err error
	if s.swept, err = otel.Meter("libraloan/circulation").Int64Counter("loans.swept"); err != nil {
		otel.Handle(err)
	}
	return s
}

// Sweep marks overdue every pending loan whose expected return date is
// before today and returns how many changed. Running it twice on the same
// day changes nothing the second time.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.sweep")
	defer span.End()

	today := clock.Today(s.clock)
	n, err := s.store.MarkOverdue(ctx, today)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to mark overdue loans: %w", err)
	}

	s.swept.Add(ctx, n)
	span.SetAttributes(attribute.Int64("loans.marked_overdue", n))
	if n > 0 {
		slog.Info("loans marked overdue", "count", n, "today", today.Format(clock.DateLayout))
	}
	return n, nil
}

// Middleware runs a sweep before every request so reads never see a stale
// pending status.
func (s *Sweeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.Sweep(r.Context()); err != nil {
			slog.Error("overdue sweep failed", "path", r.URL.Path, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

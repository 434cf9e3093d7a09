package circulation_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"libraloan/internal/circulation"
	"libraloan/internal/clock"
)

func TestSweepMarksOnlyPastDueLoans(t *testing.T) {
	f := newFixture(t, date(2024, 1, 22), 3)
	ctx := context.Background()

	due := f.create(t, date(2024, 1, 1))   // expected 2024-01-21
	today := f.create(t, date(2024, 1, 2)) // expected 2024-01-22
	returned := f.create(t, date(2024, 1, 1))
	_, err := f.engine.ReturnLoan(ctx, returned.ID, date(2024, 1, 20))
	require.NoError(t, err)

	sweeper := circulation.NewSweeper(f.store, f.clock)
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	for id, want := range map[uuid.UUID]circulation.Status{
		due.ID:      circulation.StatusOverdue,
		today.ID:    circulation.StatusPending,
		returned.ID: circulation.StatusReturned,
	} {
		l, err := f.engine.GetLoan(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, l.Status)
	}

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep on the same day must change nothing")
}

func TestReturnOverdueLoan(t *testing.T) {
	f := newFixture(t, date(2024, 2, 1), 1)
	ctx := context.Background()
	loan := f.create(t, date(2024, 1, 1))

	_, err := circulation.NewSweeper(f.store, f.clock).Sweep(ctx)
	require.NoError(t, err)

	res, err := f.engine.ReturnLoan(ctx, loan.ID, date(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, res.Loan.Status)
	assert.Equal(t, 11, res.DaysLate)
	assert.Equal(t, "22.00", res.Fine.StringFixed(2))
}

type failingStore struct {
	circulation.Store
}

func (failingStore) MarkOverdue(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestSweeperMiddleware(t *testing.T) {
	f := newFixture(t, date(2024, 1, 22), 1)
	loan := f.create(t, date(2024, 1, 1))

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	circulation.NewSweeper(f.store, f.clock).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	l, err := f.engine.GetLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusOverdue, l.Status)

	called = false
	rec = httptest.NewRecorder()
	broken := circulation.NewSweeper(failingStore{f.store}, clock.Fixed(date(2024, 1, 22)))
	broken.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// countingMeterProvider sums every Int64Counter.Add by instrument name.
type countingMeterProvider struct {
	noop.MeterProvider
	mu     sync.Mutex
	totals map[string]int64
}

func (p *countingMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return countingMeter{p: p}
}

func (p *countingMeterProvider) total(name string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals[name]
}

type countingMeter struct {
	noop.Meter
	p *countingMeterProvider
}

func (m countingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return countingCounter{name: name, p: m.p}, nil
}

type countingCounter struct {
	noop.Int64Counter
	name string
	p    *countingMeterProvider
}

func (c countingCounter) Add(_ context.Context, incr int64, _ ...metric.AddOption) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.totals[c.name] += incr
}

func TestSweepCountsMarkedLoans(t *testing.T) {
	provider := &countingMeterProvider{totals: map[string]int64{}}
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	f := newFixture(t, date(2024, 2, 1), 3)
	f.create(t, date(2024, 1, 1))
	f.create(t, date(2024, 1, 2))
	f.create(t, date(2024, 1, 31))

	sweeper := circulation.NewSweeper(f.store, f.clock)
	_, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	_, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, provider.total("loans.swept"))
	assert.EqualValues(t, 3, provider.total("loans.created"))
}

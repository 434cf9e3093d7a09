// internal/httpapi/router.go
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"libraloan/internal/catalog"
	"libraloan/internal/circulation"
	"libraloan/internal/clock"
	"libraloan/internal/httpx"
	"libraloan/internal/membership"
	"libraloan/internal/reporting"
	"libraloan/internal/session"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API exposes.
type Deps struct {
	Catalog    catalog.Service
	Membership membership.Service
	Loans      circulation.Service
	Sweeper    *circulation.Sweeper
	Reports    reporting.Service
	Sessions   *session.Issuer
	Clock      clock.Clock
	// Health is optional; without it /healthz always answers ok.
	Health Pinger
}

// NewRouter wires every endpoint. All routes except /healthz run the overdue
// sweep before the handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(tracing)

	r.Get("/healthz", healthz(d.Health))

	r.Group(func(r chi.Router) {
		r.Use(d.Sweeper.Middleware)

		session.NewHandler(d.Membership, d.Sessions).Routes(r)
		catalog.NewHandler(d.Catalog).Routes(r)
		membership.NewHandler(d.Membership).Routes(r)
		circulation.NewHandler(d.Loans, d.Clock).Routes(r)

		reports := reporting.NewHandler(d.Reports)
		reports.Routes(r)
		r.With(d.Sessions.RequireBorrower).Get("/me/statistics", reports.HandleMyStatistics)
	})

	return r
}

func healthz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				slog.Error("health check failed", "err", err)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// tracing starts a server span per request, continuing any propagated trace.
func tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer("libraloan/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}

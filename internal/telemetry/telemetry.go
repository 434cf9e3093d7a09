// internal/telemetry/telemetry.go
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"libraloan/internal/config"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

// Setup installs the global propagator and, when an OTLP endpoint is
// configured, a tracer provider exporting over OTLP/HTTP. Without an endpoint
// spans go to the no-op provider.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.OTLPEndpoint == "" {
		slog.Debug("tracing disabled, no otlp endpoint configured")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
		otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	provider := NewTracerProvider(cfg.ServiceName, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	slog.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)
	return provider.Shutdown, nil
}

// NewTracerProvider builds an SDK tracer provider tagged with the service name.
func NewTracerProvider(serviceName string, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}

// Package telemetry wires the OTLP trace exporter. A run produces one root
// span with a child span per stage/partition execution, so a collector can
// show where a date range spent its time.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "telemetry"

// serviceName identifies this process in exported traces.
const serviceName = "nyc-taxi-analytics-platform"

// Provider owns the tracer provider lifecycle. When telemetry is disabled it
// hands out no-op tracers and Shutdown does nothing.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider builds the tracer provider from configuration. The exporter
// transport is selected by cfg.Protocol ("grpc" or "http").
func NewProvider(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		logger.Debugf("Telemetry is disabled; using a no-op tracer provider.")
		return &Provider{}, nil
	}

	var (
		exporter *otlptrace.Exporter
		err      error
	)
	switch cfg.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("unsupported telemetry protocol '%s' (want 'grpc' or 'http')", cfg.Protocol), nil, false, false)
	}
	if err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to create OTLP trace exporter for endpoint '%s'", cfg.Endpoint), err, false, true)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to build telemetry resource", err, false, false)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	logger.Infof("Telemetry enabled: exporting traces to %s via %s.", cfg.Endpoint, cfg.Protocol)
	return &Provider{tp: tp}, nil
}

// Tracer returns the tracer used by the pipeline.
func (p *Provider) Tracer() trace.Tracer {
	if p.tp == nil {
		return noop.NewTracerProvider().Tracer(serviceName)
	}
	return p.tp.Tracer(serviceName)
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return exception.NewPipelineError(moduleName, "failed to shut down tracer provider", err, false, false)
	}
	return nil
}

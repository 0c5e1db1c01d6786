// Package telemetry installs the OpenTelemetry providers behind the Vale
// invocation metrics and the per-request spans.
//
// Metrics are exported through a Prometheus collector, so they are served
// by the same /metrics endpoint as the request counters. Spans are written
// as JSON to a writer when one is configured and dropped otherwise.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Config selects where telemetry goes.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Registerer receives the metric collector. Nil means
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// TraceWriter receives finished spans. Nil disables tracing.
	TraceWriter io.Writer
}

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

// Init sets the global meter provider, and the global tracer provider when
// cfg.TraceWriter is set. The returned function must be called on exit.
func Init(cfg Config) (ShutdownFunc, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vale-ls"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	if cfg.TraceWriter != nil {
		spans, err := stdouttrace.New(stdouttrace.WithWriter(cfg.TraceWriter))
		if err != nil {
			_ = shutdown(context.Background())
			return nil, fmt.Errorf("create span exporter: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(spans),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	return shutdown, nil
}

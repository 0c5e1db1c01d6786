package vale

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("vale-ls/vale")
	meter  = otel.Meter("vale-ls/vale")
)

var (
	invocationLatency metric.Float64Histogram
	invocationTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		invocationLatency, metricsErr = meter.Float64Histogram(
			"vale_invocation_duration_seconds",
			metric.WithDescription("Duration of Vale CLI invocations"),
			metric.WithUnit("s"),
		)
		if metricsErr != nil {
			return
		}
		invocationTotal, metricsErr = meter.Int64Counter(
			"vale_invocations_total",
			metric.WithDescription("Vale CLI invocations by subcommand and outcome"),
		)
	})
	return metricsErr
}

func startSpan(ctx context.Context, op, dir string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "vale."+op,
		trace.WithAttributes(
			attribute.String("vale.op", op),
			attribute.String("vale.dir", dir),
		),
	)
}

func recordInvocation(ctx context.Context, op string, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	)
	invocationLatency.Record(ctx, elapsed.Seconds(), attrs)
	invocationTotal.Add(ctx, 1, attrs)
}

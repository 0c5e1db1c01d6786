package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/errata-ai/vale-ls/jsonrpc"
)

var tracer = otel.Tracer("vale-ls/lsp")

// Tracing starts a span per call named after the LSP method. Vale
// invocations made while handling the call become its children.
func Tracing() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
			ctx, span := tracer.Start(ctx, method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("rpc.system", "jsonrpc"),
					attribute.String("rpc.method", method),
				),
			)
			defer span.End()

			ctx = context.WithValue(ctx, traceMethodKey{}, method)
			result, err := next(ctx, method, params)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}

type traceMethodKey struct{}

// TraceMethod returns the LSP method being handled, if Tracing is in the
// chain.
func TraceMethod(ctx context.Context) string {
	if v, ok := ctx.Value(traceMethodKey{}).(string); ok {
		return v
	}
	return ""
}

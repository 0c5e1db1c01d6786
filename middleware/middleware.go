// Package middleware wraps request and notification dispatch with logging,
// panic recovery, Prometheus telemetry and OpenTelemetry spans.
package middleware

import (
	"context"

	"github.com/errata-ai/vale-ls/jsonrpc"
)

// Handler processes one JSON-RPC method call. Notifications pass through
// the same chain with a nil result.
type Handler func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain composes mws so that the first one runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/errata-ai/vale-ls/jsonrpc"
)

// Recovery turns a handler panic into a CodeInternalError response and logs
// the stack. A nil logger uses slog.Default.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "panic in handler",
						"method", method,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)
					result = nil
					err = jsonrpc.Errorf(jsonrpc.CodeInternalError, fmt.Sprintf("internal error: %v", r))
				}
			}()
			return next(ctx, method, params)
		}
	}
}

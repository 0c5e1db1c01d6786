package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errata-ai/vale-ls/jsonrpc"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
				order = append(order, name)
				return next(ctx, method, params)
			}
		}
	}
	h := Chain(tag("outer"), tag("inner"))(func(context.Context, string, jsonrpc.RawMessage) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	_, _ = h(context.Background(), "textDocument/hover", nil)

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Recovery(logger)(func(context.Context, string, jsonrpc.RawMessage) (any, error) {
		panic("boom")
	})
	result, err := h(context.Background(), "textDocument/codeAction", nil)

	assert.Nil(t, result)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc.CodeInternalError, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "boom")
	assert.Contains(t, buf.String(), "textDocument/codeAction")
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := Logging(logger)(func(context.Context, string, jsonrpc.RawMessage) (any, error) { return "x", nil })
	failing := Logging(logger)(func(context.Context, string, jsonrpc.RawMessage) (any, error) {
		return nil, errors.New("no config")
	})

	_, _ = ok(context.Background(), "textDocument/hover", nil)
	_, _ = failing(context.Background(), "textDocument/completion", nil)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=\"request handled\" method=textDocument/hover")
	assert.Contains(t, out, "level=ERROR msg=\"request failed\" method=textDocument/completion")
	assert.Contains(t, out, "error=\"no config\"")
}

func TestTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	tests := []struct {
		err     error
		outcome string
	}{
		{nil, "ok"},
		{errors.New("x"), "error"},
		{jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "bad"), "invalid_params"},
		{jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "none"), "method_not_found"},
	}
	for _, tt := range tests {
		h := Telemetry(m)(func(context.Context, string, jsonrpc.RawMessage) (any, error) { return nil, tt.err })
		_, _ = h(context.Background(), "workspace/executeCommand", nil)
		if got := testutil.ToFloat64(m.Requests("workspace/executeCommand", tt.outcome)); got != 1 {
			t.Errorf("requests{%s} = %v, want 1", tt.outcome, got)
		}
	}

	count, err := testutil.GatherAndCount(reg, "vale_ls_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTracingSetsMethod(t *testing.T) {
	var seen string
	h := Tracing()(func(ctx context.Context, _ string, _ jsonrpc.RawMessage) (any, error) {
		seen = TraceMethod(ctx)
		return nil, nil
	})
	_, _ = h(context.Background(), "textDocument/documentLink", nil)
	assert.Equal(t, "textDocument/documentLink", seen)
	assert.Empty(t, TraceMethod(context.Background()))
}

package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/errata-ai/vale-ls/jsonrpc"
)

// Metrics are the per-method Prometheus collectors used by Telemetry.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vale_ls",
			Name:      "requests_total",
			Help:      "LSP messages handled, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vale_ls",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling LSP messages.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"method"}),
	}
}

// Requests returns the counter for method and outcome ("ok", "error" or
// the JSON-RPC error code name).
func (m *Metrics) Requests(method, outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(method, outcome)
}

// Telemetry counts every call and observes its duration.
func Telemetry(m *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
			start := time.Now()
			result, err := next(ctx, method, params)
			m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(method, outcome(err)).Inc()
			return result, err
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case jsonrpc.CodeInvalidParams:
			return "invalid_params"
		case jsonrpc.CodeMethodNotFound:
			return "method_not_found"
		case jsonrpc.CodeInternalError:
			return "internal_error"
		}
	}
	return "error"
}

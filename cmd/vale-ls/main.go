// Command vale-ls is a language server for Vale. It speaks LSP over stdio by
// default; the flags select another transport.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/langserver"
	"github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/telemetry"
	"github.com/errata-ai/vale-ls/vale"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

type flags struct {
	stdio    bool
	tcp      string
	socket   string
	pipe     string
	ws       string
	nodeIPC  bool
	logLevel string
	metrics  string
	traces   string
	binDir   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vale-ls: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "vale-ls",
		Short:         "Language server for the Vale prose linter",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&f.stdio, "stdio", false, "communicate over stdin/stdout (default)")
	fs.StringVar(&f.tcp, "tcp", "", "listen for one client on a TCP address")
	fs.StringVar(&f.socket, "socket", "", "listen for one client on a Unix socket")
	fs.StringVar(&f.pipe, "pipe", "", "connect to a named pipe or Unix socket opened by the client")
	fs.StringVar(&f.ws, "ws", "", "listen for one WebSocket client on an address")
	fs.BoolVar(&f.nodeIPC, "node-ipc", false, "use the Node.js IPC channel")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&f.metrics, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringVar(&f.traces, "trace-file", "", "append OpenTelemetry spans as JSON to this file")
	fs.StringVar(&f.binDir, "bin-dir", "", "directory of the managed Vale executable")
	cmd.MarkFlagsMutuallyExclusive("stdio", "tcp", "socket", "pipe", "ws", "node-ipc")

	return cmd
}

func run(ctx context.Context, f *flags) error {
	logger, err := newLogger(os.Stderr, f.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(f)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("flushing telemetry", "error", err)
		}
	}()

	var opts []vale.Option
	opts = append(opts, vale.WithLogger(logger))
	if f.binDir != "" {
		opts = append(opts, vale.WithBinDir(f.binDir))
	}
	tool, err := vale.NewManager(opts...)
	if err != nil {
		return err
	}

	if f.metrics != "" {
		srv := serveMetrics(f.metrics, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	s := langserver.New(tool, langserver.Options{
		Version: version,
		Logger:  logger,
		Middleware: []middleware.Middleware{
			middleware.Recovery(logger),
			middleware.Tracing(),
			middleware.Telemetry(middleware.NewMetrics(prometheus.DefaultRegisterer)),
			middleware.Logging(logger),
		},
	})
	return valels.Serve(ctx, s, transportOption(f))
}

func initTelemetry(f *flags) (telemetry.ShutdownFunc, error) {
	cfg := telemetry.Config{ServiceVersion: version}
	var traceFile *os.File
	if f.traces != "" {
		var err error
		traceFile, err = os.OpenFile(f.traces, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening trace file: %w", err)
		}
		cfg.TraceWriter = traceFile
	}
	shutdown, err := telemetry.Init(cfg)
	if err != nil {
		if traceFile != nil {
			_ = traceFile.Close()
		}
		return nil, err
	}
	if traceFile == nil {
		return shutdown, nil
	}
	return func(ctx context.Context) error {
		return errors.Join(shutdown(ctx), traceFile.Close())
	}, nil
}

func transportOption(f *flags) valels.ServeOption {
	switch {
	case f.tcp != "":
		return valels.WithTCP(f.tcp)
	case f.socket != "":
		return valels.WithSocket(f.socket)
	case f.pipe != "":
		return valels.WithPipe(f.pipe)
	case f.ws != "":
		return valels.WithWebSocket(f.ws)
	case f.nodeIPC:
		return valels.WithNodeIPC()
	default:
		return valels.WithStdio()
	}
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

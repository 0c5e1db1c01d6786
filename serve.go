package valels

import (
	"context"
	"fmt"

	"github.com/errata-ai/vale-ls/jsonrpc"
	mw "github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/transport"
)

// Serve runs s until the client disconnects, sends exit, or ctx is done.
// Stdio is used when no transport option is given.
func Serve(ctx context.Context, s *Server, opts ...ServeOption) error {
	cfg := &serveConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.transport == nil && cfg.transportFactory != nil {
		var err error
		cfg.transport, err = cfg.transportFactory()
		if err != nil {
			return fmt.Errorf("creating transport: %w", err)
		}
	}
	if cfg.transport == nil {
		cfg.transport = transport.Stdio()
	}

	codec := jsonrpc.NewCodec(cfg.transport, cfg.transport)

	chain := mw.Chain(s.middlewares...)
	handler := chain(mw.Handler(s.dispatch))
	notif := chain(func(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
		return nil, s.dispatchNotification(ctx, method, params)
	})

	conn := jsonrpc.NewConn(codec,
		jsonrpc.Handler(handler),
		func(ctx context.Context, method string, params jsonrpc.RawMessage) {
			if !s.applyNotification(ctx, method, params) {
				return
			}
			// Handlers may run Vale; the read loop must keep going.
			go func() {
				if _, err := notif(ctx, method, params); err != nil {
					s.logger.Warn("notification failed", "method", method, "error", err)
				}
			}()
		},
		jsonrpc.WithLogger(s.logger),
	)
	s.conn = conn
	s.client = newClientProxy(conn)

	if s.diagEngine != nil {
		s.diagEngine.SetPublish(s.client.PublishDiagnostics)
	}
	for _, fn := range s.onConnect {
		fn(s.client)
	}

	if s.configHolder != nil {
		defer s.configHolder.close()
	}

	s.logger.Info("vale-ls starting", "name", s.name, "version", s.version)

	if err := conn.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

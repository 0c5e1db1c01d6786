package valels

import (
	"log/slog"

	"github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/transport"
	"github.com/errata-ai/vale-ls/treesitter"
)

// Option configures a Server during construction.
type Option func(*Server)

// ServeOption configures how the server is served.
type ServeOption func(*serveConfig)

type serveConfig struct {
	transport        transport.Transport
	transportFactory func() (transport.Transport, error)
}

// WithLogger sets the server-side logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithStylesRoot sets how the session finds the active StylesPath when it
// classifies .yml documents. Without it no rule file is tracked.
func WithStylesRoot(fn session.StylesRootFunc) Option {
	return func(s *Server) {
		s.stylesRoot = fn
	}
}

// WithTreeSitter parses tracked rule documents and runs registered checks
// and analyzers on every update.
func WithTreeSitter(cfg treesitter.Config) Option {
	return func(s *Server) {
		s.tsConfig = &cfg
	}
}

// WithMiddleware appends to the dispatch chain. The first middleware is
// outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mws...)
	}
}

// WithExitFunc replaces os.Exit for the exit notification.
func WithExitFunc(fn func(code int)) Option {
	return func(s *Server) {
		s.exit = fn
	}
}

// WithStdio serves over stdin and stdout.
func WithStdio() ServeOption {
	return func(cfg *serveConfig) {
		cfg.transport = transport.Stdio()
	}
}

// WithTransport serves over t.
func WithTransport(t transport.Transport) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transport = t
	}
}

// WithTCP accepts one client on addr, e.g. ":9257".
func WithTCP(addr string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenTCP(addr)
		}
	}
}

// WithSocket accepts one client on a Unix domain socket.
func WithSocket(path string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenSocket(path)
		}
	}
}

// WithPipe connects to the socket or named pipe the editor created.
func WithPipe(name string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.DialSocket(name)
		}
	}
}

// WithWebSocket accepts one WebSocket client on addr.
func WithWebSocket(addr string) ServeOption {
	return func(cfg *serveConfig) {
		cfg.transportFactory = func() (transport.Transport, error) {
			return transport.ListenWebSocket(addr)
		}
	}
}

// WithNodeIPC serves over the VS Code extension host's IPC channel.
func WithNodeIPC() ServeOption {
	return func(cfg *serveConfig) {
		cfg.transport = transport.NodeIPC()
	}
}

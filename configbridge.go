package valels

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/errata-ai/vale-ls/config"
)

// configHolder lets the server hold a settings store of any type.
type configHolder interface {
	startWatcher(logger *slog.Logger, rootDir string) error
	reload(logger *slog.Logger)
	close()
}

type typedConfigHolder[T any] struct {
	store    *config.Store[T]
	filename string
	defaults *T

	mu        sync.Mutex
	reloaders []*config.Reloader[T]
	watchers  []*config.Watcher
}

// WithConfig loads filename from each workspace folder into a typed store
// and reloads it whenever the file changes or the client sends
// workspace/didChangeConfiguration. defaults is used when no file exists.
func WithConfig[T any](filename string, defaults T) Option {
	return func(s *Server) {
		initial := defaults
		s.configHolder = &typedConfigHolder[T]{
			store:    config.NewStore(&initial),
			filename: filename,
			defaults: &defaults,
		}
	}
}

// Config returns the current settings value, or nil when T does not match
// the type given to WithConfig.
func Config[T any](ctx *Context) *T {
	if h, ok := ctx.server.configHolder.(*typedConfigHolder[T]); ok {
		return h.store.Get()
	}
	return nil
}

// OnConfigChange registers fn to run after each reload. T must match the
// type given to WithConfig.
func OnConfigChange[T any](s *Server, fn func(ctx *Context, old, next *T)) {
	h, ok := s.configHolder.(*typedConfigHolder[T])
	if !ok {
		return
	}
	h.store.OnChange(func(old, next *T) {
		fn(newContext(context.Background(), s), old, next)
	})
}

func (h *typedConfigHolder[T]) startWatcher(logger *slog.Logger, rootDir string) error {
	path := filepath.Join(rootDir, h.filename)
	r := config.NewReloader(h.store, path, h.defaults, logger)
	if err := r.Reload(); err != nil {
		logger.Warn("failed to load settings", "path", path, "error", err)
	}

	h.mu.Lock()
	h.reloaders = append(h.reloaders, r)
	h.mu.Unlock()

	w, err := config.NewWatcher(path, func() {
		if err := r.Reload(); err != nil {
			logger.Warn("failed to reload settings", "path", path, "error", err)
		}
	}, config.WithWatcherLogger(logger))
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.watchers = append(h.watchers, w)
	h.mu.Unlock()
	return nil
}

func (h *typedConfigHolder[T]) reload(logger *slog.Logger) {
	h.mu.Lock()
	reloaders := append([]*config.Reloader[T](nil), h.reloaders...)
	h.mu.Unlock()

	for _, r := range reloaders {
		if err := r.Reload(); err != nil {
			logger.Warn("failed to reload settings", "path", r.Path(), "error", err)
		}
	}
}

func (h *typedConfigHolder[T]) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		_ = w.Close()
	}
	h.watchers = nil
}

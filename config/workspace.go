package config

import (
	"errors"
	"log/slog"
)

// Reloader reloads one settings file into a Store. The file watcher and
// workspace/didChangeConfiguration both go through Reload.
type Reloader[T any] struct {
	store    *Store[T]
	path     string
	defaults *T
	logger   *slog.Logger
}

// NewReloader creates a reloader for the file at path.
func NewReloader[T any](store *Store[T], path string, defaults *T, logger *slog.Logger) *Reloader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader[T]{store: store, path: path, defaults: defaults, logger: logger}
}

// Path returns the watched file.
func (r *Reloader[T]) Path() string { return r.path }

// Reload reads the file and swaps the result into the store. Unknown keys
// are logged and the rest of the file still applies; any other error leaves
// the store untouched.
func (r *Reloader[T]) Reload() error {
	cfg, err := LoadTOML(r.path, r.defaults)
	var unknown *UnknownKeysError
	if errors.As(err, &unknown) {
		r.logger.Warn("ignoring unknown settings", "path", r.path, "keys", unknown.Keys)
		err = nil
	}
	if err != nil {
		return err
	}
	r.store.Swap(cfg)
	return nil
}

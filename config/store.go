// Package config loads the optional per-workspace settings file, keeps the
// current value in a Store and reloads it when the file changes on disk.
package config

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Store holds the current settings value. Reads never block.
type Store[T any] struct {
	value atomic.Pointer[T]

	mu        sync.RWMutex
	listeners []func(old, next *T)
}

// NewStore creates a store holding initial.
func NewStore[T any](initial *T) *Store[T] {
	s := &Store[T]{}
	s.value.Store(initial)
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() *T {
	return s.value.Load()
}

// Swap replaces the value, runs every listener in registration order and
// returns the previous value.
func (s *Store[T]) Swap(next *T) *T {
	old := s.value.Swap(next)

	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(old, next)
	}
	return old
}

// OnChange registers fn to run after each Swap.
func (s *Store[T]) OnChange(fn func(old, next *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}


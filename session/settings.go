package session

import (
	"encoding/json"
	"maps"
	"sync"
)

// Setting keys accepted in initializationOptions.
const (
	KeyInstallVale   = "installVale"
	KeyConfigPath    = "configPath"
	KeyFilter        = "filter"
	KeySyncOnStartup = "syncOnStartup"
	// KeyRoot holds the workspace root path taken from rootUri.
	KeyRoot = "root"
)

// Settings is a concurrency-safe string-keyed value store. Values are kept as
// decoded from JSON, so numbers are float64 and objects are maps.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSettings returns an empty store.
func NewSettings() *Settings {
	return &Settings{values: make(map[string]any)}
}

// Set stores v under key.
func (s *Settings) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Get returns the raw value for key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the value for key when it is a string, else "".
func (s *Settings) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Bool returns the value for key when it is a bool, else false.
func (s *Settings) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// MergeJSON copies every top-level key of a JSON object into the store.
// null or empty input is a no-op.
func (s *Settings) MergeJSON(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, m)
	return nil
}

// SetDefault stores v only when key has no value yet.
func (s *Settings) SetDefault(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		s.values[key] = v
	}
}

// Snapshot returns a copy of all values.
func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

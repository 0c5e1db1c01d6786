package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Validatable is implemented by settings types that check themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// UnknownKeysError lists keys present in a settings file that the target
// type does not declare.
type UnknownKeysError struct {
	Path string
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("%s: unknown keys %s", e.Path, strings.Join(e.Keys, ", "))
}

// LoadTOML decodes the TOML file at path over a copy of defaults. A missing
// file yields defaults unchanged. Undeclared keys are reported as an
// *UnknownKeysError alongside the decoded value, which is still usable.
func LoadTOML[T any](path string, defaults *T) (*T, error) {
	cfg := new(T)
	if defaults != nil {
		*cfg = *defaults
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	if v, ok := any(cfg).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating settings %s: %w", path, err)
		}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		return cfg, &UnknownKeysError{Path: path, Keys: keys}
	}
	return cfg, nil
}

package treesitter

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Registry maps file extensions, names and patterns to languages.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]*tree_sitter.Language // ext -> language
	matchers  []LanguageMatcher
}

// NewRegistry creates a registry from a config.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		languages: make(map[string]*tree_sitter.Language, len(cfg.Languages)),
		matchers:  cfg.Matchers,
	}
	for ext, lang := range cfg.Languages {
		r.languages[normalizeExt(ext)] = lang
	}
	return r
}

func normalizeExt(ext string) string {
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// Register adds a language for a file extension.
func (r *Registry) Register(ext string, lang *tree_sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[normalizeExt(ext)] = lang
}

// LanguageFor returns the language for a slash-separated path or URI. It
// tries, in order: matcher file names, matcher patterns, matcher extensions,
// then the extension map.
func (r *Registry) LanguageFor(name string) (*tree_sitter.Language, error) {
	base := path.Base(name)
	ext := path.Ext(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.matchers {
		if slices.Contains(m.Filenames, base) {
			return m.Language, nil
		}
	}

	for _, m := range r.matchers {
		if m.Pattern == "" {
			continue
		}
		if ok, _ := path.Match(m.Pattern, name); ok {
			return m.Language, nil
		}
		if ok, _ := path.Match(m.Pattern, base); ok {
			return m.Language, nil
		}
	}

	if ext != "" {
		for _, m := range r.matchers {
			for _, e := range m.Extensions {
				if normalizeExt(e) == ext {
					return m.Language, nil
				}
			}
		}
		if lang, ok := r.languages[ext]; ok {
			return lang, nil
		}
	}

	return nil, fmt.Errorf("no language registered for: %s", name)
}

// HasLanguage reports whether a language is registered for name.
func (r *Registry) HasLanguage(name string) bool {
	lang, err := r.LanguageFor(name)
	return err == nil && lang != nil
}

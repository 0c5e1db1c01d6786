// Package styles indexes a Vale StylesPath: the styles it contains, the rule
// definitions inside each style and the vocabulary domains under Vocab/.
package styles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	vocabDir  = "Vocab"
	configDir = ".vale-config"
)

// Kind is the type of an indexed entry.
type Kind int

const (
	KindStyle Kind = iota
	KindVocab
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindStyle:
		return "Style"
	case KindVocab:
		return "Vocab"
	case KindRule:
		return "Rule"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one style, rule or vocabulary domain. Size is only set for
// styles and counts the immediate children of the style directory.
type Entry struct {
	Name string
	Size int
	Path string
	Kind Kind
}

// builtin is the style compiled into Vale itself.
var builtin = Entry{Name: "Vale", Size: 4, Kind: KindStyle}

// Index reads a StylesPath. It holds no state besides the root; every query
// walks the directory again.
type Index struct {
	root string
}

// New returns an index over root.
func New(root string) *Index {
	return &Index{root: root}
}

// Root returns the indexed directory.
func (ix *Index) Root() string { return ix.root }

// Entries lists every style, rule and vocabulary entry under the root.
// Directory order follows os.ReadDir, which sorts by name.
func (ix *Index) Entries() ([]Entry, error) {
	children, err := os.ReadDir(ix.root)
	if err != nil {
		return nil, fmt.Errorf("read styles path: %w", err)
	}

	var entries []Entry
	for _, child := range children {
		name := child.Name()
		path := filepath.Join(ix.root, name)
		if name == configDir || !isDir(path, child) {
			continue
		}
		if name == vocabDir {
			vocab, err := indexDir(path, KindVocab)
			if err != nil {
				return nil, err
			}
			entries = append(entries, vocab...)
			continue
		}

		inner, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read style %s: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Size: len(inner), Path: path, Kind: KindStyle})

		rules, err := indexDir(path, KindRule)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rules...)
	}
	return entries, nil
}

// indexDir lists the *.yml files of a style, or the subdirectories of Vocab.
func indexDir(dir string, kind Kind) ([]Entry, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var entries []Entry
	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		if filepath.Ext(path) == ".yml" || (kind == KindVocab && isDir(path, child)) {
			entries = append(entries, Entry{Name: child.Name(), Path: path, Kind: kind})
		}
	}
	return entries, nil
}

// isDir follows symlinks, which style managers commonly use for shared styles.
func isDir(path string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Styles returns the built-in Vale style followed by every style directory.
func (ix *Index) Styles() ([]Entry, error) {
	found, err := ix.filter(KindStyle)
	if err != nil {
		return nil, err
	}
	return append([]Entry{builtin}, found...), nil
}

// Vocab returns the vocabulary domains.
func (ix *Index) Vocab() ([]Entry, error) { return ix.filter(KindVocab) }

// Rules returns every rule definition across all styles.
func (ix *Index) Rules() ([]Entry, error) { return ix.filter(KindRule) }

// Count returns the number of indexed entries of kind. The built-in style is
// not counted.
func (ix *Index) Count(kind Kind) (int, error) {
	found, err := ix.filter(kind)
	return len(found), err
}

func (ix *Index) filter(kind Kind) ([]Entry, error) {
	all, err := ix.Entries()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

// Contains reports whether path lies below the root. The root itself is not
// contained, and an index without a root contains nothing.
func (ix *Index) Contains(path string) bool {
	if ix.root == "" {
		return false
	}
	root := strings.TrimSuffix(filepath.Clean(ix.root), string(filepath.Separator))
	return strings.HasPrefix(filepath.Clean(path), root+string(filepath.Separator))
}

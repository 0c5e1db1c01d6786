// Package treesitter parses the rule definitions a session tracks. A parser
// follows each document from open to close, re-parsing against the previous
// tree on every update so checks only rescan what changed.
package treesitter

import (
	"unicode/utf8"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_yaml "github.com/tree-sitter-grammars/tree-sitter-yaml/bindings/go"

	"github.com/errata-ai/vale-ls/protocol"
)

// YAML returns the grammar used for rule definitions.
func YAML() *tree_sitter.Language {
	return tree_sitter.NewLanguage(unsafe.Pointer(tree_sitter_yaml.Language()))
}

// Config configures the tree-sitter integration.
type Config struct {
	// Languages maps file extensions (e.g. ".yml") to tree-sitter languages.
	Languages map[string]*tree_sitter.Language

	// Matchers are evaluated in order before Languages; the first match wins.
	Matchers []LanguageMatcher
}

// RuleConfig parses .yml and .yaml files with the YAML grammar.
func RuleConfig() Config {
	return Config{
		Matchers: []LanguageMatcher{
			{Language: YAML(), Extensions: []string{".yml", ".yaml"}},
		},
	}
}

// LanguageMatcher associates a language with file names or patterns. At
// least one of Extensions, Filenames or Pattern must be set.
type LanguageMatcher struct {
	Language   *tree_sitter.Language
	Extensions []string // e.g. [".yml", ".yaml"]
	Filenames  []string // exact base names
	Pattern    string   // glob matched against the path and the base name
}

// Tree wraps a tree-sitter Tree together with the source it was parsed from.
type Tree struct {
	raw   *tree_sitter.Tree
	src   []byte
	lines []int // byte offset of each line start
	Diff  *TreeDiff
}

func newTree(raw *tree_sitter.Tree, src []byte, diff *TreeDiff) *Tree {
	lines := []int{0}
	for i, b := range src {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Tree{raw: raw, src: src, lines: lines, Diff: diff}
}

// TreeDiff describes what changed between the previous and current parse.
type TreeDiff struct {
	// ChangedRanges are the ranges where the syntax tree structurally changed.
	ChangedRanges []protocol.Range

	// AffectedKinds is the set of node kinds in the changed subtrees.
	AffectedKinds map[string]bool

	// AffectedNodes are the top-level named nodes containing changes.
	AffectedNodes []*tree_sitter.Node

	// IsFullReparse is true on open.
	IsFullReparse bool
}

// AffectsKind reports whether the diff touches any node of the given kind.
func (d *TreeDiff) AffectsKind(kind string) bool {
	if d == nil {
		return false
	}
	return d.AffectedKinds[kind]
}

// Raw returns the underlying tree-sitter Tree.
func (t *Tree) Raw() *tree_sitter.Tree {
	if t == nil {
		return nil
	}
	return t.raw
}

// RootNode returns the root node of the parse tree.
func (t *Tree) RootNode() *tree_sitter.Node {
	if t == nil || t.raw == nil {
		return nil
	}
	return t.raw.RootNode()
}

// Source returns the text the tree was parsed from.
func (t *Tree) Source() []byte {
	if t == nil {
		return nil
	}
	return t.src
}

// Close releases the tree-sitter tree resources.
func (t *Tree) Close() {
	if t != nil && t.raw != nil {
		t.raw.Close()
	}
}

// Position converts a tree-sitter point, whose column counts bytes, into a
// protocol position whose column counts runes.
func (t *Tree) Position(p tree_sitter.Point) protocol.Position {
	row := int(p.Row)
	if row >= len(t.lines) {
		return protocol.Position{Line: uint32(row), Character: uint32(p.Column)}
	}
	start := t.lines[row]
	end := min(start+int(p.Column), len(t.src))
	return protocol.Position{
		Line:      uint32(row),
		Character: uint32(utf8.RuneCount(t.src[start:end])),
	}
}

// Point is the inverse of Position.
func (t *Tree) Point(pos protocol.Position) tree_sitter.Point {
	row := int(pos.Line)
	if row >= len(t.lines) {
		return tree_sitter.Point{Row: uint(pos.Line), Column: uint(pos.Character)}
	}
	start := t.lines[row]
	col := start
	for n := uint32(0); n < pos.Character && col < len(t.src) && t.src[col] != '\n'; n++ {
		_, size := utf8.DecodeRune(t.src[col:])
		col += size
	}
	return tree_sitter.Point{Row: uint(row), Column: uint(col - start)}
}

// NodeRange converts a node's extent to a protocol range.
func (t *Tree) NodeRange(node *tree_sitter.Node) protocol.Range {
	if t == nil || node == nil {
		return protocol.Range{}
	}
	return protocol.Range{
		Start: t.Position(node.StartPosition()),
		End:   t.Position(node.EndPosition()),
	}
}

package treesitter

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
)

// TreeUpdateFunc is called after a tree is parsed or re-parsed.
type TreeUpdateFunc func(uri protocol.DocumentURI, tree *Tree)

// Manager keeps a parser and the latest tree for every session document
// with a registered language.
type Manager struct {
	registry *Registry
	session  *session.Session
	logger   *slog.Logger

	mu      sync.RWMutex
	parsers map[protocol.DocumentURI]*tree_sitter.Parser
	trees   map[protocol.DocumentURI]*Tree

	onTreeUpdate []TreeUpdateFunc
	onClose      []func(protocol.DocumentURI)
}

// NewManager creates a manager and subscribes it to the session.
func NewManager(cfg Config, sess *session.Session, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		registry: NewRegistry(cfg),
		session:  sess,
		logger:   logger,
		parsers:  make(map[protocol.DocumentURI]*tree_sitter.Parser),
		trees:    make(map[protocol.DocumentURI]*Tree),
	}

	sess.OnOpen(m.handleOpen)
	sess.OnUpdate(m.handleUpdate)
	sess.OnClose(m.handleClose)

	return m
}

// OnTreeUpdate registers a callback that fires after every parse.
func (m *Manager) OnTreeUpdate(fn TreeUpdateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTreeUpdate = append(m.onTreeUpdate, fn)
}

// OnClose registers a callback that fires after a tree is released.
func (m *Manager) OnClose(fn func(protocol.DocumentURI)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = append(m.onClose, fn)
}

// Registry returns the language registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Session returns the session the manager follows.
func (m *Manager) Session() *session.Session {
	return m.session
}

// GetTree returns the current tree for uri, or nil.
func (m *Manager) GetTree(uri protocol.DocumentURI) *Tree {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trees[uri]
}

// LanguageFor returns the language used for a tracked document.
func (m *Manager) LanguageFor(doc *session.Document) (*tree_sitter.Language, error) {
	return m.registry.LanguageFor(filepath.ToSlash(doc.Path()))
}

func (m *Manager) handleOpen(doc *session.Document) {
	uri := doc.URI()
	lang, err := m.LanguageFor(doc)
	if err != nil {
		return
	}

	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		m.logger.Warn("set parser language", "uri", uri, "error", err)
		parser.Close()
		return
	}

	src := []byte(doc.Text())
	raw := parser.Parse(src, nil)

	diff := &TreeDiff{IsFullReparse: true, AffectedKinds: make(map[string]bool)}
	collectSubtreeKinds(raw.RootNode(), diff.AffectedKinds)
	tree := newTree(raw, src, diff)

	m.mu.Lock()
	if old, ok := m.parsers[uri]; ok {
		old.Close()
	}
	if old, ok := m.trees[uri]; ok {
		old.Close()
	}
	m.parsers[uri] = parser
	m.trees[uri] = tree
	callbacks := append([]TreeUpdateFunc(nil), m.onTreeUpdate...)
	m.mu.Unlock()

	doc.SetTree(tree)
	for _, fn := range callbacks {
		fn(uri, tree)
	}
}

// handleUpdate edits the previous tree with the replacement and re-parses
// against it.
func (m *Manager) handleUpdate(doc *session.Document, edit session.EditRange) {
	uri := doc.URI()

	m.mu.Lock()
	parser, ok := m.parsers[uri]
	old := m.trees[uri]
	if !ok || old == nil || old.raw == nil {
		m.mu.Unlock()
		return
	}

	old.raw.Edit(&tree_sitter.InputEdit{
		StartByte:      edit.StartByte,
		OldEndByte:     edit.OldEndByte,
		NewEndByte:     edit.NewEndByte,
		StartPosition:  tree_sitter.Point{Row: edit.StartPoint.Row, Column: edit.StartPoint.Column},
		OldEndPosition: tree_sitter.Point{Row: edit.OldEnd.Row, Column: edit.OldEnd.Column},
		NewEndPosition: tree_sitter.Point{Row: edit.NewEnd.Row, Column: edit.NewEnd.Column},
	})

	src := []byte(doc.Text())
	raw := parser.Parse(src, old.raw)
	tree := newTree(raw, src, nil)
	tree.Diff = computeTreeDiff(old.raw, tree)

	old.Close()
	m.trees[uri] = tree
	callbacks := append([]TreeUpdateFunc(nil), m.onTreeUpdate...)
	m.mu.Unlock()

	doc.SetTree(tree)
	for _, fn := range callbacks {
		fn(uri, tree)
	}
}

func (m *Manager) handleClose(uri protocol.DocumentURI) {
	m.mu.Lock()
	if parser, ok := m.parsers[uri]; ok {
		parser.Close()
		delete(m.parsers, uri)
	}
	if tree, ok := m.trees[uri]; ok {
		tree.Close()
		delete(m.trees, uri)
	}
	callbacks := slices.Clone(m.onClose)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(uri)
	}
}

// computeTreeDiff builds a TreeDiff from the old (edited) and new trees.
func computeTreeDiff(oldRaw *tree_sitter.Tree, tree *Tree) *TreeDiff {
	tsRanges := oldRaw.ChangedRanges(tree.raw)

	diff := &TreeDiff{
		ChangedRanges: make([]protocol.Range, len(tsRanges)),
		AffectedKinds: make(map[string]bool),
	}
	for i, r := range tsRanges {
		diff.ChangedRanges[i] = protocol.Range{
			Start: tree.Position(r.StartPoint),
			End:   tree.Position(r.EndPoint),
		}
	}

	root := tree.raw.RootNode()
	if root == nil {
		return diff
	}

	seen := make(map[uintptr]bool)
	for _, r := range tsRanges {
		node := root.NamedDescendantForPointRange(r.StartPoint, r.EndPoint)
		if node == nil {
			continue
		}

		collectSubtreeKinds(node, diff.AffectedKinds)

		ancestor := findScopeAncestor(node)
		if id := ancestor.Id(); !seen[id] {
			seen[id] = true
			diff.AffectedNodes = append(diff.AffectedNodes, ancestor)
		}
	}

	return diff
}

// findScopeAncestor returns the highest named ancestor below the root.
func findScopeAncestor(node *tree_sitter.Node) *tree_sitter.Node {
	best := node
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Parent() == nil {
			break
		}
		if p.IsNamed() {
			best = p
		}
	}
	return best
}

func collectSubtreeKinds(node *tree_sitter.Node, kinds map[string]bool) {
	if node == nil {
		return
	}
	kinds[node.Kind()] = true
	for i := uint(0); i < node.ChildCount(); i++ {
		collectSubtreeKinds(node.Child(i), kinds)
	}
}

// Close releases all parsers and trees.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uri, parser := range m.parsers {
		parser.Close()
		delete(m.parsers, uri)
	}
	for uri, tree := range m.trees {
		tree.Close()
		delete(m.trees, uri)
	}
}

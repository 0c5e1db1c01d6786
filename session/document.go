package session

import (
	"sync"

	"github.com/errata-ai/vale-ls/protocol"
)

// Document is one tracked file.
type Document struct {
	mu      sync.RWMutex
	uri     protocol.DocumentURI
	path    string
	kind    Kind
	version int32
	text    string

	// tree is owned by the tree-sitter manager; stored untyped to keep this
	// package free of cgo.
	tree any
}

func newDocument(uri protocol.DocumentURI, path string, kind Kind, version int32, text string) *Document {
	return &Document{uri: uri, path: path, kind: kind, version: version, text: text}
}

// URI returns the document's URI.
func (d *Document) URI() protocol.DocumentURI { return d.uri }

// Path returns the local file path behind the URI.
func (d *Document) Path() string { return d.path }

// Kind returns the document's classification as of the last update.
func (d *Document) Kind() Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kind
}

// Version returns the last version seen from the client.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the full text of the document.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Line returns the text of a zero-based line.
func (d *Document) Line(n uint32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LineAt(d.text, n)
}

// SetTree stores the parse tree for the current text.
func (d *Document) SetTree(tree any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tree = tree
}

// Tree returns whatever SetTree stored last.
func (d *Document) Tree() any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tree
}

func (d *Document) replace(kind Kind, version int32, text string) EditRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	edit := replaceAll(d.text, text)
	d.kind = kind
	d.text = text
	d.version = version
	return edit
}

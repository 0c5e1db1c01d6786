// Package session tracks the documents a client has open and the settings it
// supplied. Only Vale configuration files and rule definitions under the
// active StylesPath are kept; everything else is linted straight from disk.
package session

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/errata-ai/vale-ls/protocol"
)

// StylesRootFunc resolves the active StylesPath. It is called on every
// classification of a .yml path and its result is never cached, so edits to
// the Vale configuration apply to the next document event.
type StylesRootFunc func(ctx context.Context) (string, error)

// Session is a concurrency-safe map of tracked documents.
type Session struct {
	stylesRoot StylesRootFunc

	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document

	onOpen   []func(doc *Document)
	onUpdate []func(doc *Document, edit EditRange)
	onClose  []func(uri protocol.DocumentURI)
}

// New creates an empty session. A nil stylesRoot disables rule tracking.
func New(stylesRoot StylesRootFunc) *Session {
	return &Session{
		stylesRoot: stylesRoot,
		docs:       make(map[protocol.DocumentURI]*Document),
	}
}

// OnOpen registers fn to run after a URI is tracked for the first time.
func (s *Session) OnOpen(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, fn)
}

// OnUpdate registers fn to run after the text of a tracked document is replaced.
func (s *Session) OnUpdate(fn func(doc *Document, edit EditRange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, fn)
}

// OnClose registers fn to run after a document is removed.
func (s *Session) OnClose(fn func(uri protocol.DocumentURI)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, fn)
}

// Classify returns the kind of the document behind uri. Non-file URIs are
// KindNone. A failing StylesPath lookup makes every .yml path KindNone.
func (s *Session) Classify(ctx context.Context, uri protocol.DocumentURI) Kind {
	path, ok := URIToPath(uri)
	if !ok {
		return KindNone
	}
	return s.classifyPath(ctx, path)
}

func (s *Session) classifyPath(ctx context.Context, path string) Kind {
	root := ""
	if filepath.Ext(path) == ".yml" && s.stylesRoot != nil {
		r, err := s.stylesRoot(ctx)
		if err != nil {
			return KindNone
		}
		root = r
	}
	return Classify(path, root)
}

// Update stores text for uri and reports whether the document is tracked.
// The URI is classified on every call; a URI that no longer classifies is
// forgotten.
func (s *Session) Update(ctx context.Context, uri protocol.DocumentURI, version int32, text string) (*Document, bool) {
	path, ok := URIToPath(uri)
	if !ok {
		return nil, false
	}
	kind := s.classifyPath(ctx, path)
	if kind == KindNone {
		s.Close(uri)
		return nil, false
	}

	s.mu.Lock()
	doc, existed := s.docs[uri]
	if !existed {
		doc = newDocument(uri, path, kind, version, text)
		s.docs[uri] = doc
	}
	opened := slices.Clone(s.onOpen)
	updated := slices.Clone(s.onUpdate)
	s.mu.Unlock()

	if !existed {
		for _, fn := range opened {
			fn(doc)
		}
		return doc, true
	}

	edit := doc.replace(kind, version, text)
	for _, fn := range updated {
		fn(doc, edit)
	}
	return doc, true
}

// Get returns the tracked document for uri, or nil.
func (s *Session) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// URIs returns the tracked URIs in no particular order.
func (s *Session) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}

// Close forgets uri. It reports whether the document was tracked.
func (s *Session) Close(uri protocol.DocumentURI) bool {
	s.mu.Lock()
	_, ok := s.docs[uri]
	delete(s.docs, uri)
	callbacks := slices.Clone(s.onClose)
	s.mu.Unlock()

	if ok {
		for _, fn := range callbacks {
			fn(uri)
		}
	}
	return ok
}

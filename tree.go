package valels

import (
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/treesitter"
)

// TreeFor returns the parse tree of a rule document, or nil when the
// document has none.
func TreeFor(doc *session.Document) *treesitter.Tree {
	if doc == nil {
		return nil
	}
	t, _ := doc.Tree().(*treesitter.Tree)
	return t
}

// TreeAt returns the parse tree of the tracked document at uri, or nil.
func TreeAt(ctx *Context, uri protocol.DocumentURI) *treesitter.Tree {
	return TreeFor(ctx.Session.Get(uri))
}

package valels

import (
	"encoding/json"

	"github.com/errata-ai/vale-ls/protocol"
)

// Handler function types for the methods vale-ls serves. Request handlers
// return a result and an error; notification handlers return only an error,
// which is logged.

type InitializeHandler func(ctx *Context, params *protocol.InitializeParams) error
type InitializedHandler func(ctx *Context) error

// Text document sync. The session has already been updated when these run.
type DidOpenHandler func(ctx *Context, params *protocol.DidOpenTextDocumentParams) error
type DidChangeHandler func(ctx *Context, params *protocol.DidChangeTextDocumentParams) error
type DidCloseHandler func(ctx *Context, params *protocol.DidCloseTextDocumentParams) error
type DidSaveHandler func(ctx *Context, params *protocol.DidSaveTextDocumentParams) error

// Language features
type HoverHandler func(ctx *Context, params *protocol.HoverParams) (*protocol.Hover, error)
type CompletionHandler func(ctx *Context, params *protocol.CompletionParams) (*protocol.CompletionList, error)
type CodeActionHandler func(ctx *Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error)
type CodeLensHandler func(ctx *Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error)
type DocumentLinkHandler func(ctx *Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error)

// CommandHandler runs one workspace/executeCommand command.
type CommandHandler func(ctx *Context, args []json.RawMessage) (any, error)

// Workspace notifications
type DidChangeConfigurationHandler func(ctx *Context, params *protocol.DidChangeConfigurationParams) error
type DidChangeWorkspaceFoldersHandler func(ctx *Context, params *protocol.DidChangeWorkspaceFoldersParams) error

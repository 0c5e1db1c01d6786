package valels

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
)

// Context wraps context.Context with the services a handler needs.
type Context struct {
	context.Context

	Client   *ClientProxy
	Session  *session.Session
	Settings *session.Settings
	server   *Server
}

func newContext(ctx context.Context, s *Server) *Context {
	return &Context{
		Context:  ctx,
		Client:   s.client,
		Session:  s.sess,
		Settings: s.settings,
		server:   s,
	}
}

// ServerInfo returns the server's name and version.
func (c *Context) ServerInfo() protocol.ServerInfo {
	return protocol.ServerInfo{Name: c.server.name, Version: c.server.version}
}

// Server returns the underlying Server.
func (c *Context) Server() *Server {
	return c.server
}

// Logger returns the server-side logger.
func (c *Context) Logger() *slog.Logger {
	return c.server.logger
}

// WorkspaceRoot returns the first workspace folder, or rootUri when the
// client sent no folders.
func (c *Context) WorkspaceRoot() protocol.DocumentURI {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if len(c.server.workspaceFolders) > 0 {
		return c.server.workspaceFolders[0].URI
	}
	if c.server.rootURI != nil {
		return *c.server.rootURI
	}
	return ""
}

// WorkspaceFolders returns a copy of the current folders, including changes
// made through workspace/didChangeWorkspaceFolders.
func (c *Context) WorkspaceFolders() []protocol.WorkspaceFolder {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	out := make([]protocol.WorkspaceFolder, len(c.server.workspaceFolders))
	copy(out, c.server.workspaceFolders)
	return out
}

// FolderFor returns the workspace folder containing uri, or nil.
func (c *Context) FolderFor(uri protocol.DocumentURI) *protocol.WorkspaceFolder {
	return c.server.FolderFor(uri)
}

// ClientCapabilities returns what the client declared in initialize.
func (c *Context) ClientCapabilities() protocol.ClientCapabilities {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	return c.server.clientCaps
}

// InitOptions returns the raw initializationOptions.
func (c *Context) InitOptions() json.RawMessage {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	return c.server.initOptions
}

package valels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/errata-ai/vale-ls/jsonrpc"
	mw "github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/treesitter"
)

// Server registers handlers, owns the session and settings, and dispatches
// incoming LSP messages.
type Server struct {
	name    string
	version string
	logger  *slog.Logger

	// set during Serve
	conn   *jsonrpc.Conn
	client *ClientProxy

	sess       *session.Session
	settings   *session.Settings
	stylesRoot session.StylesRootFunc

	tsConfig   *treesitter.Config
	tsManager  *treesitter.Manager
	diagEngine *treesitter.DiagnosticEngine

	configHolder configHolder

	middlewares []mw.Middleware
	onConnect   []func(*ClientProxy)
	exit        func(code int)

	mu               sync.RWMutex
	handlers         map[string]any
	commands         map[string]CommandHandler
	initializeHooks  []InitializeHandler
	initializedHooks []InitializedHandler
	rootURI          *protocol.DocumentURI
	workspaceFolders []protocol.WorkspaceFolder
	clientCaps       protocol.ClientCapabilities
	initOptions      json.RawMessage
	initialized      bool
	shutdown         bool
}

// NewServer creates a server. Options are applied immediately, so checks
// and commands can be registered before Serve.
func NewServer(name, version string, opts ...Option) *Server {
	s := &Server{
		name:     name,
		version:  version,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		settings: session.NewSettings(),
		handlers: make(map[string]any),
		commands: make(map[string]CommandHandler),
		exit:     os.Exit,
	}
	for _, o := range opts {
		o(s)
	}

	s.sess = session.New(s.stylesRoot)
	if s.tsConfig != nil {
		s.tsManager = treesitter.NewManager(*s.tsConfig, s.sess, s.logger)
		s.diagEngine = treesitter.NewDiagnosticEngine(s.tsManager, s.logger)
	}
	return s
}

// --- Handler registration ---

func (s *Server) OnHover(h HoverHandler)               { s.register(protocol.MethodHover, h) }
func (s *Server) OnCompletion(h CompletionHandler)     { s.register(protocol.MethodCompletion, h) }
func (s *Server) OnCodeAction(h CodeActionHandler)     { s.register(protocol.MethodCodeAction, h) }
func (s *Server) OnCodeLens(h CodeLensHandler)         { s.register(protocol.MethodCodeLens, h) }
func (s *Server) OnDocumentLink(h DocumentLinkHandler) { s.register(protocol.MethodDocumentLink, h) }

func (s *Server) OnDidOpen(h DidOpenHandler)     { s.register(protocol.MethodDidOpen, h) }
func (s *Server) OnDidChange(h DidChangeHandler) { s.register(protocol.MethodDidChange, h) }
func (s *Server) OnDidClose(h DidCloseHandler)   { s.register(protocol.MethodDidClose, h) }
func (s *Server) OnDidSave(h DidSaveHandler)     { s.register(protocol.MethodDidSave, h) }
func (s *Server) OnDidChangeConfiguration(h DidChangeConfigurationHandler) {
	s.register(protocol.MethodDidChangeConfiguration, h)
}
func (s *Server) OnDidChangeWorkspaceFolders(h DidChangeWorkspaceFoldersHandler) {
	s.register(protocol.MethodDidChangeWorkspaceFolders, h)
}

// OnInitialize registers a hook that runs after the client's root, folders
// and initialization options have been stored, before the response is sent.
// A hook error is logged and does not fail the request.
func (s *Server) OnInitialize(h InitializeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializeHooks = append(s.initializeHooks, h)
}

// OnInitialized registers a hook for the initialized notification.
func (s *Server) OnInitialized(h InitializedHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializedHooks = append(s.initializedHooks, h)
}

// Command registers a workspace/executeCommand handler. Registered names are
// advertised in the executeCommandProvider capability.
func (s *Server) Command(name string, h CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name] = h
}

// OnConnect registers fn to run once the client connection exists, before
// the first message is read.
func (s *Server) OnConnect(fn func(*ClientProxy)) {
	s.onConnect = append(s.onConnect, fn)
}

// Check registers a tree-sitter query check for rule documents. It is a
// no-op without WithTreeSitter.
func (s *Server) Check(name string, c treesitter.Check) {
	if s.diagEngine != nil {
		s.diagEngine.RegisterCheck(name, c)
	}
}

// Analyze registers a Go analyzer for rule documents. It is a no-op without
// WithTreeSitter.
func (s *Server) Analyze(name string, a treesitter.Analyzer) {
	if s.diagEngine != nil {
		s.diagEngine.RegisterAnalyzer(name, a)
	}
}

// --- Accessors ---

// Session returns the tracked documents.
func (s *Server) Session() *session.Session { return s.sess }

// Settings returns the client-supplied settings.
func (s *Server) Settings() *session.Settings { return s.settings }

// TreeSitter returns the tree-sitter manager, or nil.
func (s *Server) TreeSitter() *treesitter.Manager { return s.tsManager }

// DiagnosticEngine returns the rule syntax engine, or nil.
func (s *Server) DiagnosticEngine() *treesitter.DiagnosticEngine { return s.diagEngine }

// Logger returns the server-side logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Client returns the client proxy, or nil before Serve.
func (s *Server) Client() *ClientProxy { return s.client }

func (s *Server) register(method string, handler any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

func (s *Server) getHandler(method string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[method]
	return h, ok
}

func (s *Server) commandNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Server) isInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// --- Dispatch ---

func (s *Server) dispatch(ctx context.Context, method string, params jsonrpc.RawMessage) (any, error) {
	vctx := newContext(ctx, s)

	switch method {
	case protocol.MethodInitialize:
		return s.handleInitialize(vctx, params)
	case protocol.MethodShutdown:
		return s.handleShutdown(vctx)
	}

	if !s.isInitialized() {
		return nil, jsonrpc.Errorf(jsonrpc.CodeServerNotInitialized, "server not initialized")
	}

	if method == protocol.MethodExecuteCommand {
		return s.handleExecuteCommand(vctx, params)
	}

	h, ok := s.getHandler(method)
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, fmt.Sprintf("method not found: %s", method))
	}
	return callHandler(vctx, h, method, params)
}

func (s *Server) dispatchNotification(ctx context.Context, method string, params jsonrpc.RawMessage) error {
	vctx := newContext(ctx, s)

	switch method {
	case protocol.MethodInitialized:
		return s.handleInitialized(vctx)
	case protocol.MethodExit:
		s.logger.Info("received exit notification")
		s.mu.RLock()
		clean := s.shutdown
		s.mu.RUnlock()
		if s.conn != nil {
			s.conn.Close()
		}
		if clean {
			s.exit(0)
		} else {
			s.exit(1)
		}
		return nil
	case protocol.MethodSetTrace:
		return nil
	}

	if !s.isInitialized() {
		return nil
	}

	h, ok := s.getHandler(method)
	if !ok {
		return nil
	}
	_, err := callHandler(vctx, h, method, params)
	return err
}

// applyNotification runs on the read goroutine, ahead of the handler, so the
// session sees document events in arrival order. It reports whether the
// handler should run.
func (s *Server) applyNotification(ctx context.Context, method string, params jsonrpc.RawMessage) bool {
	if !s.isInitialized() {
		return true
	}
	if err := s.syncDocuments(newContext(ctx, s), method, params); err != nil {
		s.logger.Warn("notification failed", "method", method, "error", err)
		return false
	}
	return true
}

// syncDocuments keeps the session current before any handler sees the
// notification. Only the full-text sync kind is advertised, so the last
// content change carries the whole document.
func (s *Server) syncDocuments(ctx *Context, method string, params jsonrpc.RawMessage) error {
	switch method {
	case protocol.MethodDidOpen:
		p, err := decode[protocol.DidOpenTextDocumentParams](params)
		if err != nil {
			return err
		}
		doc := p.TextDocument
		s.sess.Update(ctx, doc.URI, doc.Version, doc.Text)

	case protocol.MethodDidChange:
		p, err := decode[protocol.DidChangeTextDocumentParams](params)
		if err != nil {
			return err
		}
		if n := len(p.ContentChanges); n > 0 {
			s.sess.Update(ctx, p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges[n-1].Text)
		}

	case protocol.MethodDidSave:
		p, err := decode[protocol.DidSaveTextDocumentParams](params)
		if err != nil {
			return err
		}
		if p.Text != nil {
			version := int32(0)
			if doc := s.sess.Get(p.TextDocument.URI); doc != nil {
				version = doc.Version()
			}
			s.sess.Update(ctx, p.TextDocument.URI, version, *p.Text)
		}

	case protocol.MethodDidClose:
		p, err := decode[protocol.DidCloseTextDocumentParams](params)
		if err != nil {
			return err
		}
		s.sess.Close(p.TextDocument.URI)

	case protocol.MethodDidChangeWorkspaceFolders:
		p, err := decode[protocol.DidChangeWorkspaceFoldersParams](params)
		if err != nil {
			return err
		}
		s.handleWorkspaceFolderChange(p.Event)

	case protocol.MethodDidChangeConfiguration:
		if s.configHolder != nil {
			s.configHolder.reload(s.logger)
		}
	}
	return nil
}

func (s *Server) handleInitialize(ctx *Context, params jsonrpc.RawMessage) (any, error) {
	p, err := decode[protocol.InitializeParams](params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rootURI = p.RootURI
	s.workspaceFolders = p.WorkspaceFolders
	s.clientCaps = p.Capabilities
	s.initOptions = p.InitializationOptions
	if len(s.workspaceFolders) == 0 && s.rootURI != nil {
		s.workspaceFolders = []protocol.WorkspaceFolder{
			{URI: *s.rootURI, Name: uriBasename(*s.rootURI)},
		}
	}
	hooks := slices.Clone(s.initializeHooks)
	s.mu.Unlock()

	if p.RootURI != nil {
		if root, ok := session.URIToPath(*p.RootURI); ok {
			s.settings.Set(session.KeyRoot, root)
		}
	}
	if len(p.InitializationOptions) > 0 {
		if err := s.settings.MergeJSON(p.InitializationOptions); err != nil {
			s.logger.Warn("ignoring initializationOptions", "error", err)
		}
	}

	if s.configHolder != nil {
		s.startConfigWatchers()
	}

	for _, h := range hooks {
		if err := h(ctx, p); err != nil {
			s.logger.Error("initialize hook", "error", err)
		}
	}

	caps := s.buildCapabilities()

	s.mu.Lock()
	s.initialized = true
	folders := len(s.workspaceFolders)
	s.mu.Unlock()

	s.logger.Info("server initialized",
		"name", s.name,
		"version", s.version,
		"workspaceFolders", folders,
	)

	return &protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}, nil
}

func (s *Server) handleInitialized(ctx *Context) error {
	s.mu.RLock()
	hooks := slices.Clone(s.initializedHooks)
	s.mu.RUnlock()

	s.logger.Info("client initialized")
	var firstErr error
	for _, h := range hooks {
		if err := h(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) handleShutdown(_ *Context) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.logger.Info("server shutting down")
	if s.tsManager != nil {
		s.tsManager.Close()
	}
	return nil, nil
}

func (s *Server) handleExecuteCommand(ctx *Context, params jsonrpc.RawMessage) (any, error) {
	p, err := decode[protocol.ExecuteCommandParams](params)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	h, ok := s.commands[p.Command]
	s.mu.RUnlock()
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown command: %s", p.Command))
	}
	return h(ctx, p.Arguments)
}

func (s *Server) startConfigWatchers() {
	folders := s.folderPaths()
	if len(folders) == 0 {
		folders = []string{"."}
	}
	for _, dir := range folders {
		if err := s.configHolder.startWatcher(s.logger, dir); err != nil {
			s.logger.Warn("settings watcher failed to start", "dir", dir, "error", err)
		}
	}
}

func (s *Server) folderPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, f := range s.workspaceFolders {
		if p, ok := session.URIToPath(f.URI); ok {
			out = append(out, p)
		}
	}
	return out
}

func uriBasename(uri protocol.DocumentURI) string {
	return path.Base(strings.TrimRight(string(uri), "/"))
}

func (s *Server) handleWorkspaceFolderChange(event protocol.WorkspaceFoldersChangeEvent) {
	s.mu.Lock()
	for _, removed := range event.Removed {
		s.workspaceFolders = slices.DeleteFunc(s.workspaceFolders, func(f protocol.WorkspaceFolder) bool {
			return f.URI == removed.URI
		})
	}
	s.workspaceFolders = append(s.workspaceFolders, event.Added...)
	s.mu.Unlock()

	s.logger.Info("workspace folders changed",
		"added", len(event.Added),
		"removed", len(event.Removed),
	)
}

// FolderFor returns the workspace folder containing uri by longest prefix,
// or nil.
func (s *Server) FolderFor(uri protocol.DocumentURI) *protocol.WorkspaceFolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *protocol.WorkspaceFolder
	bestLen := 0
	for i := range s.workspaceFolders {
		prefix := strings.TrimRight(string(s.workspaceFolders[i].URI), "/") + "/"
		if strings.HasPrefix(string(uri), prefix) && len(prefix) > bestLen {
			best = &s.workspaceFolders[i]
			bestLen = len(prefix)
		}
	}
	return best
}

func decode[T any](params jsonrpc.RawMessage) (*T, error) {
	p := new(T)
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, p); err != nil {
		return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidParams, err.Error())
	}
	return p, nil
}

// callHandler decodes params for method and calls handler.
func callHandler(ctx *Context, handler any, method string, params jsonrpc.RawMessage) (any, error) {
	switch h := handler.(type) {
	case HoverHandler:
		return call(ctx, params, h)
	case CompletionHandler:
		return call(ctx, params, h)
	case CodeActionHandler:
		return call(ctx, params, h)
	case CodeLensHandler:
		return call(ctx, params, h)
	case DocumentLinkHandler:
		return call(ctx, params, h)

	case DidOpenHandler:
		return notify(ctx, params, h)
	case DidChangeHandler:
		return notify(ctx, params, h)
	case DidCloseHandler:
		return notify(ctx, params, h)
	case DidSaveHandler:
		return notify(ctx, params, h)
	case DidChangeConfigurationHandler:
		return notify(ctx, params, h)
	case DidChangeWorkspaceFoldersHandler:
		return notify(ctx, params, h)

	default:
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, fmt.Sprintf("no handler for method: %s", method))
	}
}

func call[P, R any](ctx *Context, params jsonrpc.RawMessage, h func(*Context, *P) (R, error)) (any, error) {
	p, err := decode[P](params)
	if err != nil {
		return nil, err
	}
	return h(ctx, p)
}

func notify[P any](ctx *Context, params jsonrpc.RawMessage, h func(*Context, *P) error) (any, error) {
	p, err := decode[P](params)
	if err != nil {
		return nil, err
	}
	return nil, h(ctx, p)
}

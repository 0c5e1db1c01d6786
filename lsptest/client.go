// Package lsptest drives a vale-ls server from tests. It includes an
// in-memory client that talks to the server without network I/O, plus
// assertion helpers for the requests vale-ls answers.
package lsptest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/jsonrpc"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/transport"
)

// settle is how long notification helpers wait for the server to process
// what they sent. Requests run concurrently with notifications, so a request
// sent straight after didOpen could otherwise miss the document.
const settle = 20 * time.Millisecond

// Client is a test LSP client connected to a server over an in-memory
// transport.
type Client struct {
	t      testing.TB
	conn   *jsonrpc.Conn
	result *protocol.InitializeResult

	mu            sync.Mutex
	notifications []notification
}

type notification struct {
	Method string
	Params json.RawMessage
}

type clientConfig struct {
	params protocol.InitializeParams
}

// ClientOption adjusts the initialize request.
type ClientOption func(*clientConfig)

// WithRoot sends dir as rootUri and as the only workspace folder.
func WithRoot(dir string) ClientOption {
	return func(c *clientConfig) {
		uri := protocol.DocumentURI(FileURI(dir))
		c.params.RootURI = &uri
		c.params.WorkspaceFolders = []protocol.WorkspaceFolder{{URI: uri, Name: "root"}}
	}
}

// WithInitOptions sends v, marshaled, as initializationOptions.
func WithInitOptions(v any) ClientOption {
	return func(c *clientConfig) {
		raw, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("lsptest: marshal init options: %v", err))
		}
		c.params.InitializationOptions = raw
	}
}

// NewClient starts s in the background, connects a client and completes
// the initialize handshake. Everything is torn down when the test ends.
func NewClient(t testing.TB, s *valels.Server, opts ...ClientOption) *Client {
	t.Helper()
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	clientTransport, serverTransport := transport.MemoryPipe()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{t: t}

	go func() {
		err := valels.Serve(ctx, s, valels.WithTransport(serverTransport))
		if err != nil && ctx.Err() == nil {
			t.Logf("server error: %v", err)
		}
	}()

	codec := jsonrpc.NewCodec(clientTransport, clientTransport)
	c.conn = jsonrpc.NewConn(codec, func(context.Context, string, jsonrpc.RawMessage) (any, error) {
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "client does not handle requests")
	}, func(_ context.Context, method string, params jsonrpc.RawMessage) {
		c.mu.Lock()
		c.notifications = append(c.notifications, notification{Method: method, Params: json.RawMessage(params)})
		c.mu.Unlock()
	})

	go func() {
		_ = c.conn.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		c.conn.Close()
		_ = clientTransport.Close()
	})

	c.result = c.Initialize(&cfg.params)
	return c
}

// InitializeResult returns the server's answer to the handshake NewClient
// performed.
func (c *Client) InitializeResult() *protocol.InitializeResult {
	return c.result
}

// Initialize sends initialize and then initialized.
func (c *Client) Initialize(params *protocol.InitializeParams) *protocol.InitializeResult {
	c.t.Helper()
	var result protocol.InitializeResult
	c.call(protocol.MethodInitialize, params, &result)
	c.notify(protocol.MethodInitialized, &protocol.InitializedParams{})
	time.Sleep(settle)
	return &result
}

// Open sends textDocument/didOpen.
func (c *Client) Open(uri, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: languageID(uri),
			Version:    1,
			Text:       text,
		},
	})
	time.Sleep(settle)
}

func languageID(uri string) string {
	switch {
	case strings.HasSuffix(uri, ".yml"), strings.HasSuffix(uri, ".yaml"):
		return "yaml"
	case strings.HasSuffix(uri, ".ini"):
		return "ini"
	case strings.HasSuffix(uri, ".md"):
		return "markdown"
	default:
		return "plaintext"
	}
}

// Change sends textDocument/didChange with the full new content.
func (c *Client) Change(uri string, version int32, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
	time.Sleep(settle)
}

// Save sends textDocument/didSave including the saved text.
func (c *Client) Save(uri, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Text:         &text,
	})
	time.Sleep(settle)
}

// Close sends textDocument/didClose.
func (c *Client) Close(uri string) {
	c.t.Helper()
	c.notify(protocol.MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
	time.Sleep(settle)
}

// Hover sends textDocument/hover. A null result is returned as nil.
func (c *Client) Hover(uri string, pos protocol.Position) (*protocol.Hover, error) {
	c.t.Helper()
	var result *protocol.Hover
	err := c.callErr(protocol.MethodHover, &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, pos),
	}, &result)
	return result, err
}

// Completion sends textDocument/completion. A null result is returned as nil.
func (c *Client) Completion(uri string, pos protocol.Position) (*protocol.CompletionList, error) {
	c.t.Helper()
	var result *protocol.CompletionList
	err := c.callErr(protocol.MethodCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, pos),
	}, &result)
	return result, err
}

// CodeAction sends textDocument/codeAction for the given diagnostics.
func (c *Client) CodeAction(uri string, rng protocol.Range, diags []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	c.t.Helper()
	var result []protocol.CodeAction
	err := c.callErr(protocol.MethodCodeAction, &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
		Context:      protocol.CodeActionContext{Diagnostics: diags},
	}, &result)
	return result, err
}

// CodeLens sends textDocument/codeLens.
func (c *Client) CodeLens(uri string) ([]protocol.CodeLens, error) {
	c.t.Helper()
	var result []protocol.CodeLens
	err := c.callErr(protocol.MethodCodeLens, &protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}, &result)
	return result, err
}

// DocumentLink sends textDocument/documentLink.
func (c *Client) DocumentLink(uri string) ([]protocol.DocumentLink, error) {
	c.t.Helper()
	var result []protocol.DocumentLink
	err := c.callErr(protocol.MethodDocumentLink, &protocol.DocumentLinkParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	}, &result)
	return result, err
}

// Execute sends workspace/executeCommand and returns the raw result.
func (c *Client) Execute(command string, args ...any) (json.RawMessage, error) {
	c.t.Helper()
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal argument %d: %w", i, err)
		}
		raw[i] = b
	}
	var result json.RawMessage
	err := c.callErr(protocol.MethodExecuteCommand, &protocol.ExecuteCommandParams{
		Command:   command,
		Arguments: raw,
	}, &result)
	return result, err
}

func positionParams(uri string, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Position:     pos,
	}
}

// Diagnostics returns every publishDiagnostics notification received so far.
func (c *Client) Diagnostics() []protocol.PublishDiagnosticsParams {
	c.t.Helper()
	var result []protocol.PublishDiagnosticsParams
	for _, raw := range c.received(protocol.MethodPublishDiagnostics) {
		var p protocol.PublishDiagnosticsParams
		if json.Unmarshal(raw, &p) == nil {
			result = append(result, p)
		}
	}
	return result
}

// LatestDiagnostics returns the most recent diagnostics published for uri,
// and whether any were published at all.
func (c *Client) LatestDiagnostics(uri string) ([]protocol.Diagnostic, bool) {
	c.t.Helper()
	all := c.Diagnostics()
	for i := len(all) - 1; i >= 0; i-- {
		if string(all[i].URI) == uri {
			return all[i].Diagnostics, true
		}
	}
	return nil, false
}

// WaitForDiagnostics polls until diagnostics for uri satisfy match, failing
// the test after timeout. A nil match accepts the first publication.
func (c *Client) WaitForDiagnostics(uri string, timeout time.Duration, match func([]protocol.Diagnostic) bool) []protocol.Diagnostic {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if diags, ok := c.LatestDiagnostics(uri); ok && (match == nil || match(diags)) {
			return diags
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.t.Fatalf("timed out waiting for diagnostics on %s", uri)
	return nil
}

// ShowMessages returns every window/showMessage received so far.
func (c *Client) ShowMessages() []protocol.ShowMessageParams {
	c.t.Helper()
	var result []protocol.ShowMessageParams
	for _, raw := range c.received(protocol.MethodShowMessage) {
		var p protocol.ShowMessageParams
		if json.Unmarshal(raw, &p) == nil {
			result = append(result, p)
		}
	}
	return result
}

// LogMessages returns every window/logMessage received so far.
func (c *Client) LogMessages() []protocol.LogMessageParams {
	c.t.Helper()
	var result []protocol.LogMessageParams
	for _, raw := range c.received(protocol.MethodLogMessage) {
		var p protocol.LogMessageParams
		if json.Unmarshal(raw, &p) == nil {
			result = append(result, p)
		}
	}
	return result
}

// WaitForMessage polls until a showMessage or logMessage containing substr
// arrives and returns its text.
func (c *Client) WaitForMessage(substr string, timeout time.Duration) string {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, m := range c.ShowMessages() {
			if strings.Contains(m.Message, substr) {
				return m.Message
			}
		}
		for _, m := range c.LogMessages() {
			if strings.Contains(m.Message, substr) {
				return m.Message
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.t.Fatalf("timed out waiting for a message containing %q", substr)
	return ""
}

func (c *Client) received(method string) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, n := range c.notifications {
		if n.Method == method {
			out = append(out, n.Params)
		}
	}
	return out
}

// Shutdown sends the shutdown request.
func (c *Client) Shutdown() {
	c.t.Helper()
	c.call(protocol.MethodShutdown, nil, nil)
}

// Exit sends the exit notification.
func (c *Client) Exit() {
	c.t.Helper()
	c.notify(protocol.MethodExit, nil)
}

func (c *Client) call(method string, params, result any) {
	c.t.Helper()
	if err := c.callErr(method, params, result); err != nil {
		c.t.Fatalf("call %s failed: %v", method, err)
	}
}

func (c *Client) callErr(method string, params, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.conn.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("unmarshalling result: %w", err)
		}
	}
	return nil
}

func (c *Client) notify(method string, params any) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Notify(ctx, method, params); err != nil {
		c.t.Fatalf("notify %s failed: %v", method, err)
	}
}

package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/vale"
)

// Linter runs Vale on a file.
type Linter interface {
	Installed() bool
	Lint(ctx context.Context, path string, opts vale.LintOptions) (map[string][]vale.Alert, error)
}

// Client is the part of the client connection the pipeline talks to.
type Client interface {
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error
	LogMessage(ctx context.Context, typ protocol.MessageType, message string) error
	ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error
}

// Pipeline lints saved documents and publishes the alerts merged with any
// syntax diagnostics for the same document.
type Pipeline struct {
	linter   Linter
	settings *session.Settings
	logger   *slog.Logger

	warnOnce sync.Once

	mu     sync.Mutex
	client Client
	lint   map[protocol.DocumentURI][]protocol.Diagnostic
	syntax map[protocol.DocumentURI][]protocol.Diagnostic
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the server-side logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline reading configPath and filter from settings.
func NewPipeline(linter Linter, settings *session.Settings, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		linter:   linter,
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
		lint:     make(map[protocol.DocumentURI][]protocol.Diagnostic),
		syntax:   make(map[protocol.DocumentURI][]protocol.Diagnostic),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetClient sets the connection diagnostics and messages go to. Nothing is
// sent before it is set.
func (p *Pipeline) SetClient(c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = c
}

func (p *Pipeline) currentClient() Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// Run lints the file behind uri and publishes the result. When Vale is not
// installed the client is warned once per pipeline and nothing is linted.
func (p *Pipeline) Run(ctx context.Context, uri protocol.DocumentURI) {
	client := p.currentClient()
	if !p.linter.Installed() {
		p.warnOnce.Do(func() {
			p.logger.WarnContext(ctx, "vale is not installed")
			if client != nil {
				_ = client.LogMessage(ctx, protocol.Warning, "Vale CLI not installed!")
			}
		})
		return
	}

	path, ok := session.URIToPath(uri)
	if !ok {
		return
	}

	alerts, err := p.linter.Lint(ctx, path, vale.LintOptions{
		ConfigPath: p.settings.String(session.KeyConfigPath),
		Filter:     p.settings.String(session.KeyFilter),
	})
	if err != nil {
		p.reportLintError(ctx, client, uri, err)
		return
	}

	diags := []protocol.Diagnostic{}
	for _, list := range alerts {
		for _, a := range list {
			diags = append(diags, AlertToDiagnostic(a))
		}
	}
	p.logger.DebugContext(ctx, "linted", "uri", uri, "alerts", len(diags))

	p.mu.Lock()
	p.lint[uri] = diags
	p.mu.Unlock()
	p.publish(ctx, uri)
}

func (p *Pipeline) reportLintError(ctx context.Context, client Client, uri protocol.DocumentURI, err error) {
	p.logger.ErrorContext(ctx, "lint failed", "uri", uri, "error", err)
	if client == nil {
		return
	}
	_ = client.LogMessage(ctx, protocol.Error, fmt.Sprintf("Parsing error: %v", err))
	_ = client.ShowMessage(ctx, protocol.Error, LintErrorMessage(err))
}

// LintErrorMessage renders a lint failure for users. Vale prints its own
// failures as a JSON object on stderr; that object is shown as
// "path:line:span: text" and anything else is shown as is.
func LintErrorMessage(err error) string {
	var rt vale.RuntimeError
	if json.Unmarshal([]byte(err.Error()), &rt) == nil && rt.Text != "" {
		return rt.String()
	}
	return err.Error()
}

// PublishSyntax records syntax diagnostics for a document and republishes
// it. It has the signature of a tree-sitter publish function.
func (p *Pipeline) PublishSyntax(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	p.mu.Lock()
	p.syntax[params.URI] = params.Diagnostics
	p.mu.Unlock()
	return p.publish(ctx, params.URI)
}

// Forget drops everything cached for uri.
func (p *Pipeline) Forget(uri protocol.DocumentURI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lint, uri)
	delete(p.syntax, uri)
}

// Diagnostics returns the merged diagnostics last published for uri.
func (p *Pipeline) Diagnostics(uri protocol.DocumentURI) []protocol.Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.merged(uri)
}

func (p *Pipeline) merged(uri protocol.DocumentURI) []protocol.Diagnostic {
	all := make([]protocol.Diagnostic, 0, len(p.lint[uri])+len(p.syntax[uri]))
	all = append(all, p.lint[uri]...)
	return append(all, p.syntax[uri]...)
}

func (p *Pipeline) publish(ctx context.Context, uri protocol.DocumentURI) error {
	p.mu.Lock()
	client := p.client
	all := p.merged(uri)
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: all}); err != nil {
		p.logger.WarnContext(ctx, "publish diagnostics", "uri", uri, "error", err)
		return err
	}
	return nil
}

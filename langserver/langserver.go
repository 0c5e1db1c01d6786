// Package langserver implements vale-ls: diagnostics from Vale for any
// document the client opens, plus completion, hover, code lenses and links
// for .vale.ini files and the rule definitions under the active StylesPath.
package langserver

import (
	"context"
	"fmt"
	"log/slog"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/diagnostics"
	"github.com/errata-ai/vale-ls/ini"
	"github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/treesitter"
	"github.com/errata-ai/vale-ls/vale"
)

const (
	// Name is reported in serverInfo.
	Name = "vale-ls"

	// SettingsFile is the optional per-workspace settings file.
	SettingsFile = ".vale-ls.toml"

	CommandSync    = "cli.sync"
	CommandCompile = "cli.compile"
)

// Options configures New. Every field is optional.
type Options struct {
	Version string
	Logger  *slog.Logger

	// Packages lists the installable Vale packages offered for completion
	// after `Packages =`. It defaults to the public package library.
	Packages ini.PackageSource

	Middleware []middleware.Middleware

	// Exit replaces os.Exit for the exit notification.
	Exit func(code int)
}

type handlers struct {
	tool      vale.Tool
	settings  *session.Settings
	pipeline  *diagnostics.Pipeline
	completer *ini.Completer
	logger    *slog.Logger
}

// New builds a server that drives tool. Nothing is read from disk or the
// network until the client connects.
func New(tool vale.Tool, opts Options) *valels.Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	packages := opts.Packages
	if packages == nil {
		client := vale.NewHTTPClient(logger).
			SetRetryCount(0).
			SetTimeout(ini.DefaultLibraryTimeout)
		packages = ini.NewLibrary(client, ini.DefaultLibraryURL)
	}

	h := &handlers{tool: tool, logger: logger}

	serverOpts := []valels.Option{
		valels.WithLogger(logger),
		valels.WithStylesRoot(h.stylesRoot),
		valels.WithTreeSitter(treesitter.RuleConfig()),
		valels.WithConfig(SettingsFile, FileSettings{}),
		valels.WithMiddleware(opts.Middleware...),
	}
	if opts.Exit != nil {
		serverOpts = append(serverOpts, valels.WithExitFunc(opts.Exit))
	}
	s := valels.NewServer(Name, version, serverOpts...)

	h.settings = s.Settings()
	h.pipeline = diagnostics.NewPipeline(tool, h.settings, diagnostics.WithLogger(logger))
	h.completer = ini.NewCompleter(packages, logger)

	if engine := s.DiagnosticEngine(); engine != nil {
		engine.SetPublish(h.pipeline.PublishSyntax)
	}
	s.OnConnect(func(c *valels.ClientProxy) {
		h.pipeline.SetClient(c)
		// The framework points the engine at the client directly; syntax
		// diagnostics must go through the merge instead.
		if engine := s.DiagnosticEngine(); engine != nil {
			engine.SetPublish(h.pipeline.PublishSyntax)
		}
	})
	registerRuleChecks(s)

	valels.OnConfigChange(s, func(_ *valels.Context, _, next *FileSettings) {
		next.Apply(h.settings)
	})

	s.OnInitialize(h.initialize)
	s.OnInitialized(h.initialized)

	s.OnDidOpen(h.didOpen)
	s.OnDidChange(h.didChange)
	s.OnDidSave(h.didSave)
	s.OnDidClose(h.didClose)
	s.OnDidChangeConfiguration(h.didChangeConfiguration)
	s.OnDidChangeWorkspaceFolders(h.didChangeWorkspaceFolders)

	s.OnHover(h.hover)
	s.OnCompletion(h.completion)
	s.OnCodeAction(h.codeAction)
	s.OnCodeLens(h.codeLens)
	s.OnDocumentLink(h.documentLink)

	s.Command(CommandSync, h.sync)
	s.Command(CommandCompile, h.compile)
	s.Command(diagnostics.CommandAddToVocab, h.addToVocab)

	return s
}

func (h *handlers) configPath() string { return h.settings.String(session.KeyConfigPath) }
func (h *handlers) root() string       { return h.settings.String(session.KeyRoot) }

// config asks Vale for the configuration it would use from the workspace
// root. It is not cached, so edits to .vale.ini apply immediately.
func (h *handlers) config(ctx context.Context) (vale.Config, error) {
	return h.tool.Config(ctx, h.configPath(), h.root())
}

func (h *handlers) stylesRoot(ctx context.Context) (string, error) {
	cfg, err := h.config(ctx)
	if err != nil {
		return "", err
	}
	if cfg.StylesPath == "" {
		return "", fmt.Errorf("vale reported no StylesPath")
	}
	return cfg.StylesPath, nil
}

package treesitter

import (
	"context"
	"log/slog"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/errata-ai/vale-ls/protocol"
)

// PublishFunc receives the complete set of tree diagnostics for a document
// after every parse.
type PublishFunc func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error

// DiagnosticEngine runs declarative Checks and imperative Analyzers after
// every tree update and caches their results per document.
type DiagnosticEngine struct {
	mu        sync.Mutex
	checks    []namedCheck
	analyzers []namedAnalyzer

	cache map[protocol.DocumentURI]map[string][]protocol.Diagnostic

	manager *Manager
	publish PublishFunc
	logger  *slog.Logger
}

type namedCheck struct {
	name  string
	check Check
}

type namedAnalyzer struct {
	name     string
	analyzer Analyzer
}

// NewDiagnosticEngine creates an engine fed by manager's tree updates. The
// cache for a document is dropped when the manager releases its tree.
func NewDiagnosticEngine(manager *Manager, logger *slog.Logger) *DiagnosticEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &DiagnosticEngine{
		cache:   make(map[protocol.DocumentURI]map[string][]protocol.Diagnostic),
		manager: manager,
		logger:  logger,
	}
	manager.OnTreeUpdate(e.onTreeUpdate)
	manager.OnClose(e.ClearCache)
	return e
}

// SetPublish sets the function that receives diagnostics. Updates that
// arrive before it is set are analysed but not published.
func (e *DiagnosticEngine) SetPublish(fn PublishFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publish = fn
}

// RegisterCheck adds a declarative check.
func (e *DiagnosticEngine) RegisterCheck(name string, c Check) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checks = append(e.checks, namedCheck{name: name, check: c})
}

// RegisterAnalyzer adds an imperative analyzer.
func (e *DiagnosticEngine) RegisterAnalyzer(name string, a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyzers = append(e.analyzers, namedAnalyzer{name: name, analyzer: a})
}

// ClearCache removes cached diagnostics for a document.
func (e *DiagnosticEngine) ClearCache(uri protocol.DocumentURI) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, uri)
}

// Diagnostics returns the cached diagnostics for uri.
func (e *DiagnosticEngine) Diagnostics(uri protocol.DocumentURI) []protocol.Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return flatten(e.cache[uri])
}

func flatten(fileCache map[string][]protocol.Diagnostic) []protocol.Diagnostic {
	all := []protocol.Diagnostic{}
	for _, diags := range fileCache {
		all = append(all, diags...)
	}
	return all
}

func (e *DiagnosticEngine) onTreeUpdate(uri protocol.DocumentURI, tree *Tree) {
	e.mu.Lock()
	if len(e.checks) == 0 && len(e.analyzers) == 0 {
		e.mu.Unlock()
		return
	}

	doc := e.manager.Session().Get(uri)
	if doc == nil {
		e.mu.Unlock()
		return
	}
	lang, err := e.manager.LanguageFor(doc)
	if err != nil {
		e.mu.Unlock()
		return
	}

	diff := tree.Diff
	if diff == nil {
		diff = &TreeDiff{IsFullReparse: true, AffectedKinds: make(map[string]bool)}
	}

	fileCache := e.cache[uri]
	if fileCache == nil {
		fileCache = make(map[string][]protocol.Diagnostic)
		e.cache[uri] = fileCache
	}

	e.runChecks(tree, diff, lang, fileCache)
	e.runAnalyzers(tree, diff, doc, lang, fileCache)

	all := flatten(fileCache)
	publish := e.publish
	e.mu.Unlock()

	if publish == nil {
		return
	}
	if err := publish(context.Background(), &protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: all}); err != nil {
		e.logger.Warn("publish tree diagnostics", "uri", uri, "error", err)
	}
}

func (e *DiagnosticEngine) runChecks(
	tree *Tree,
	diff *TreeDiff,
	lang *tree_sitter.Language,
	fileCache map[string][]protocol.Diagnostic,
) {
	for _, nc := range e.checks {
		if diff.IsFullReparse {
			fileCache[nc.name] = e.executeCheck(tree, lang, nc)
			continue
		}

		if len(diff.ChangedRanges) == 0 {
			continue
		}

		fresh := e.executeCheckInRanges(tree, lang, nc, diff.ChangedRanges)

		var kept []protocol.Diagnostic
		for _, d := range fileCache[nc.name] {
			if !rangesOverlapAny(d.Range, diff.ChangedRanges) {
				kept = append(kept, d)
			}
		}
		fileCache[nc.name] = append(kept, fresh...)
	}
}

func (e *DiagnosticEngine) executeCheck(tree *Tree, lang *tree_sitter.Language, nc namedCheck) []protocol.Diagnostic {
	captures, err := tree.QueryCaptures(lang, nc.check.Pattern)
	if err != nil {
		e.logger.Warn("check query failed", "check", nc.name, "error", err)
		return nil
	}
	return capturesToDiagnostics(captures, nc)
}

func (e *DiagnosticEngine) executeCheckInRanges(tree *Tree, lang *tree_sitter.Language, nc namedCheck, ranges []protocol.Range) []protocol.Diagnostic {
	captures, err := tree.QueryCapturesInRanges(lang, nc.check.Pattern, ranges)
	if err != nil {
		e.logger.Warn("check scoped query failed", "check", nc.name, "error", err)
		return nil
	}
	return capturesToDiagnostics(captures, nc)
}

func capturesToDiagnostics(captures []Capture, nc namedCheck) []protocol.Diagnostic {
	var diags []protocol.Diagnostic
	for _, c := range captures {
		if nc.check.Filter != nil && !nc.check.Filter(c) {
			continue
		}
		msg := c.Text
		if nc.check.Message != nil {
			msg = nc.check.Message(c)
		}
		source := nc.check.Source
		if source == "" {
			source = nc.name
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    c.Range,
			Severity: nc.check.Severity,
			Code:     nc.name,
			Source:   source,
			Message:  msg,
		})
	}
	return diags
}

func (e *DiagnosticEngine) runAnalyzers(
	tree *Tree,
	diff *TreeDiff,
	doc DocumentView,
	lang *tree_sitter.Language,
	fileCache map[string][]protocol.Diagnostic,
) {
	for _, na := range e.analyzers {
		if !diff.IsFullReparse && !analyzerShouldRun(na.analyzer, diff) {
			continue
		}

		actx := &AnalysisContext{
			Context:  context.Background(),
			Tree:     tree,
			Diff:     diff,
			Document: doc,
			Language: lang,
			Previous: fileCache[na.name],
		}
		fileCache[na.name] = na.analyzer.Run(actx)
	}
}

func analyzerShouldRun(a Analyzer, diff *TreeDiff) bool {
	if len(a.InterestKinds) == 0 {
		return true
	}
	for _, kind := range a.InterestKinds {
		if diff.AffectsKind(kind) {
			return true
		}
	}
	return false
}

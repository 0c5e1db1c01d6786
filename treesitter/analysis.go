package treesitter

import (
	"context"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/errata-ai/vale-ls/protocol"
)

// Check is a pattern-based diagnostic rule. The pattern runs as a
// tree-sitter query, scoped to changed ranges after the first parse, and
// each capture becomes a diagnostic.
type Check struct {
	// Pattern is a tree-sitter query, e.g. "(ERROR) @error".
	Pattern string

	Severity protocol.DiagnosticSeverity

	// Source defaults to the check name.
	Source string

	// Filter, if non-nil, keeps only the captures it returns true for.
	Filter func(Capture) bool

	// Message converts a capture into the diagnostic text. The capture's
	// text is used when nil.
	Message func(Capture) string
}

// AnalysisScope controls when an Analyzer re-runs.
type AnalysisScope int

const (
	// ScopeChanged restricts the analyzer to the changed ranges.
	ScopeChanged AnalysisScope = iota
	// ScopeFile re-runs the analyzer on the whole file when InterestKinds
	// (if set) intersect the diff's affected kinds.
	ScopeFile
)

// Analyzer is a diagnostic rule written in Go.
type Analyzer struct {
	Scope AnalysisScope

	// InterestKinds, if non-empty, skips the analyzer on updates that touch
	// none of these node kinds.
	InterestKinds []string

	Run func(*AnalysisContext) []protocol.Diagnostic
}

// DocumentView is the read side of a tracked document.
type DocumentView interface {
	URI() protocol.DocumentURI
	Path() string
	Text() string
}

// AnalysisContext is passed to Analyzer.Run.
type AnalysisContext struct {
	context.Context

	Tree     *Tree
	Diff     *TreeDiff
	Document DocumentView
	Language *tree_sitter.Language

	// Previous holds this analyzer's last result for the document; nil on
	// the first run.
	Previous []protocol.Diagnostic
}

// MergePrevious keeps the previous diagnostics outside the changed ranges
// and appends fresh.
func (ctx *AnalysisContext) MergePrevious(fresh []protocol.Diagnostic) []protocol.Diagnostic {
	if ctx.Diff == nil || len(ctx.Diff.ChangedRanges) == 0 {
		return fresh
	}

	var merged []protocol.Diagnostic
	for _, d := range ctx.Previous {
		if !rangesOverlapAny(d.Range, ctx.Diff.ChangedRanges) {
			merged = append(merged, d)
		}
	}
	return append(merged, fresh...)
}

func rangesOverlapAny(r protocol.Range, rs []protocol.Range) bool {
	for _, cr := range rs {
		if rangesOverlap(r, cr) {
			return true
		}
	}
	return false
}

func rangesOverlap(a, b protocol.Range) bool {
	return !positionBefore(a.End, b.Start) && !positionBefore(b.End, a.Start)
}

func positionBefore(a, b protocol.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}

package langserver

import (
	"fmt"
	"strings"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/diagnostics"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/rule"
	"github.com/errata-ai/vale-ls/treesitter"
)

// registerRuleChecks adds the syntax diagnostics reported for rule
// definitions while they are edited.
func registerRuleChecks(s *valels.Server) {
	s.Check("yaml-syntax", treesitter.Check{
		Pattern:  "(ERROR) @error",
		Severity: protocol.SeverityError,
		Source:   diagnostics.Source,
		Message: func(treesitter.Capture) string {
			return "invalid YAML"
		},
	})

	s.Analyze("unknown-extends", treesitter.Analyzer{
		Scope: treesitter.ScopeFile,
		Run:   unknownExtends,
	})
}

func unknownExtends(ctx *treesitter.AnalysisContext) []protocol.Diagnostic {
	pairs, err := ctx.Tree.TopLevelPairs(ctx.Language)
	if err != nil {
		return nil
	}
	for _, p := range pairs {
		if p.Key != "extends" {
			continue
		}
		value := strings.Trim(p.Value, `"'`)
		if rule.ParseFamily(value) != rule.Invalid {
			return nil
		}
		return []protocol.Diagnostic{{
			Range:    p.ValueRange,
			Severity: protocol.SeverityError,
			Source:   diagnostics.Source,
			Message:  fmt.Sprintf("unknown rule family %q", value),
		}}
	}
	return nil
}

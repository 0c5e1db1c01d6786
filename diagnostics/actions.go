package diagnostics

import (
	"context"
	"fmt"
	"strings"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/vale"
)

// CommandAddToVocab adds a term to a vocabulary's accept list. Its arguments
// are the domain name and the term.
const CommandAddToVocab = "vale.addToVocab"

// Fixer asks Vale for the replacements of an alert.
type Fixer interface {
	Fix(ctx context.Context, alert vale.Alert) (vale.FixResult, error)
}

// BuildCodeActions returns one quick fix per suggestion for the first
// diagnostic. Alerts without an action name produce no fixes. The returned
// actions carry the request's full diagnostic list.
func BuildCodeActions(ctx context.Context, uri protocol.DocumentURI, diags []protocol.Diagnostic, fixer Fixer) ([]protocol.CodeAction, error) {
	if len(diags) == 0 {
		return nil, nil
	}
	alert, err := AlertFromData(diags[0].Data)
	if err != nil {
		return nil, err
	}
	if !alert.Action.HasName() {
		return nil, nil
	}

	fixed, err := fixer.Fix(ctx, alert)
	if err != nil {
		return nil, err
	}

	name := *alert.Action.Name
	rng := AlertRange(alert)
	if name == "remove" {
		// Take the following space too so no double space is left behind.
		rng.End.Character++
	}

	actions := make([]protocol.CodeAction, 0, len(fixed.Suggestions))
	for _, fix := range fixed.Suggestions {
		actions = append(actions, protocol.CodeAction{
			Title:       Title(name, alert.Match, fix),
			Kind:        protocol.QuickFix,
			Diagnostics: diags,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					uri: {{Range: rng, NewText: fix}},
				},
			},
		})
	}
	return actions, nil
}

// Title names a quick fix.
func Title(action, match, fix string) string {
	if action == "remove" {
		return fmt.Sprintf("Remove ‘%s’", match)
	}
	return fmt.Sprintf("Replace with ‘%s’", fix)
}

// IsSpelling reports whether the alert comes from a spelling rule, the only
// kind a vocabulary entry can silence.
func IsSpelling(a vale.Alert) bool {
	return strings.HasSuffix(a.Check, ".Spelling")
}

// VocabActions offers to accept the first diagnostic's match in each of the
// given vocabularies. Only spelling alerts qualify.
func VocabActions(diags []protocol.Diagnostic, domains []string) []protocol.CodeAction {
	if len(diags) == 0 || len(domains) == 0 {
		return nil
	}
	alert, err := AlertFromData(diags[0].Data)
	if err != nil || !IsSpelling(alert) || alert.Match == "" {
		return nil
	}

	actions := make([]protocol.CodeAction, 0, len(domains))
	for _, domain := range domains {
		title := fmt.Sprintf("Add ‘%s’ to %s vocabulary", alert.Match, domain)
		actions = append(actions, protocol.CodeAction{
			Title:       title,
			Kind:        protocol.QuickFix,
			Diagnostics: diags,
			Command: &protocol.Command{
				Title:     title,
				Command:   CommandAddToVocab,
				Arguments: []any{domain, alert.Match},
			},
		})
	}
	return actions
}

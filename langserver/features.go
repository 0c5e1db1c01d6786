package langserver

import (
	"fmt"
	"net/url"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/diagnostics"
	"github.com/errata-ai/vale-ls/ini"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/rule"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/styles"
)

func (h *handlers) hover(ctx *valels.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
	doc := ctx.Session.Get(p.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	line := doc.Line(p.Position.Line)
	rng, ok := session.PositionToRange(p.Position, line)
	if !ok {
		return nil, nil
	}
	token := session.RangeToToken(rng, line)

	var (
		info  string
		found bool
	)
	switch doc.Kind() {
	case session.KindINI:
		info, found = ini.KeyInfo(token)
	case session.KindRule:
		info, found = rule.Parse(doc.Text()).TokenInfo(token)
	}
	if !found {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: info},
		Range:    &rng,
	}, nil
}

func (h *handlers) completion(ctx *valels.Context, p *protocol.CompletionParams) (*protocol.CompletionList, error) {
	doc := ctx.Session.Get(p.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	cfg, err := h.config(ctx)
	if err != nil {
		h.logger.DebugContext(ctx, "completion without config", "error", err)
		return nil, nil
	}

	line := doc.Line(p.Position.Line)
	var items []protocol.CompletionItem
	switch doc.Kind() {
	case session.KindINI:
		items = h.completer.Complete(ctx, line, cfg.StylesPath)
	case session.KindRule:
		items = rule.Complete(line)
	}
	if items == nil {
		items = []protocol.CompletionItem{}
	}
	return &protocol.CompletionList{Items: items}, nil
}

func (h *handlers) codeAction(ctx *valels.Context, p *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	diags := p.Context.Diagnostics
	if len(diags) == 0 {
		return nil, nil
	}

	actions, err := diagnostics.BuildCodeActions(ctx, p.TextDocument.URI, diags, h.tool)
	if err != nil {
		_ = ctx.Client.LogMessage(ctx, protocol.Error, fmt.Sprintf("Error: %v", err))
		return nil, nil
	}

	if alert, err := diagnostics.AlertFromData(diags[0].Data); err == nil && diagnostics.IsSpelling(alert) {
		actions = append(actions, diagnostics.VocabActions(diags, h.vocabDomains(ctx))...)
	}
	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

func (h *handlers) vocabDomains(ctx *valels.Context) []string {
	root, err := h.stylesRoot(ctx)
	if err != nil {
		return nil
	}
	entries, err := styles.New(root).Vocab()
	if err != nil {
		h.logger.DebugContext(ctx, "list vocabularies", "root", root, "error", err)
		return nil
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// codeLens offers to compile rules whose family has a single pattern,
// anchored on the `extends` key.
func (h *handlers) codeLens(ctx *valels.Context, p *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	doc := ctx.Session.Get(p.TextDocument.URI)
	if doc == nil || doc.Kind() != session.KindRule {
		return nil, nil
	}
	text := doc.Text()
	if !rule.Parse(text).CanCompile() {
		return nil, nil
	}
	rng, ok := rule.KeyRange(valels.TreeFor(doc), text, "extends")
	if !ok {
		return nil, nil
	}
	return []protocol.CodeLens{{
		Range: rng,
		Command: &protocol.Command{
			Title:     "Compile rule",
			Command:   CommandCompile,
			Arguments: []any{string(doc.URI())},
		},
	}}, nil
}

func (h *handlers) documentLink(ctx *valels.Context, p *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	doc := ctx.Session.Get(p.TextDocument.URI)
	if doc == nil || doc.Kind() != session.KindRule {
		return nil, nil
	}
	text := doc.Text()
	link := rule.Parse(text).Link
	if link == "" {
		return nil, nil
	}

	if u, err := url.Parse(link); err != nil || !u.IsAbs() {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, "link has Invalid URL")
		return nil, nil
	}

	rng, ok := rule.LinkRange(text, link)
	if !ok {
		return []protocol.DocumentLink{}, nil
	}
	target := protocol.DocumentURI(link)
	return []protocol.DocumentLink{{Range: rng, Target: &target}}, nil
}

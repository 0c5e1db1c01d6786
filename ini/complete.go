// Package ini provides completions and key documentation for .vale.ini
// files.
package ini

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/styles"
)

var ruleSetting = regexp.MustCompile(`\w+\.\w+ =`)

var (
	levels       = []string{"suggestion", "warning", "error"}
	inlineScopes = []string{"small", "abbr", "em", "kbd", "tt", "code", "b", "i"}
	blockScopes  = []string{"script", "style", "pre", "figure"}
)

var ruleOptions = []struct{ value, description string }{
	{"YES", "Enable the given rule in this scope."},
	{"NO", "Disable the given rule in this scope."},
	{"suggestion", "Set the severity to 'suggestion'."},
	{"warning", "Set the severity to 'warning'."},
	{"error", "Set the severity to 'error'."},
}

// Completer produces completions for a line of a .vale.ini file.
type Completer struct {
	packages PackageSource
	logger   *slog.Logger
}

// NewCompleter returns a completer. packages may be nil, in which case the
// Packages key offers nothing.
func NewCompleter(packages PackageSource, logger *slog.Logger) *Completer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Completer{packages: packages, logger: logger}
}

// Complete returns the completions for line, given the active StylesPath.
// The first matching key wins, in the order BasedOnStyles, MinAlertLevel,
// IgnoredScopes, SkippedScopes, a "Style.Rule =" setting, Vocab, Packages.
func (c *Completer) Complete(ctx context.Context, line, stylesPath string) []protocol.CompletionItem {
	switch {
	case strings.Contains(line, "BasedOnStyles"):
		return c.styles(line, stylesPath)
	case strings.Contains(line, "MinAlertLevel"):
		return valueItems(levels)
	case strings.Contains(line, "IgnoredScopes"):
		return valueItems(inlineScopes)
	case strings.Contains(line, "SkippedScopes"):
		return valueItems(blockScopes)
	case ruleSetting.MatchString(line):
		return ruleItems()
	case strings.Contains(line, "Vocab"):
		return c.vocab(line, stylesPath)
	case strings.Contains(line, "Packages"):
		return c.pkgs(ctx, line)
	default:
		return nil
	}
}

func valueItems(labels []string) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, len(labels))
	for i, l := range labels {
		items[i] = protocol.CompletionItem{Label: l, InsertText: l, Kind: protocol.CompletionKindValue}
	}
	return items
}

func ruleItems() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, len(ruleOptions))
	for i, o := range ruleOptions {
		items[i] = protocol.CompletionItem{
			Label:        o.value,
			InsertText:   o.value,
			Kind:         protocol.CompletionKindValue,
			LabelDetails: &protocol.CompletionItemLabelDetails{Description: o.description},
		}
	}
	return items
}

// styles lists the built-in style and every style directory not already
// named on the line.
func (c *Completer) styles(line, stylesPath string) []protocol.CompletionItem {
	entries, err := styles.New(stylesPath).Styles()
	if err != nil {
		c.logger.Debug("list styles", "path", stylesPath, "error", err)
		return nil
	}
	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, e := range entries {
		if e.Path != "" && strings.Contains(line, e.Name) {
			continue
		}
		item := protocol.CompletionItem{
			Label:        e.Name,
			InsertText:   e.Name,
			Kind:         protocol.CompletionKindValue,
			LabelDetails: &protocol.CompletionItemLabelDetails{Description: fmt.Sprintf("%d rules", e.Size)},
			Detail:       styles.KindStyle.String(),
		}
		if e.Path != "" {
			item.Documentation = &protocol.MarkupContent{Kind: protocol.Markdown, Value: e.Path}
		}
		items = append(items, item)
	}
	return items
}

func (c *Completer) vocab(line, stylesPath string) []protocol.CompletionItem {
	entries, err := styles.New(stylesPath).Vocab()
	if err != nil {
		c.logger.Debug("list vocabularies", "path", stylesPath, "error", err)
		return nil
	}
	var items []protocol.CompletionItem
	for _, e := range entries {
		if strings.Contains(line, e.Name) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:         e.Name,
			InsertText:    e.Name,
			Kind:          protocol.CompletionKindValue,
			Documentation: &protocol.MarkupContent{Kind: protocol.Markdown, Value: e.Path},
			Detail:        styles.KindVocab.String(),
		})
	}
	return items
}

// pkgs lists library packages not already named on the line. Any failure
// yields no items.
func (c *Completer) pkgs(ctx context.Context, line string) []protocol.CompletionItem {
	if c.packages == nil {
		return nil
	}
	pkgs, err := c.packages.Packages(ctx)
	if err != nil {
		c.logger.Warn("package library unavailable", "error", err)
		return nil
	}
	var items []protocol.CompletionItem
	for _, p := range pkgs {
		if strings.Contains(line, p.Name) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:        p.Name,
			InsertText:   p.Name,
			Kind:         protocol.CompletionKindValue,
			LabelDetails: &protocol.CompletionItemLabelDetails{Description: p.Description},
			Detail:       "Package",
			Preselect:    true,
		})
	}
	return items
}

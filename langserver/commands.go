package langserver

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/jsonrpc"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/rule"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/styles"
)

// syncConcurrency bounds the number of `vale sync` processes.
const syncConcurrency = 4

func (h *handlers) sync(ctx *valels.Context, _ []json.RawMessage) (any, error) {
	h.syncAll(ctx)
	return nil, nil
}

// syncAll runs `vale sync` in every workspace folder, or in the root when
// the client sent none, and reports one outcome.
func (h *handlers) syncAll(ctx *valels.Context) {
	dirs := h.syncDirs(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for _, dir := range dirs {
		g.Go(func() error {
			if err := h.tool.Sync(gctx, h.configPath(), dir); err != nil {
				if dir == "" {
					return err
				}
				return fmt.Errorf("%s: %w", dir, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to sync CLI: %v", err))
		return
	}
	_ = ctx.Client.ShowMessage(ctx, protocol.Info, "Successfully synced Vale config.")
}

func (h *handlers) syncDirs(ctx *valels.Context) []string {
	// An explicit config file applies to every folder; one sync suffices.
	if h.configPath() != "" {
		return []string{h.root()}
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, f := range ctx.WorkspaceFolders() {
		dir, ok := session.URIToPath(f.URI)
		if !ok || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	if len(dirs) == 0 {
		dirs = []string{h.root()}
	}
	return dirs
}

// compile expects the URI of a rule file as its only argument. Every
// failure is reported to the user, so the command itself never errors.
func (h *handlers) compile(ctx *valels.Context, args []json.RawMessage) (any, error) {
	var uri string
	if len(args) > 0 {
		_ = json.Unmarshal(args[0], &uri)
	}
	if uri == "" {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, "No URI provided. Please try again.")
		return nil, nil
	}

	path, ok := session.URIToPath(protocol.DocumentURI(uri))
	if !ok {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to compile rule: %s is not a file URI", uri))
		return nil, nil
	}
	if filepath.Ext(path) != ".yml" {
		_ = ctx.Client.ShowMessage(ctx, protocol.Warning, "Only YAML files are supported; skipping compilation.")
		return nil, nil
	}

	doc, err := h.ruleDocument(ctx, protocol.DocumentURI(uri), path)
	if err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to compile rule: %v", err))
		return nil, nil
	}
	if !doc.CanCompile() {
		_ = ctx.Client.ShowMessage(ctx, protocol.Warning,
			fmt.Sprintf("Rules extending %q can't be compiled to a single pattern.", string(doc.Extends)))
		return nil, nil
	}

	compiled, err := h.tool.Compile(ctx, h.configPath(), h.root(), path)
	if err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to compile rule: %v", err))
		return nil, nil
	}
	_ = ctx.Client.ShowMessage(ctx, protocol.Info, fmt.Sprintf("Compiled pattern: %s", compiled.Pattern))
	return compiled, nil
}

// ruleDocument prefers the open document's text over the file on disk.
func (h *handlers) ruleDocument(ctx *valels.Context, uri protocol.DocumentURI, path string) (rule.Document, error) {
	if doc := ctx.Session.Get(uri); doc != nil {
		return rule.Parse(doc.Text()), nil
	}
	return rule.Load(path)
}

var errVocabArgs = jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "expected a vocabulary name and a term")

func (h *handlers) addToVocab(ctx *valels.Context, args []json.RawMessage) (any, error) {
	if len(args) != 2 {
		return nil, errVocabArgs
	}
	var domain, term string
	if json.Unmarshal(args[0], &domain) != nil || json.Unmarshal(args[1], &term) != nil || domain == "" || term == "" {
		return nil, errVocabArgs
	}

	root, err := h.stylesRoot(ctx)
	if err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to update vocabulary: %v", err))
		return nil, nil
	}
	if err := styles.New(root).AppendVocabTerm(domain, term, true); err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Failed to update vocabulary: %v", err))
		return nil, nil
	}
	_ = ctx.Client.ShowMessage(ctx, protocol.Info, fmt.Sprintf("Added ‘%s’ to %s.", term, domain))
	return nil, nil
}

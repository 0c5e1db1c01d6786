package langserver

import (
	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
)

func (h *handlers) initialize(ctx *valels.Context, _ *protocol.InitializeParams) error {
	if !h.settings.Bool(session.KeyInstallVale) {
		return nil
	}
	status, err := h.tool.InstallOrUpdate(ctx)
	if err != nil {
		_ = ctx.Client.ShowMessage(ctx, protocol.Info, err.Error())
		_ = ctx.Client.LogMessage(ctx, protocol.Error, err.Error())
		return err
	}
	return ctx.Client.LogMessage(ctx, protocol.Info, status)
}

func (h *handlers) initialized(ctx *valels.Context) error {
	if h.settings.Bool(session.KeySyncOnStartup) {
		h.syncAll(ctx)
	}
	return ctx.Client.LogMessage(ctx, protocol.Info, "initialized!")
}

// didOpen and didSave lint the file as saved on disk; the session already
// holds the new text.
func (h *handlers) didOpen(ctx *valels.Context, p *protocol.DidOpenTextDocumentParams) error {
	h.pipeline.Run(ctx, p.TextDocument.URI)
	return nil
}

func (h *handlers) didSave(ctx *valels.Context, p *protocol.DidSaveTextDocumentParams) error {
	if p.Text == nil {
		return nil
	}
	h.pipeline.Run(ctx, p.TextDocument.URI)
	return nil
}

// Unsaved edits are not linted: Vale reads the file from disk.
func (h *handlers) didChange(*valels.Context, *protocol.DidChangeTextDocumentParams) error {
	return nil
}

func (h *handlers) didClose(_ *valels.Context, p *protocol.DidCloseTextDocumentParams) error {
	h.pipeline.Forget(p.TextDocument.URI)
	return nil
}

func (h *handlers) didChangeConfiguration(ctx *valels.Context, _ *protocol.DidChangeConfigurationParams) error {
	return ctx.Client.LogMessage(ctx, protocol.Info, "configuration changed!")
}

func (h *handlers) didChangeWorkspaceFolders(ctx *valels.Context, _ *protocol.DidChangeWorkspaceFoldersParams) error {
	return ctx.Client.LogMessage(ctx, protocol.Info, "workspace folders changed!")
}

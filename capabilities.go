package valels

import "github.com/errata-ai/vale-ls/protocol"

// buildCapabilities advertises exactly the features that have handlers.
// Documents are always synced in full: Vale reads whole files and rule
// parsing reuses the previous tree from a computed edit.
func (s *Server) buildCapabilities() protocol.ServerCapabilities {
	caps := protocol.ServerCapabilities{}

	syncOpts := &protocol.TextDocumentSyncOptions{
		OpenClose: true,
		Change:    protocol.SyncFull,
	}
	if _, ok := s.getHandler(protocol.MethodDidSave); ok {
		syncOpts.Save = &protocol.SaveOptions{IncludeText: true}
	}
	caps.TextDocumentSync = syncOpts

	if _, ok := s.getHandler(protocol.MethodHover); ok {
		caps.HoverProvider = true
	}
	if _, ok := s.getHandler(protocol.MethodCompletion); ok {
		caps.CompletionProvider = &protocol.CompletionOptions{}
	}
	if _, ok := s.getHandler(protocol.MethodCodeAction); ok {
		caps.CodeActionProvider = &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
		}
	}
	if _, ok := s.getHandler(protocol.MethodCodeLens); ok {
		caps.CodeLensProvider = &protocol.CodeLensOptions{ResolveProvider: true}
	}
	if _, ok := s.getHandler(protocol.MethodDocumentLink); ok {
		caps.DocumentLinkProvider = &protocol.DocumentLinkOptions{ResolveProvider: false}
	}
	if names := s.commandNames(); len(names) > 0 {
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{Commands: names}
	}

	caps.Workspace = &protocol.ServerWorkspaceCapabilities{
		WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
			Supported:           true,
			ChangeNotifications: true,
		},
	}
	return caps
}

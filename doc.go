// Package valels is the server framework behind vale-ls: handler
// registration, capability detection, middleware, document tracking for
// Vale configuration and rule files, tree-sitter syntax checks for rules,
// and an optional hot-reloaded settings file.
//
// The language features themselves live in the langserver package:
//
//	s := langserver.New(tool, langserver.Options{})
//	valels.Serve(ctx, s, valels.WithStdio())
package valels

package lsptest

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/errata-ai/vale-ls/treesitter"
)

// ParseYAML parses src as YAML, the language rule definitions are written
// in, and returns the tree. The tree may contain ERROR nodes.
func ParseYAML(t testing.TB, src string) *tree_sitter.Tree {
	t.Helper()
	parser := tree_sitter.NewParser()
	t.Cleanup(func() { parser.Close() })

	if err := parser.SetLanguage(treesitter.YAML()); err != nil {
		t.Fatalf("setting tree-sitter language: %v", err)
	}

	tree := parser.Parse([]byte(src), nil)
	t.Cleanup(func() { tree.Close() })
	return tree
}

// AssertNoErrors asserts that the parse tree contains no ERROR nodes.
func AssertNoErrors(t testing.TB, tree *tree_sitter.Tree) {
	t.Helper()
	if tree == nil {
		t.Fatal("tree is nil")
	}
	if tree.RootNode().HasError() {
		t.Error("parse tree contains errors")
	}
}

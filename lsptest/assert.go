package lsptest

import (
	"strings"
	"testing"

	"github.com/errata-ai/vale-ls/protocol"
)

// AssertHoverContains asserts that the hover result contains substr.
func AssertHoverContains(t testing.TB, hover *protocol.Hover, substr string) {
	t.Helper()
	if hover == nil {
		t.Fatal("hover result is nil")
	}
	if !strings.Contains(hover.Contents.Value, substr) {
		t.Errorf("hover contents %q does not contain %q", hover.Contents.Value, substr)
	}
}

// AssertCompletionContains asserts that the list has an item labelled label.
func AssertCompletionContains(t testing.TB, list *protocol.CompletionList, label string) {
	t.Helper()
	if list == nil {
		t.Fatal("completion list is nil")
	}
	labels := make([]string, len(list.Items))
	for i, item := range list.Items {
		if item.Label == label {
			return
		}
		labels[i] = item.Label
	}
	t.Errorf("completion list does not contain %q, got: %v", label, labels)
}

// AssertDiagnosticCount asserts the number of diagnostics in the latest
// publication for uri.
func AssertDiagnosticCount(t testing.TB, c *Client, uri string, count int) {
	t.Helper()
	diags, ok := c.LatestDiagnostics(uri)
	if !ok {
		if count != 0 {
			t.Errorf("no diagnostics published for %s, expected %d", uri, count)
		}
		return
	}
	if len(diags) != count {
		t.Errorf("expected %d diagnostics for %s, got %d", count, uri, len(diags))
	}
}

// AssertShowMessage asserts that a showMessage of the given type containing
// substr was received.
func AssertShowMessage(t testing.TB, c *Client, typ protocol.MessageType, substr string) {
	t.Helper()
	msgs := c.ShowMessages()
	for _, m := range msgs {
		if m.Type == typ && strings.Contains(m.Message, substr) {
			return
		}
	}
	t.Errorf("no showMessage of type %d containing %q, got: %v", typ, substr, msgs)
}

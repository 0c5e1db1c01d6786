// Package diagnostics turns Vale alerts into protocol diagnostics and quick
// fixes, and publishes them together with syntax errors found in rules.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"net/url"

	"fortio.org/safecast"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/vale"
)

// Source is the diagnostic source for everything this server reports.
const Source = "vale-ls"

// AlertRange maps an alert's 1-based line and inclusive 1-based span onto a
// protocol range.
func AlertRange(a vale.Alert) protocol.Range {
	line := clamp(a.Line - 1)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: clamp(a.Span[0] - 1)},
		End:   protocol.Position{Line: line, Character: clamp(a.Span[1])},
	}
}

// clamp converts n to a protocol coordinate; out-of-range values become 0.
func clamp(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}

// Severity maps Vale's severity names.
func Severity(s string) protocol.DiagnosticSeverity {
	switch s {
	case "error":
		return protocol.SeverityError
	case "warning":
		return protocol.SeverityWarning
	case "suggestion":
		return protocol.SeverityInformation
	default:
		return protocol.SeverityHint
	}
}

// AlertToDiagnostic converts an alert. The alert itself travels in Data so
// code actions can hand it back to `vale fix`.
func AlertToDiagnostic(a vale.Alert) protocol.Diagnostic {
	d := protocol.Diagnostic{
		Range:    AlertRange(a),
		Severity: Severity(a.Severity),
		Code:     a.Check,
		Source:   Source,
		Message:  a.Message,
	}
	if u, err := url.Parse(a.Link); err == nil && u.IsAbs() {
		d.CodeDescription = &protocol.CodeDescription{Href: protocol.URI(a.Link)}
	}
	if data, err := json.Marshal(a); err == nil {
		d.Data = data
	}
	return d
}

// AlertFromData decodes the alert stored in a diagnostic's Data.
func AlertFromData(data json.RawMessage) (vale.Alert, error) {
	var a vale.Alert
	if len(data) == 0 || string(data) == "null" {
		return a, fmt.Errorf("diagnostic carries no alert")
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("decode alert: %w", err)
	}
	return a, nil
}

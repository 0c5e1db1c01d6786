package vale

import "fmt"

// Action is the fix hint attached to an alert.
type Action struct {
	Name   *string  `json:"Name,omitempty"`
	Params []string `json:"Params,omitempty"`
}

// HasName reports whether the alert can be fixed.
func (a Action) HasName() bool {
	return a.Name != nil && *a.Name != ""
}

// Alert is one finding in `vale --output=JSON`. Line is 1-based and Span is
// a 1-based inclusive column pair.
type Alert struct {
	Action      Action `json:"Action"`
	Check       string `json:"Check"`
	Match       string `json:"Match"`
	Description string `json:"Description"`
	Link        string `json:"Link"`
	Line        int    `json:"Line"`
	Span        [2]int `json:"Span"`
	Severity    string `json:"Severity"`
	Message     string `json:"Message"`
}

// FixResult is the output of `vale fix`.
type FixResult struct {
	Suggestions []string `json:"suggestions"`
	Error       string   `json:"error"`
}

// Config is the subset of `vale ls-config` vale-ls depends on.
type Config struct {
	StylesPath string `json:"StylesPath"`
}

// CompiledRule is the output of `vale compile`.
type CompiledRule struct {
	Pattern string `json:"Pattern"`
}

// RuntimeError is the JSON object Vale prints on stderr when it fails with
// --output=JSON.
type RuntimeError struct {
	Path string `json:"Path"`
	Text string `json:"Text"`
	Line int    `json:"Line"`
	Span int    `json:"Span"`
}

func (e RuntimeError) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Span, e.Text)
}

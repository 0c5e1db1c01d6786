package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/session"
	"github.com/errata-ai/vale-ls/vale"
)

func ptr(s string) *string { return &s }

func TestAlertToDiagnostic(t *testing.T) {
	a := vale.Alert{
		Check:    "Vale.Spelling",
		Match:    "teh",
		Link:     "https://vale.sh/docs",
		Line:     3,
		Span:     [2]int{5, 7},
		Severity: "error",
		Message:  "Did you really mean 'teh'?",
	}
	d := AlertToDiagnostic(a)

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 4},
		End:   protocol.Position{Line: 2, Character: 7},
	}, d.Range)
	assert.Equal(t, protocol.SeverityError, d.Severity)
	assert.Equal(t, "Vale.Spelling", d.Code)
	assert.Equal(t, Source, d.Source)
	require.NotNil(t, d.CodeDescription)
	assert.Equal(t, protocol.URI("https://vale.sh/docs"), d.CodeDescription.Href)

	back, err := AlertFromData(d.Data)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestAlertToDiagnosticWithoutLink(t *testing.T) {
	d := AlertToDiagnostic(vale.Alert{Line: 1, Span: [2]int{1, 1}, Link: "not a url"})
	assert.Nil(t, d.CodeDescription)
}

func TestAlertRangeClampsInvalidPositions(t *testing.T) {
	r := AlertRange(vale.Alert{Line: 0, Span: [2]int{0, 2}})
	assert.Equal(t, uint32(0), r.Start.Line)
	assert.Equal(t, uint32(0), r.Start.Character)
	assert.Equal(t, uint32(2), r.End.Character)
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want protocol.DiagnosticSeverity
	}{
		{"error", protocol.SeverityError},
		{"warning", protocol.SeverityWarning},
		{"suggestion", protocol.SeverityInformation},
		{"", protocol.SeverityHint},
		{"other", protocol.SeverityHint},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Severity(tt.in), tt.in)
	}
}

func TestAlertFromDataRejectsEmpty(t *testing.T) {
	_, err := AlertFromData(nil)
	assert.Error(t, err)
	_, err = AlertFromData(json.RawMessage("null"))
	assert.Error(t, err)
	_, err = AlertFromData(json.RawMessage("{"))
	assert.Error(t, err)
}

type fakeFixer struct {
	result vale.FixResult
	err    error
	got    vale.Alert
}

func (f *fakeFixer) Fix(_ context.Context, a vale.Alert) (vale.FixResult, error) {
	f.got = a
	return f.result, f.err
}

func diagFor(a vale.Alert) protocol.Diagnostic { return AlertToDiagnostic(a) }

func TestBuildCodeActionsReplace(t *testing.T) {
	uri := protocol.DocumentURI("file:///docs/a.md")
	alert := vale.Alert{
		Action: vale.Action{Name: ptr("replace"), Params: []string{"the"}},
		Check:  "Vale.Spelling",
		Match:  "teh",
		Line:   1,
		Span:   [2]int{1, 3},
	}
	diags := []protocol.Diagnostic{diagFor(alert)}
	fixer := &fakeFixer{result: vale.FixResult{Suggestions: []string{"the", "ten"}}}

	actions, err := BuildCodeActions(context.Background(), uri, diags, fixer)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "teh", fixer.got.Match)

	first := actions[0]
	assert.Equal(t, "Replace with ‘the’", first.Title)
	assert.Equal(t, protocol.QuickFix, first.Kind)
	assert.Equal(t, diags, first.Diagnostics)
	edits := first.Edit.Changes[uri]
	require.Len(t, edits, 1)
	assert.Equal(t, "the", edits[0].NewText)
	assert.Equal(t, uint32(3), edits[0].Range.End.Character)
}

func TestBuildCodeActionsRemoveWidensRange(t *testing.T) {
	uri := protocol.DocumentURI("file:///docs/a.md")
	alert := vale.Alert{Action: vale.Action{Name: ptr("remove")}, Match: "very", Line: 2, Span: [2]int{3, 6}}
	fixer := &fakeFixer{result: vale.FixResult{Suggestions: []string{""}}}

	actions, err := BuildCodeActions(context.Background(), uri, []protocol.Diagnostic{diagFor(alert)}, fixer)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "Remove ‘very’", actions[0].Title)
	rng := actions[0].Edit.Changes[uri][0].Range
	assert.Equal(t, uint32(2), rng.Start.Character)
	assert.Equal(t, uint32(7), rng.End.Character)
}

func TestBuildCodeActionsNoFix(t *testing.T) {
	uri := protocol.DocumentURI("file:///docs/a.md")
	fixer := &fakeFixer{}

	actions, err := BuildCodeActions(context.Background(), uri, nil, fixer)
	assert.NoError(t, err)
	assert.Nil(t, actions)

	noAction := diagFor(vale.Alert{Line: 1, Span: [2]int{1, 1}})
	actions, err = BuildCodeActions(context.Background(), uri, []protocol.Diagnostic{noAction}, fixer)
	assert.NoError(t, err)
	assert.Nil(t, actions)

	failing := &fakeFixer{err: errors.New("boom")}
	withAction := diagFor(vale.Alert{Action: vale.Action{Name: ptr("replace")}, Line: 1, Span: [2]int{1, 1}})
	_, err = BuildCodeActions(context.Background(), uri, []protocol.Diagnostic{withAction}, failing)
	assert.EqualError(t, err, "boom")
}

func TestVocabActions(t *testing.T) {
	spelling := diagFor(vale.Alert{Check: "Vale.Spelling", Match: "Kubernetes", Line: 1, Span: [2]int{1, 10}})
	actions := VocabActions([]protocol.Diagnostic{spelling}, []string{"Docs", "Blog"})
	require.Len(t, actions, 2)
	assert.Equal(t, "Add ‘Kubernetes’ to Docs vocabulary", actions[0].Title)
	require.NotNil(t, actions[0].Command)
	assert.Equal(t, CommandAddToVocab, actions[0].Command.Command)
	assert.Equal(t, []any{"Docs", "Kubernetes"}, actions[0].Command.Arguments)

	other := diagFor(vale.Alert{Check: "Vale.Terms", Match: "x", Line: 1, Span: [2]int{1, 1}})
	assert.Nil(t, VocabActions([]protocol.Diagnostic{other}, []string{"Docs"}))
	assert.Nil(t, VocabActions([]protocol.Diagnostic{spelling}, nil))
}

type fakeLinter struct {
	installed bool
	alerts    map[string][]vale.Alert
	err       error
	paths     []string
	opts      []vale.LintOptions
}

func (f *fakeLinter) Installed() bool { return f.installed }

func (f *fakeLinter) Lint(_ context.Context, path string, opts vale.LintOptions) (map[string][]vale.Alert, error) {
	f.paths = append(f.paths, path)
	f.opts = append(f.opts, opts)
	return f.alerts, f.err
}

type message struct {
	typ  protocol.MessageType
	text string
}

type recordingClient struct {
	mu        sync.Mutex
	published []*protocol.PublishDiagnosticsParams
	logs      []message
	shown     []message
}

func (c *recordingClient) PublishDiagnostics(_ context.Context, p *protocol.PublishDiagnosticsParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, p)
	return nil
}

func (c *recordingClient) LogMessage(_ context.Context, typ protocol.MessageType, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, message{typ, text})
	return nil
}

func (c *recordingClient) ShowMessage(_ context.Context, typ protocol.MessageType, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown = append(c.shown, message{typ, text})
	return nil
}

func TestPipelineWarnsOnceWhenNotInstalled(t *testing.T) {
	client := &recordingClient{}
	p := NewPipeline(&fakeLinter{}, session.NewSettings())
	p.SetClient(client)

	uri := session.PathToURI("/docs/a.md")
	p.Run(context.Background(), uri)
	p.Run(context.Background(), uri)

	assert.Equal(t, []message{{protocol.Warning, "Vale CLI not installed!"}}, client.logs)
	assert.Empty(t, client.published)
}

func TestPipelinePublishesAlerts(t *testing.T) {
	linter := &fakeLinter{installed: true, alerts: map[string][]vale.Alert{
		"a.md": {
			{Check: "Vale.Spelling", Line: 1, Span: [2]int{1, 3}, Severity: "error"},
			{Check: "Vale.Repetition", Line: 2, Span: [2]int{1, 3}, Severity: "warning"},
		},
	}}
	settings := session.NewSettings()
	settings.Set(session.KeyConfigPath, "/cfg/.vale.ini")
	settings.Set(session.KeyFilter, ".Level==\"error\"")

	client := &recordingClient{}
	p := NewPipeline(linter, settings)
	p.SetClient(client)

	uri := session.PathToURI("/docs/a.md")
	p.Run(context.Background(), uri)

	require.Len(t, client.published, 1)
	assert.Equal(t, uri, client.published[0].URI)
	assert.Len(t, client.published[0].Diagnostics, 2)
	assert.Equal(t, []vale.LintOptions{{ConfigPath: "/cfg/.vale.ini", Filter: ".Level==\"error\""}}, linter.opts)
	assert.Len(t, p.Diagnostics(uri), 2)
}

func TestPipelineMergesSyntaxDiagnostics(t *testing.T) {
	linter := &fakeLinter{installed: true, alerts: map[string][]vale.Alert{
		"Terms.yml": {{Check: "Vale.Spelling", Line: 1, Span: [2]int{1, 3}}},
	}}
	client := &recordingClient{}
	p := NewPipeline(linter, session.NewSettings())
	p.SetClient(client)

	uri := session.PathToURI("/styles/Acme/Terms.yml")
	syntax := protocol.Diagnostic{Message: "syntax error", Source: Source}
	require.NoError(t, p.PublishSyntax(context.Background(), &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{syntax},
	}))
	p.Run(context.Background(), uri)

	require.Len(t, client.published, 2)
	last := client.published[1].Diagnostics
	require.Len(t, last, 2)
	assert.Equal(t, "Vale.Spelling", last[0].Code)
	assert.Equal(t, "syntax error", last[1].Message)

	p.Forget(uri)
	assert.Empty(t, p.Diagnostics(uri))
}

func TestPipelineReportsLintErrors(t *testing.T) {
	rt := `{"Path":"/docs/.vale.ini","Text":"unknown style","Line":3,"Span":1}`
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"runtime error", errors.New(rt), "/docs/.vale.ini:3:1: unknown style"},
		{"plain text", errors.New("exit status 2"), "exit status 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &recordingClient{}
			p := NewPipeline(&fakeLinter{installed: true, err: tt.err}, session.NewSettings())
			p.SetClient(client)

			p.Run(context.Background(), session.PathToURI("/docs/a.md"))

			assert.Empty(t, client.published)
			require.Len(t, client.logs, 1)
			assert.Equal(t, protocol.Error, client.logs[0].typ)
			assert.Contains(t, client.logs[0].text, "Parsing error: ")
			assert.Equal(t, []message{{protocol.Error, tt.want}}, client.shown)
		})
	}
}

func TestPipelineWithoutClient(t *testing.T) {
	linter := &fakeLinter{installed: true, alerts: map[string][]vale.Alert{}}
	p := NewPipeline(linter, session.NewSettings())
	uri := session.PathToURI("/docs/a.md")
	p.Run(context.Background(), uri)
	assert.Equal(t, []string{"/docs/a.md"}, linter.paths)
	assert.Empty(t, p.Diagnostics(uri))
}

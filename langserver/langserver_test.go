package langserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errata-ai/vale-ls/diagnostics"
	"github.com/errata-ai/vale-ls/ini"
	"github.com/errata-ai/vale-ls/langserver"
	"github.com/errata-ai/vale-ls/lsptest"
	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/vale"
)

const wait = 2 * time.Second

type fakeTool struct {
	mu sync.Mutex

	installed  bool
	installErr error
	stylesPath string
	alerts     map[string][]vale.Alert
	lintErr    error
	fix        vale.FixResult
	syncErr    error
	compiled   vale.CompiledRule
	compileErr error
	// hang blocks Lint of the named files until the channel is closed.
	hang map[string]chan struct{}

	lintOpts []vale.LintOptions
	synced   []string
	compiles []string
}

func (f *fakeTool) Installed() bool { return f.installed }

func (f *fakeTool) InstallOrUpdate(context.Context) (string, error) {
	if f.installErr != nil {
		return "", f.installErr
	}
	return "Installed Vale v3.4.1", nil
}

func (f *fakeTool) Version(context.Context, bool) (string, error) { return "3.4.1", nil }

func (f *fakeTool) Lint(ctx context.Context, path string, opts vale.LintOptions) (map[string][]vale.Alert, error) {
	if gate, ok := f.hang[filepath.Base(path)]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lintOpts = append(f.lintOpts, opts)
	if f.lintErr != nil {
		return nil, f.lintErr
	}
	return map[string][]vale.Alert{path: f.alerts[filepath.Base(path)]}, nil
}

func (f *fakeTool) Fix(context.Context, vale.Alert) (vale.FixResult, error) { return f.fix, nil }

func (f *fakeTool) Config(context.Context, string, string) (vale.Config, error) {
	return vale.Config{StylesPath: f.stylesPath}, nil
}

func (f *fakeTool) Sync(_ context.Context, _ string, cwd string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, cwd)
	return f.syncErr
}

func (f *fakeTool) Compile(_ context.Context, _, _ string, rulePath string) (vale.CompiledRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compiles = append(f.compiles, rulePath)
	return f.compiled, f.compileErr
}

func (f *fakeTool) lastLintOptions() (vale.LintOptions, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lintOpts) == 0 {
		return vale.LintOptions{}, false
	}
	return f.lintOpts[len(f.lintOpts)-1], true
}

func (f *fakeTool) syncedDirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.synced...)
}

type noPackages struct{}

func (noPackages) Packages(context.Context) ([]ini.Package, error) { return nil, nil }

func newWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	base := map[string]string{
		"styles/Acme/Existence.yml":    "extends: existence\ntokens:\n  - foo\n",
		"styles/Vocab/Base/accept.txt": "Vale\n",
	}
	for k, v := range files {
		base[k] = v
	}
	return lsptest.Workspace(t, base)
}

func setup(t *testing.T, tool *fakeTool, files map[string]string, opts ...lsptest.ClientOption) (*lsptest.Client, string) {
	t.Helper()
	root := newWorkspace(t, files)
	if tool.stylesPath == "" {
		tool.stylesPath = filepath.Join(root, "styles")
	}
	s := langserver.New(tool, langserver.Options{Packages: noPackages{}, Exit: func(int) {}})
	c := lsptest.NewClient(t, s, append([]lsptest.ClientOption{lsptest.WithRoot(root)}, opts...)...)
	return c, root
}

func uriOf(root, rel string) string {
	return lsptest.FileURI(filepath.Join(root, filepath.FromSlash(rel)))
}

func TestLintOnOpen(t *testing.T) {
	tool := &fakeTool{
		installed: true,
		alerts: map[string][]vale.Alert{
			"README.md": {{
				Check:    "Vale.Repetition",
				Match:    "the the",
				Message:  "'the' is repeated!",
				Severity: "error",
				Line:     1,
				Span:     [2]int{5, 11},
			}},
		},
	}
	c, root := setup(t, tool, map[string]string{"README.md": "See the the docs.\n"})
	uri := uriOf(root, "README.md")

	c.Open(uri, "See the the docs.\n")
	diags := c.WaitForDiagnostics(uri, wait, func(d []protocol.Diagnostic) bool { return len(d) == 1 })

	assert.Equal(t, "'the' is repeated!", diags[0].Message)
	assert.Equal(t, protocol.SeverityError, diags[0].Severity)
	assert.Equal(t, lsptest.Rng(0, 4, 0, 11), diags[0].Range)
}

func TestNotInstalledWarnsOnce(t *testing.T) {
	tool := &fakeTool{}
	c, root := setup(t, tool, map[string]string{"a.md": "a", "b.md": "b"})

	c.Open(uriOf(root, "a.md"), "a")
	c.Open(uriOf(root, "b.md"), "b")
	c.WaitForMessage("Vale CLI not installed!", wait)

	count := 0
	for _, m := range c.LogMessages() {
		if m.Message == "Vale CLI not installed!" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	_, ok := c.LatestDiagnostics(uriOf(root, "a.md"))
	assert.False(t, ok)
}

func TestLintErrorIsShown(t *testing.T) {
	tool := &fakeTool{
		installed: true,
		lintErr:   errors.New(`{"Path": "/docs/.vale.ini", "Text": "unknown style", "Line": 3, "Span": 1}`),
	}
	c, root := setup(t, tool, map[string]string{"a.md": "a"})

	c.Open(uriOf(root, "a.md"), "a")
	c.WaitForMessage("unknown style", wait)
	lsptest.AssertShowMessage(t, c, protocol.Error, "/docs/.vale.ini:3:1: unknown style")
}

func TestHungLintDoesNotBlockOtherDocuments(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	tool := &fakeTool{
		installed: true,
		hang:      map[string]chan struct{}{"README.md": release},
	}
	c, root := setup(t, tool, map[string]string{"README.md": "text"})

	c.Open(uriOf(root, "README.md"), "text")
	ini := uriOf(root, ".vale.ini")
	c.Open(ini, "StylesPath = styles\n")

	start := time.Now()
	hover, err := c.Hover(ini, lsptest.Pos(0, 2))
	require.NoError(t, err)
	lsptest.AssertHoverContains(t, hover, "StylesPath")
	assert.Less(t, time.Since(start), wait)
}

func TestHoverINIKey(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)
	uri := uriOf(root, ".vale.ini")
	c.Open(uri, "StylesPath = styles\nMinAlertLevel = warning\n")

	hover, err := c.Hover(uri, lsptest.Pos(0, 2))
	require.NoError(t, err)
	lsptest.AssertHoverContains(t, hover, "StylesPath")
	require.NotNil(t, hover.Range)
	assert.Equal(t, lsptest.Rng(0, 0, 0, 10), *hover.Range)

	hover, err = c.Hover(uri, lsptest.Pos(0, 11))
	require.NoError(t, err)
	assert.Nil(t, hover, "'=' is a single-character token")
}

func TestHoverRuleKey(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)
	uri := uriOf(root, "styles/Acme/Existence.yml")
	c.Open(uri, "extends: existence\nmessage: \"Avoid '%s'\"\ntokens:\n  - foo\n")

	hover, err := c.Hover(uri, lsptest.Pos(0, 2))
	require.NoError(t, err)
	lsptest.AssertHoverContains(t, hover, "`extends`")
}

func TestHoverUntrackedDocument(t *testing.T) {
	c, root := setup(t, &fakeTool{}, map[string]string{"README.md": "StylesPath"})
	uri := uriOf(root, "README.md")
	c.Open(uri, "StylesPath")

	hover, err := c.Hover(uri, lsptest.Pos(0, 2))
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestCompletion(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)

	iniURI := uriOf(root, ".vale.ini")
	c.Open(iniURI, "MinAlertLevel = \nBasedOnStyles = \n")
	list, err := c.Completion(iniURI, lsptest.Pos(0, 16))
	require.NoError(t, err)
	lsptest.AssertCompletionContains(t, list, "warning")

	list, err = c.Completion(iniURI, lsptest.Pos(1, 16))
	require.NoError(t, err)
	lsptest.AssertCompletionContains(t, list, "Vale")
	lsptest.AssertCompletionContains(t, list, "Acme")

	ruleURI := uriOf(root, "styles/Acme/Existence.yml")
	c.Open(ruleURI, "extends: \n")
	list, err = c.Completion(ruleURI, lsptest.Pos(0, 9))
	require.NoError(t, err)
	lsptest.AssertCompletionContains(t, list, "existence")
	lsptest.AssertCompletionContains(t, list, "script")
}

func TestCompletionOffersNothingElsewhere(t *testing.T) {
	c, root := setup(t, &fakeTool{}, map[string]string{"notes.yml": "extends: \n"})

	// Outside the StylesPath a YAML file is not a rule.
	uri := uriOf(root, "notes.yml")
	c.Open(uri, "extends: \n")
	list, err := c.Completion(uri, lsptest.Pos(0, 9))
	require.NoError(t, err)
	assert.Nil(t, list)

	iniURI := uriOf(root, ".vale.ini")
	c.Open(iniURI, "[*.md]\n")
	list, err = c.Completion(iniURI, lsptest.Pos(0, 3))
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list.Items)
}

func TestCodeActionReplace(t *testing.T) {
	replace := "replace"
	tool := &fakeTool{fix: vale.FixResult{Suggestions: []string{"use", "utilize"}}}
	c, root := setup(t, tool, nil)
	uri := uriOf(root, "README.md")

	d := diagnostics.AlertToDiagnostic(vale.Alert{
		Action:   vale.Action{Name: &replace, Params: []string{"use"}},
		Check:    "Acme.Wordiness",
		Match:    "make use of",
		Message:  "Consider 'use'",
		Severity: "warning",
		Line:     2,
		Span:     [2]int{1, 11},
	})
	actions, err := c.CodeAction(uri, d.Range, []protocol.Diagnostic{d})
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "Replace with ‘use’", actions[0].Title)
	assert.Equal(t, protocol.QuickFix, actions[0].Kind)
	require.NotNil(t, actions[0].Edit)
	edits := actions[0].Edit.Changes[protocol.DocumentURI(uri)]
	require.Len(t, edits, 1)
	assert.Equal(t, lsptest.Rng(1, 0, 1, 11), edits[0].Range)
	assert.Equal(t, "use", edits[0].NewText)
}

func TestCodeActionSpellingOffersVocabularies(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)
	uri := uriOf(root, "README.md")

	d := diagnostics.AlertToDiagnostic(vale.Alert{
		Check:    "Vale.Spelling",
		Match:    "Valeee",
		Message:  "Did you really mean 'Valeee'?",
		Severity: "error",
		Line:     1,
		Span:     [2]int{1, 6},
	})
	actions, err := c.CodeAction(uri, d.Range, []protocol.Diagnostic{d})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "Add ‘Valeee’ to Base vocabulary", actions[0].Title)
	require.NotNil(t, actions[0].Command)
	assert.Equal(t, diagnostics.CommandAddToVocab, actions[0].Command.Command)
}

func TestCodeActionWithoutDiagnostics(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)
	actions, err := c.CodeAction(uriOf(root, "README.md"), lsptest.Rng(0, 0, 0, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestAddToVocab(t *testing.T) {
	c, root := setup(t, &fakeTool{}, nil)

	_, err := c.Execute(diagnostics.CommandAddToVocab, "Base", "Acme")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "styles", "Vocab", "Base", "accept.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Acme\nVale", string(got))

	_, err = c.Execute(diagnostics.CommandAddToVocab, "Base")
	assert.Error(t, err)
}

func TestAddToVocabRejectsUnknownDomain(t *testing.T) {
	c, root := setup(t, &fakeTool{}, map[string]string{"outside/accept.txt": "keep\n"})

	_, err := c.Execute(diagnostics.CommandAddToVocab, "../../outside", "Acme")
	require.NoError(t, err)
	c.WaitForMessage("Failed to update vocabulary", wait)
	lsptest.AssertShowMessage(t, c, protocol.Error, "unknown vocabulary")

	got, err := os.ReadFile(filepath.Join(root, "outside", "accept.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(got))
}

func TestCodeLens(t *testing.T) {
	c, root := setup(t, &fakeTool{}, map[string]string{
		"styles/Acme/Script.yml": "extends: script\nscript: x\n",
	})

	uri := uriOf(root, "styles/Acme/Existence.yml")
	c.Open(uri, "message: hi\nextends: existence\ntokens:\n  - foo\n")
	lenses, err := c.CodeLens(uri)
	require.NoError(t, err)
	require.Len(t, lenses, 1)
	assert.Equal(t, lsptest.Rng(1, 0, 1, 7), lenses[0].Range)
	require.NotNil(t, lenses[0].Command)
	assert.Equal(t, langserver.CommandCompile, lenses[0].Command.Command)

	scriptURI := uriOf(root, "styles/Acme/Script.yml")
	c.Open(scriptURI, "extends: script\nscript: x\n")
	lenses, err = c.CodeLens(scriptURI)
	require.NoError(t, err)
	assert.Empty(t, lenses)
}

func TestDocumentLink(t *testing.T) {
	c, root := setup(t, &fakeTool{}, map[string]string{
		"styles/Acme/Bad.yml": "extends: existence\nlink: not a url\n",
	})

	uri := uriOf(root, "styles/Acme/Existence.yml")
	c.Open(uri, "extends: existence\nlink: https://vale.sh/docs\n")
	links, err := c.DocumentLink(uri)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, lsptest.Rng(1, 6, 1, 26), links[0].Range)
	require.NotNil(t, links[0].Target)
	assert.Equal(t, protocol.DocumentURI("https://vale.sh/docs"), *links[0].Target)

	bad := uriOf(root, "styles/Acme/Bad.yml")
	c.Open(bad, "extends: existence\nlink: not a url\n")
	links, err = c.DocumentLink(bad)
	require.NoError(t, err)
	assert.Empty(t, links)
	c.WaitForMessage("link has Invalid URL", wait)
}

func TestCompileCommand(t *testing.T) {
	tool := &fakeTool{compiled: vale.CompiledRule{Pattern: `(?i)\b(?:foo)\b`}}
	c, root := setup(t, tool, nil)
	path := filepath.Join(root, "styles", "Acme", "Existence.yml")

	raw, err := c.Execute(langserver.CommandCompile, lsptest.FileURI(path))
	require.NoError(t, err)

	var got vale.CompiledRule
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, tool.compiled, got)
	assert.Equal(t, []string{path}, tool.compiles)
	c.WaitForMessage("Compiled pattern", wait)
	lsptest.AssertShowMessage(t, c, protocol.Info, `Compiled pattern: (?i)\b(?:foo)\b`)
}

func TestCompileCommandRejectsInput(t *testing.T) {
	tool := &fakeTool{compileErr: errors.New("exit status 2")}
	c, root := setup(t, tool, map[string]string{
		"styles/Acme/Script.yml": "extends: script\nscript: x\n",
	})

	_, err := c.Execute(langserver.CommandCompile)
	require.NoError(t, err)
	c.WaitForMessage("No URI provided. Please try again.", wait)

	_, err = c.Execute(langserver.CommandCompile, uriOf(root, ".vale.ini"))
	require.NoError(t, err)
	c.WaitForMessage("Only YAML files are supported", wait)

	_, err = c.Execute(langserver.CommandCompile, uriOf(root, "styles/Acme/Script.yml"))
	require.NoError(t, err)
	c.WaitForMessage("can't be compiled", wait)

	_, err = c.Execute(langserver.CommandCompile, uriOf(root, "styles/Acme/Existence.yml"))
	require.NoError(t, err)
	c.WaitForMessage("Failed to compile rule: exit status 2", wait)
}

func TestSyncCommand(t *testing.T) {
	tool := &fakeTool{}
	c, root := setup(t, tool, nil)

	_, err := c.Execute(langserver.CommandSync)
	require.NoError(t, err)
	c.WaitForMessage("Successfully synced", wait)
	lsptest.AssertShowMessage(t, c, protocol.Info, "Successfully synced Vale config.")
	assert.Equal(t, []string{root}, tool.syncedDirs())
}

func TestSyncCommandFailure(t *testing.T) {
	tool := &fakeTool{syncErr: errors.New("no packages")}
	c, _ := setup(t, tool, nil)

	_, err := c.Execute(langserver.CommandSync)
	require.NoError(t, err)
	c.WaitForMessage("Failed to sync CLI:", wait)
	lsptest.AssertShowMessage(t, c, protocol.Error, "Failed to sync CLI:")
}

func TestSyncOnStartup(t *testing.T) {
	tool := &fakeTool{}
	c, root := setup(t, tool, nil, lsptest.WithInitOptions(map[string]any{"syncOnStartup": true}))

	c.WaitForMessage("Successfully synced Vale config.", wait)
	assert.Equal(t, []string{root}, tool.syncedDirs())
}

func TestInstallOnInitialize(t *testing.T) {
	c, _ := setup(t, &fakeTool{}, nil, lsptest.WithInitOptions(map[string]any{"installVale": true}))
	c.WaitForMessage("Installed Vale v3.4.1", wait)

	failing := &fakeTool{installErr: errors.New("no release for this platform")}
	c, _ = setup(t, failing, nil, lsptest.WithInitOptions(map[string]any{"installVale": true}))
	c.WaitForMessage("no release for this platform", wait)
	lsptest.AssertShowMessage(t, c, protocol.Info, "no release for this platform")
}

func TestUnknownExtendsIsReported(t *testing.T) {
	c, root := setup(t, &fakeTool{installed: true}, nil)
	uri := uriOf(root, "styles/Acme/Existence.yml")

	c.Open(uri, "extends: existance\ntokens:\n  - foo\n")
	diags := c.WaitForDiagnostics(uri, wait, func(d []protocol.Diagnostic) bool {
		for _, x := range d {
			if strings.Contains(x.Message, "unknown rule family") {
				return true
			}
		}
		return false
	})

	var found protocol.Diagnostic
	for _, d := range diags {
		if strings.Contains(d.Message, "unknown rule family") {
			found = d
		}
	}
	assert.Equal(t, lsptest.Rng(0, 9, 0, 18), found.Range)
	assert.Equal(t, protocol.SeverityError, found.Severity)

	c.Change(uri, 2, "extends: existence\ntokens:\n  - foo\n")
	c.WaitForDiagnostics(uri, wait, func(d []protocol.Diagnostic) bool {
		for _, x := range d {
			if strings.Contains(x.Message, "unknown rule family") {
				return false
			}
		}
		return true
	})
}

func TestSettingsFileOverridesFilter(t *testing.T) {
	tool := &fakeTool{installed: true}
	c, root := setup(t, tool, map[string]string{
		".vale-ls.toml": "filter = '.Level == \"error\"'\n",
		"a.md":          "a",
	})

	c.Open(uriOf(root, "a.md"), "a")
	require.Eventually(t, func() bool {
		opts, ok := tool.lastLintOptions()
		return ok && opts.Filter == `.Level == "error"`
	}, wait, 10*time.Millisecond)
}

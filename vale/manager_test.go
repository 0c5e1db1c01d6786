package vale

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lintJSON = `{"%s":[{"Action":{"Name":"replace","Params":["use"]},"Check":"Vale.Terms","Description":"","Line":3,"Link":"https://vale.sh/docs","Message":"Use 'use' instead of 'utilize'.","Severity":"warning","Span":[5,11],"Match":"utilize"}]}`

// fakeVale writes an executable shell script standing in for the CLI.
func fakeVale(t *testing.T, path, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithBinDir(filepath.Join(t.TempDir(), "vale_bin")),
		WithArch("Linux_64-bit"),
		WithFallback(""),
	}
	m, err := NewManager(append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func TestPlatformArch(t *testing.T) {
	tests := []struct {
		goos, goarch, want string
	}{
		{"linux", "amd64", "Linux_64-bit"},
		{"darwin", "arm64", "macOS_arm64"},
		{"windows", "amd64", "Windows_64-bit"},
		{"freebsd", "arm", "Linux_arm64"},
		{"linux", "386", "Linux_386"},
	}
	for _, tt := range tests {
		if got := PlatformArch(tt.goos, tt.goarch); got != tt.want {
			t.Errorf("PlatformArch(%q, %q) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
	assert.Equal(t, "vale.exe", exeName("Windows_64-bit"))
	assert.Equal(t, "vale_3.0.0_Windows_64-bit.zip", assetName("3.0.0", "Windows_64-bit"))
	assert.Equal(t, "vale_3.0.0_macOS_arm64.tar.gz", assetName("3.0.0", "macOS_arm64"))
}

func TestExecutableResolution(t *testing.T) {
	fallback := fakeVale(t, filepath.Join(t.TempDir(), "system", "vale"), `echo "vale version 2.0.0"`)
	m := newTestManager(t, WithFallback(fallback))
	ctx := context.Background()

	_, err := m.ExecutablePath(true)
	assert.ErrorIs(t, err, ErrNotInstalled)

	got, err := m.ExecutablePath(false)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)
	assert.True(t, m.Installed())

	v, err := m.Version(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)

	fakeVale(t, m.ManagedPath(), `echo "vale version 3.1.0"`)
	v, err = m.Version(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", v, "managed copy takes precedence")
}

func TestNotInstalled(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.Installed())
	_, err := m.Lint(context.Background(), filepath.Join(t.TempDir(), "doc.md"), LintOptions{})
	assert.True(t, errors.Is(err, ErrNotInstalled))
}

func TestLint(t *testing.T) {
	work := t.TempDir()
	doc := filepath.Join(work, "docs", "doc.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(doc), 0o755))

	record := t.TempDir()
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `
printf '%s\n' "$@" > "`+record+`/args"
pwd > "`+record+`/cwd"
cat <<'JSON'
`+strings.Replace(lintJSON, "%s", doc, 1)+`
JSON`)

	alerts, err := m.Lint(context.Background(), doc, LintOptions{Filter: ".Level == 'error'", ConfigPath: "/etc/vale.ini"})
	require.NoError(t, err)
	require.Len(t, alerts[doc], 1)

	a := alerts[doc][0]
	assert.Equal(t, "Vale.Terms", a.Check)
	assert.Equal(t, [2]int{5, 11}, a.Span)
	assert.Equal(t, 3, a.Line)
	require.True(t, a.Action.HasName())
	assert.Equal(t, "replace", *a.Action.Name)

	args, err := os.ReadFile(filepath.Join(record, "args"))
	require.NoError(t, err)
	assert.Equal(t, []string{"--output=JSON", "--config=/etc/vale.ini", "--filter=.Level == 'error'", doc},
		strings.Split(strings.TrimSpace(string(args)), "\n"))

	cwd, err := os.ReadFile(filepath.Join(record, "cwd"))
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(filepath.Dir(doc))
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	assert.Equal(t, want, got)
}

func TestLintEmptyStdoutReportsStderr(t *testing.T) {
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `echo 'E100 [.vale.ini not found]' >&2; exit 2`)

	_, err := m.Lint(context.Background(), filepath.Join(t.TempDir(), "doc.md"), LintOptions{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMsg))
	assert.Equal(t, "E100 [.vale.ini not found]", err.Error())
}

func TestLintInvalidJSON(t *testing.T) {
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `echo '{not json'`)

	_, err := m.Lint(context.Background(), filepath.Join(t.TempDir(), "doc.md"), LintOptions{})
	assert.True(t, IsKind(err, KindJSON))
}

func TestFixUsesTemporaryFile(t *testing.T) {
	record := t.TempDir()
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `
echo "$2" > "`+record+`/path"
cp "$2" "`+record+`/payload"
echo '{"suggestions":["use"],"error":""}'`)

	name := "replace"
	res, err := m.Fix(context.Background(), Alert{Check: "Vale.Terms", Match: "utilize", Action: Action{Name: &name, Params: []string{"use"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"use"}, res.Suggestions)

	tmp, err := os.ReadFile(filepath.Join(record, "path"))
	require.NoError(t, err)
	_, statErr := os.Stat(strings.TrimSpace(string(tmp)))
	assert.True(t, os.IsNotExist(statErr), "temporary alert file must be removed")

	payload, err := os.ReadFile(filepath.Join(record, "payload"))
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"Match":"utilize"`)
}

func TestConfigAndCompile(t *testing.T) {
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `
for arg in "$@"; do
  case "$arg" in
    ls-config) echo '{"StylesPath":"/work/styles","MinAlertLevel":"suggestion"}'; exit 0 ;;
    compile) printf '%s\n' '{"Pattern":"(?i)\\b(?:foo)\\b"}'; exit 0 ;;
    sync) echo 'synced' >&2; exit 0 ;;
  esac
done
exit 1`)
	ctx := context.Background()
	dir := t.TempDir()

	cfg, err := m.Config(ctx, "", dir)
	require.NoError(t, err)
	assert.Equal(t, "/work/styles", cfg.StylesPath)

	rule, err := m.Compile(ctx, "/work/.vale.ini", dir, "/work/styles/Acme/Foo.yml")
	require.NoError(t, err)
	assert.Equal(t, `(?i)\b(?:foo)\b`, rule.Pattern)

	assert.NoError(t, m.Sync(ctx, "", dir))
}

func TestVersionRejectsUnexpectedBanner(t *testing.T) {
	m := newTestManager(t)
	fakeVale(t, m.ManagedPath(), `echo "something else"`)
	_, err := m.Version(context.Background(), true)
	assert.True(t, IsKind(err, KindMsg))
}

func TestRuntimeErrorString(t *testing.T) {
	e := RuntimeError{Path: "/work/.vale.ini", Text: "unknown style", Line: 4, Span: 2}
	assert.Equal(t, "/work/.vale.ini:4:2: unknown style", e.String())
}

// Package vale runs the Vale CLI and keeps a managed copy of it installed.
//
// Success is signalled by Vale writing JSON to stdout, not by its exit code:
// an empty stdout means stderr carries the failure.
package vale

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultReleasesURL hosts the release archives.
	DefaultReleasesURL = "https://github.com/errata-ai/vale/releases/download"
	// DefaultLatestURL describes the newest published release.
	DefaultLatestURL = "https://api.github.com/repos/errata-ai/vale/releases/latest"

	managedDirName = "vale_bin"
	versionPrefix  = "vale version "
)

// Tool is everything the server needs from Vale. Manager is the real
// implementation.
type Tool interface {
	// Installed reports whether any executable can be resolved.
	Installed() bool
	// InstallOrUpdate makes the managed copy match the latest release and
	// returns a status line for the user.
	InstallOrUpdate(ctx context.Context) (string, error)
	// Version returns the bare version number, e.g. "3.4.1".
	Version(ctx context.Context, managedOnly bool) (string, error)
	// Lint runs Vale on a file on disk.
	Lint(ctx context.Context, path string, opts LintOptions) (map[string][]Alert, error)
	// Fix asks Vale for replacement suggestions for an alert.
	Fix(ctx context.Context, alert Alert) (FixResult, error)
	// Config resolves the configuration Vale would use from cwd.
	Config(ctx context.Context, configPath, cwd string) (Config, error)
	// Sync downloads the packages listed in the configuration.
	Sync(ctx context.Context, configPath, cwd string) error
	// Compile returns the regular expression Vale builds for a rule file.
	Compile(ctx context.Context, configPath, cwd, rulePath string) (CompiledRule, error)
}

// LintOptions are the optional flags of a lint run.
type LintOptions struct {
	ConfigPath string
	Filter     string
}

// Manager resolves and invokes the Vale executable.
type Manager struct {
	binDir      string
	arch        string
	fallback    string
	releasesURL string
	latestURL   string
	http        *resty.Client
	logger      *slog.Logger
}

var _ Tool = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithBinDir sets the directory holding the managed executable. The default
// is vale_bin next to the running server binary.
func WithBinDir(dir string) Option {
	return func(m *Manager) { m.binDir = dir }
}

// WithArch overrides the release asset tag, see PlatformArch.
func WithArch(arch string) Option {
	return func(m *Manager) { m.arch = arch }
}

// WithFallback sets the system executable used when no managed copy exists.
// An empty path disables the fallback. The default is `vale` on PATH.
func WithFallback(path string) Option {
	return func(m *Manager) { m.fallback = path }
}

// WithReleaseURLs points the installer at another release server.
func WithReleaseURLs(latest, releases string) Option {
	return func(m *Manager) {
		m.latestURL = latest
		m.releasesURL = strings.TrimSuffix(releases, "/")
	}
}

// WithHTTPClient sets the client used for release lookups and downloads.
func WithHTTPClient(c *resty.Client) Option {
	return func(m *Manager) { m.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. The system fallback is looked up once, here.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		arch:        PlatformArch(runtime.GOOS, runtime.GOARCH),
		releasesURL: DefaultReleasesURL,
		latestURL:   DefaultLatestURL,
		logger:      slog.Default(),
	}
	if p, err := exec.LookPath("vale"); err == nil {
		m.fallback = p
	}
	for _, o := range opts {
		o(m)
	}

	if m.binDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, newError(KindIO, "locate server executable", err)
		}
		m.binDir = filepath.Join(filepath.Dir(exe), managedDirName)
	}
	if m.http == nil {
		m.http = NewHTTPClient(m.logger)
	}
	return m, nil
}

// ManagedPath is where the managed executable lives once installed.
func (m *Manager) ManagedPath() string {
	return filepath.Join(m.binDir, exeName(m.arch))
}

// Installed reports whether either executable exists.
func (m *Manager) Installed() bool {
	if fileExists(m.ManagedPath()) {
		return true
	}
	return m.fallback != "" && fileExists(m.fallback)
}

// ExecutablePath resolves the executable: the managed copy first, then the
// system fallback unless managedOnly is set.
func (m *Manager) ExecutablePath(managedOnly bool) (string, error) {
	if managed := m.ManagedPath(); fileExists(managed) {
		return managed, nil
	}
	if !managedOnly && m.fallback != "" && fileExists(m.fallback) {
		return m.fallback, nil
	}
	return "", ErrNotInstalled
}

type output struct {
	stdout []byte
	stderr []byte
}

// run executes Vale with args in cwd. A non-zero exit status is not an
// error; callers inspect stdout and stderr.
func (m *Manager) run(ctx context.Context, op string, managedOnly bool, cwd string, args ...string) (output, error) {
	ctx, span := startSpan(ctx, op, cwd)
	defer span.End()

	exe, err := m.ExecutablePath(managedOnly)
	if err != nil {
		recordInvocation(ctx, op, 0, err)
		return output{}, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(exe, args...)
	cmd.Dir = cwd
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.logger.DebugContext(ctx, "running vale", "op", op, "args", args, "dir", cwd)
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		err = newError(KindIO, op, err)
		recordInvocation(ctx, op, elapsed, err)
		return output{}, err
	}
	if !utf8.Valid(stdout.Bytes()) || !utf8.Valid(stderr.Bytes()) {
		err = newError(KindUTF8, op, errors.New("output is not valid UTF-8"))
		recordInvocation(ctx, op, elapsed, err)
		return output{}, err
	}
	recordInvocation(ctx, op, elapsed, nil)
	return output{stdout: stdout.Bytes(), stderr: stderr.Bytes()}, nil
}

// decode unmarshals stdout into v, or turns stderr into the error when
// stdout is empty.
func decode(op string, out output, v any) error {
	if len(bytes.TrimSpace(out.stdout)) == 0 {
		return msgError(op, strings.TrimSpace(string(out.stderr)))
	}
	if err := json.Unmarshal(out.stdout, v); err != nil {
		return newError(KindJSON, op, err)
	}
	return nil
}

func configArgs(configPath string, args ...string) []string {
	if configPath == "" {
		return args
	}
	return append([]string{"--config=" + configPath}, args...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

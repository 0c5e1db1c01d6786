package vale

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Lint runs `vale --output=JSON [--config=c] [--filter=f] <path>` from the
// file's directory so relative configuration resolves as on the command line.
func (m *Manager) Lint(ctx context.Context, path string, opts LintOptions) (map[string][]Alert, error) {
	args := []string{"--output=JSON"}
	if opts.ConfigPath != "" {
		args = append(args, "--config="+opts.ConfigPath)
	}
	if opts.Filter != "" {
		args = append(args, "--filter="+opts.Filter)
	}
	args = append(args, path)

	out, err := m.run(ctx, "lint", false, filepath.Dir(path), args...)
	if err != nil {
		return nil, err
	}
	var alerts map[string][]Alert
	if err := decode("lint", out, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Fix hands the alert to `vale fix` through a temporary file.
func (m *Manager) Fix(ctx context.Context, alert Alert) (FixResult, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return FixResult{}, newError(KindJSON, "fix", err)
	}

	tmp, err := os.CreateTemp("", "vale-ls-alert-*.json")
	if err != nil {
		return FixResult{}, newError(KindIO, "fix", err)
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.Write(payload)
	if err := errors.Join(werr, tmp.Close()); err != nil {
		return FixResult{}, newError(KindIO, "fix", err)
	}

	out, err := m.run(ctx, "fix", false, "", "fix", tmp.Name())
	if err != nil {
		return FixResult{}, err
	}
	var result FixResult
	if err := decode("fix", out, &result); err != nil {
		return FixResult{}, err
	}
	return result, nil
}

// Config runs `vale [--config=c] ls-config` in cwd.
func (m *Manager) Config(ctx context.Context, configPath, cwd string) (Config, error) {
	out, err := m.run(ctx, "ls-config", false, cwd, configArgs(configPath, "ls-config")...)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := decode("ls-config", out, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sync runs `vale [--config=c] sync` in cwd. Vale reports sync problems on
// stderr without a JSON contract, so only failures to start are errors.
func (m *Manager) Sync(ctx context.Context, configPath, cwd string) error {
	out, err := m.run(ctx, "sync", false, cwd, configArgs(configPath, "sync")...)
	if err != nil {
		return err
	}
	if msg := strings.TrimSpace(string(out.stderr)); msg != "" {
		m.logger.WarnContext(ctx, "vale sync reported problems", "dir", cwd, "stderr", msg)
	}
	return nil
}

// Compile runs `vale [--config=c] compile <rule>` in cwd.
func (m *Manager) Compile(ctx context.Context, configPath, cwd, rulePath string) (CompiledRule, error) {
	out, err := m.run(ctx, "compile", false, cwd, configArgs(configPath, "compile", rulePath)...)
	if err != nil {
		return CompiledRule{}, err
	}
	var rule CompiledRule
	if err := decode("compile", out, &rule); err != nil {
		return CompiledRule{}, err
	}
	return rule, nil
}

// Version parses the `vale -v` banner.
func (m *Manager) Version(ctx context.Context, managedOnly bool) (string, error) {
	out, err := m.run(ctx, "version", managedOnly, "", "-v")
	if err != nil {
		return "", err
	}
	banner := strings.TrimSpace(string(out.stdout))
	v, ok := strings.CutPrefix(banner, versionPrefix)
	if !ok {
		return "", msgError("version", "unexpected version output: "+banner)
	}
	return v, nil
}

package vale

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

type release struct {
	TagName string `json:"tag_name"`
}

// InstallOrUpdate installs the latest release into the managed directory
// unless the managed copy already reports that version. Any difference,
// older or newer, triggers a reinstall.
func (m *Manager) InstallOrUpdate(ctx context.Context) (string, error) {
	ctx, span := startSpan(ctx, "install", m.binDir)
	defer span.End()

	latest, err := m.LatestVersion(ctx)
	if err != nil {
		return "", err
	}

	current, err := m.Version(ctx, true)
	if err == nil {
		same, err := sameVersion(current, latest)
		if err != nil {
			return "", err
		}
		if same {
			return "Vale is up to date.", nil
		}
		m.logger.InfoContext(ctx, "updating managed vale", "from", current, "to", latest)
	} else {
		m.logger.DebugContext(ctx, "no managed vale found", "error", err)
	}

	if err := m.install(ctx, latest); err != nil {
		return "", err
	}
	return fmt.Sprintf("Vale v%s installed.", latest), nil
}

// LatestVersion returns the newest published version without its "v".
func (m *Manager) LatestVersion(ctx context.Context) (string, error) {
	var rel release
	resp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&rel).
		Get(m.latestURL)
	if err != nil {
		return "", newError(KindHTTP, "fetch latest release", err)
	}
	if resp.IsError() {
		return "", newError(KindHTTP, "fetch latest release", fmt.Errorf("%s: %s", m.latestURL, resp.Status()))
	}
	if rel.TagName == "" {
		return "", newError(KindJSON, "fetch latest release", fmt.Errorf("missing tag_name"))
	}
	return strings.TrimPrefix(rel.TagName, "v"), nil
}

func sameVersion(a, b string) (bool, error) {
	va, vb := "v"+strings.TrimPrefix(a, "v"), "v"+strings.TrimPrefix(b, "v")
	for _, v := range []string{va, vb} {
		if !semver.IsValid(v) {
			return false, newError(KindSemVer, "compare versions", fmt.Errorf("invalid version %q", v))
		}
	}
	return semver.Compare(va, vb) == 0, nil
}

// install downloads the release archive for version and unpacks it over the
// managed directory.
func (m *Manager) install(ctx context.Context, version string) error {
	asset := assetName(version, m.arch)
	url := fmt.Sprintf("%s/v%s/%s", m.releasesURL, version, asset)

	tmpDir, err := os.MkdirTemp("", "vale-ls-download-")
	if err != nil {
		return newError(KindIO, "install", err)
	}
	defer os.RemoveAll(tmpDir)
	archivePath := filepath.Join(tmpDir, asset)

	m.logger.InfoContext(ctx, "downloading vale", "url", url)
	resp, err := m.http.R().SetContext(ctx).SetOutput(archivePath).Get(url)
	if err != nil {
		return newError(KindHTTP, "download "+asset, err)
	}
	if resp.IsError() {
		return newError(KindHTTP, "download "+asset, fmt.Errorf("%s: %s", url, resp.Status()))
	}

	if err := os.MkdirAll(m.binDir, 0o755); err != nil {
		return newError(KindIO, "install", fmt.Errorf("prepare %s: %w", m.binDir, err))
	}
	if isWindows(m.arch) {
		err = extractZip(archivePath, m.binDir)
	} else {
		err = extractTarGz(archivePath, m.binDir)
	}
	if err != nil {
		return newError(KindArchive, "extract "+asset, err)
	}
	if !fileExists(m.ManagedPath()) {
		return newError(KindArchive, "extract "+asset, fmt.Errorf("%s not found in archive", exeName(m.arch)))
	}
	return nil
}

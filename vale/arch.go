package vale

import (
	"fmt"
	"strings"
)

// PlatformArch returns the release asset tag for a GOOS/GOARCH pair, e.g.
// "Linux_64-bit" or "macOS_arm64".
func PlatformArch(goos, goarch string) string {
	var platform string
	switch goos {
	case "windows":
		platform = "Windows"
	case "darwin":
		platform = "macOS"
	default:
		platform = "Linux"
	}

	var bits string
	switch goarch {
	case "amd64":
		bits = "64-bit"
	case "arm", "arm64":
		bits = "arm64"
	default:
		bits = "386"
	}
	return fmt.Sprintf("%s_%s", platform, bits)
}

func isWindows(arch string) bool {
	return strings.Contains(strings.ToLower(arch), "windows")
}

func exeName(arch string) string {
	if isWindows(arch) {
		return "vale.exe"
	}
	return "vale"
}

func assetName(version, arch string) string {
	ext := "tar.gz"
	if isWindows(arch) {
		ext = "zip"
	}
	return fmt.Sprintf("vale_%s_%s.%s", version, arch, ext)
}

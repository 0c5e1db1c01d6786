package session

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/styles"
)

// Kind is the closed set of document kinds the server understands.
type Kind int

const (
	// KindNone documents are not tracked.
	KindNone Kind = iota
	// KindINI is a Vale configuration file.
	KindINI
	// KindRule is a YAML rule definition inside the active StylesPath.
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindINI:
		return "ini"
	case KindRule:
		return "rule"
	default:
		return "none"
	}
}

// iniSentinel marks a path as a Vale configuration file wherever it occurs.
const iniSentinel = ".vale.ini"

// Classify maps a file path to its document kind. stylesRoot is the active
// StylesPath; an empty root means no path can be a rule.
func Classify(path, stylesRoot string) Kind {
	switch {
	case strings.Contains(path, iniSentinel):
		return KindINI
	case filepath.Ext(path) == ".yml" && styles.New(stylesRoot).Contains(path):
		return KindRule
	default:
		return KindNone
	}
}

// URIToPath converts a file:// URI to a local path. It reports false for
// other schemes.
func URIToPath(uri protocol.DocumentURI) (string, bool) {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	p := u.Path
	if runtime.GOOS == "windows" && len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), true
}

// PathToURI converts an absolute local path to a file:// URI.
func PathToURI(path string) protocol.DocumentURI {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return protocol.DocumentURI(u.String())
}

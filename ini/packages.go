package ini

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultLibraryURL lists the packages installable with `vale sync`.
const DefaultLibraryURL = "https://raw.githubusercontent.com/errata-ai/packages/master/library.json"

// DefaultLibraryTimeout bounds one lookup, retries included. The lookup
// runs inside a completion request.
const DefaultLibraryTimeout = 5 * time.Second

// Package is one entry of the package library.
type Package struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
}

// PackageSource lists installable packages.
type PackageSource interface {
	Packages(ctx context.Context) ([]Package, error)
}

// Library fetches the package library over HTTP on every call.
type Library struct {
	client  *resty.Client
	url     string
	timeout time.Duration
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithTimeout replaces DefaultLibraryTimeout.
func WithTimeout(d time.Duration) LibraryOption {
	return func(l *Library) { l.timeout = d }
}

// NewLibrary returns a Library reading url with client. An empty url means
// DefaultLibraryURL.
func NewLibrary(client *resty.Client, url string, opts ...LibraryOption) *Library {
	if url == "" {
		url = DefaultLibraryURL
	}
	l := &Library{client: client, url: url, timeout: DefaultLibraryTimeout}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Packages downloads and decodes the library.
func (l *Library) Packages(ctx context.Context) ([]Package, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var pkgs []Package
	resp, err := l.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&pkgs).
		Get(l.url)
	if err != nil {
		return nil, fmt.Errorf("fetch package library: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch package library: %s", resp.Status())
	}
	return pkgs, nil
}

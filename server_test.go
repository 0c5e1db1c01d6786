package valels_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valels "github.com/errata-ai/vale-ls"
	"github.com/errata-ai/vale-ls/jsonrpc"
	"github.com/errata-ai/vale-ls/lsptest"
	"github.com/errata-ai/vale-ls/middleware"
	"github.com/errata-ai/vale-ls/protocol"
)

var quiet = valels.WithLogger(slog.New(slog.DiscardHandler))

func TestCapabilitiesFollowHandlers(t *testing.T) {
	s := valels.NewServer("test-server", "0.1.0", quiet)
	s.OnHover(func(*valels.Context, *protocol.HoverParams) (*protocol.Hover, error) { return nil, nil })
	s.OnDidSave(func(*valels.Context, *protocol.DidSaveTextDocumentParams) error { return nil })
	s.Command("b.second", func(*valels.Context, []json.RawMessage) (any, error) { return nil, nil })
	s.Command("a.first", func(*valels.Context, []json.RawMessage) (any, error) { return nil, nil })

	c := lsptest.NewClient(t, s)
	res := c.InitializeResult()
	require.NotNil(t, res)

	caps := res.Capabilities
	assert.True(t, caps.HoverProvider)
	require.NotNil(t, caps.TextDocumentSync)
	assert.Equal(t, protocol.SyncFull, caps.TextDocumentSync.Change)
	require.NotNil(t, caps.TextDocumentSync.Save)
	assert.True(t, caps.TextDocumentSync.Save.IncludeText)
	assert.Nil(t, caps.CompletionProvider)
	assert.Nil(t, caps.CodeLensProvider)
	require.NotNil(t, caps.ExecuteCommandProvider)
	assert.Equal(t, []string{"a.first", "b.second"}, caps.ExecuteCommandProvider.Commands)

	require.NotNil(t, res.ServerInfo)
	assert.Equal(t, "test-server", res.ServerInfo.Name)
	assert.Equal(t, "0.1.0", res.ServerInfo.Version)
}

func TestUnknownCommand(t *testing.T) {
	s := valels.NewServer("test-server", "0.1.0", quiet)
	c := lsptest.NewClient(t, s)

	_, err := c.Execute("no.such.command")
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, jsonrpc.CodeInvalidParams, rpcErr.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	s := valels.NewServer("test-server", "0.1.0", quiet,
		valels.WithMiddleware(middleware.Recovery(slog.New(slog.DiscardHandler))))
	s.OnHover(func(*valels.Context, *protocol.HoverParams) (*protocol.Hover, error) {
		panic("boom")
	})

	c := lsptest.NewClient(t, s)
	_, err := c.Hover("file:///a/.vale.ini", lsptest.Pos(0, 0))
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, jsonrpc.CodeInternalError, rpcErr.Code)

	// The connection survives the panic.
	_, err = c.Execute("still.alive")
	require.Error(t, err)
}

func TestSessionIsSyncedBeforeHandlers(t *testing.T) {
	s := valels.NewServer("test-server", "0.1.0", quiet)
	var seen atomic.Bool
	s.OnDidOpen(func(ctx *valels.Context, p *protocol.DidOpenTextDocumentParams) error {
		doc := ctx.Session.Get(p.TextDocument.URI)
		seen.Store(doc != nil && doc.Text() == p.TextDocument.Text)
		return nil
	})

	c := lsptest.NewClient(t, s)
	c.Open("file:///work/.vale.ini", "StylesPath = styles\n")
	require.Eventually(t, seen.Load, time.Second, 10*time.Millisecond)

	// Files that are neither configuration nor rules are not tracked.
	c.Open("file:///work/README.md", "# Title\n")
	require.Eventually(t, func() bool { return !seen.Load() }, time.Second, 10*time.Millisecond)
}

type testSettings struct {
	Name string `toml:"name"`
}

func TestWithConfigReloadsOnChange(t *testing.T) {
	root := lsptest.Workspace(t, map[string]string{".test.toml": "name = \"first\"\n"})

	s := valels.NewServer("test-server", "0.1.0", quiet,
		valels.WithConfig(".test.toml", testSettings{Name: "default"}))
	var name atomic.Value
	name.Store("")
	valels.OnConfigChange(s, func(_ *valels.Context, _, next *testSettings) {
		name.Store(next.Name)
	})

	lsptest.NewClient(t, s, lsptest.WithRoot(root))
	require.Eventually(t, func() bool { return name.Load() == "first" }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".test.toml"), []byte("name = \"second\"\n"), 0o644))
	require.Eventually(t, func() bool { return name.Load() == "second" }, 3*time.Second, 20*time.Millisecond)
}

func TestExitAfterShutdown(t *testing.T) {
	codes := make(chan int, 1)
	s := valels.NewServer("test-server", "0.1.0", quiet,
		valels.WithExitFunc(func(code int) { codes <- code }))

	c := lsptest.NewClient(t, s)
	c.Shutdown()
	c.Exit()

	select {
	case code := <-codes:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("exit was not called")
	}
}

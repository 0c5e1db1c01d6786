// Package transport provides the byte streams vale-ls can speak LSP over:
// stdio (the default for editor clients), TCP, Unix sockets, WebSocket,
// Node.js IPC and an in-memory pipe for tests.
package transport

import (
	"errors"
	"io"
	"os"
)

// Transport is a bidirectional byte stream carrying framed JSON-RPC.
type Transport interface {
	io.ReadWriteCloser
}

// Stdio returns a Transport backed by os.Stdin and os.Stdout.
func Stdio() Transport {
	return &fileTransport{in: os.Stdin, out: os.Stdout}
}

// NodeIPC reads from fd 3 and writes to stdout, matching how the VS Code
// extension host spawns language servers with the ipc transport.
func NodeIPC() Transport {
	return &fileTransport{in: os.NewFile(3, "node-ipc-in"), out: os.Stdout}
}

type fileTransport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (f *fileTransport) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fileTransport) Write(p []byte) (int, error) { return f.out.Write(p) }

func (f *fileTransport) Close() error {
	return errors.Join(f.in.Close(), f.out.Close())
}

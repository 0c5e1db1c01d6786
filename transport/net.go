package transport

import (
	"errors"
	"io/fs"
	"net"
	"os"
)

// TCP wraps an established connection.
func TCP(conn net.Conn) Transport {
	return &netTransport{Conn: conn}
}

// ListenTCP accepts a single client on addr and stops listening.
func ListenTCP(addr string) (Transport, error) {
	return acceptOne("tcp", addr, "")
}

// ListenSocket accepts a single client on a Unix domain socket at path.
// A stale socket file from a previous run is removed first.
func ListenSocket(path string) (Transport, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return acceptOne("unix", path, path)
}

// DialSocket connects to a socket (or named pipe path) opened by the editor.
func DialSocket(path string) (Transport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &netTransport{Conn: conn}, nil
}

func acceptOne(network, addr, cleanup string) (Transport, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return &netTransport{Conn: conn, cleanup: cleanup}, nil
}

type netTransport struct {
	net.Conn
	cleanup string
}

func (n *netTransport) Close() error {
	err := n.Conn.Close()
	if n.cleanup != "" {
		_ = os.Remove(n.cleanup)
	}
	return err
}

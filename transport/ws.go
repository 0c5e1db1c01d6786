package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// ListenWebSocket serves a WebSocket endpoint on addr and returns the first
// client connection. Each WebSocket message carries one or more framed
// JSON-RPC bytes; message boundaries are not significant.
func ListenWebSocket(addr string) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	t := &wsTransport{ln: ln, closed: make(chan struct{})}
	ready := make(chan *websocket.Conn, 1)
	t.srv = &http.Server{Handler: websocket.Handler(func(ws *websocket.Conn) {
		select {
		case ready <- ws:
			// The handler owns the connection; keep it open until Close.
			<-t.closed
		default:
			// Only one client per server process.
			ws.Close()
		}
	})}

	serveErr := make(chan error, 1)
	go func() {
		if err := t.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case t.conn = <-ready:
		return t, nil
	case err := <-serveErr:
		return nil, err
	}
}

type wsTransport struct {
	conn *websocket.Conn
	srv  *http.Server
	ln   net.Listener

	rmu  sync.Mutex
	rbuf []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func (w *wsTransport) Read(p []byte) (int, error) {
	w.rmu.Lock()
	defer w.rmu.Unlock()
	for len(w.rbuf) == 0 {
		var msg []byte
		if err := websocket.Message.Receive(w.conn, &msg); err != nil {
			return 0, err
		}
		w.rbuf = msg
	}
	n := copy(p, w.rbuf)
	w.rbuf = w.rbuf[n:]
	return n, nil
}

func (w *wsTransport) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = errors.Join(w.conn.Close(), w.srv.Close())
	})
	return err
}

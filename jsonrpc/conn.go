// Package jsonrpc implements the JSON-RPC 2.0 connection used by vale-ls over
// Content-Length framed streams.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler answers an incoming request.
type Handler func(ctx context.Context, method string, params RawMessage) (result any, err error)

// NotificationHandler processes an incoming notification.
type NotificationHandler func(ctx context.Context, method string, params RawMessage)

// ErrClosed is returned by Call when the connection shuts down first.
var ErrClosed = errors.New("jsonrpc: connection closed")

// Conn is a bidirectional JSON-RPC 2.0 connection.
//
// Requests are served concurrently. Notifications are delivered in arrival
// order on the read goroutine, so document synchronization (open, change,
// save, close) is never reordered.
type Conn struct {
	codec   *Codec
	handler Handler
	notif   NotificationHandler
	logger  *slog.Logger

	pending   sync.Map // formatID(id) -> chan *Response
	nextID    atomic.Int64
	inflight  sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithLogger reports malformed frames and write failures to logger.
func WithLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = logger }
}

// NewConn creates a connection that dispatches requests to handler and
// notifications to notif.
func NewConn(codec *Codec, handler Handler, notif NotificationHandler, opts ...ConnOption) *Conn {
	c := &Conn{
		codec:   codec,
		handler: handler,
		notif:   notif,
		logger:  slog.New(slog.DiscardHandler),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run reads messages until the stream ends, Close is called or ctx is done.
// It waits for in-flight requests before returning.
func (c *Conn) Run(ctx context.Context) error {
	defer c.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		data, err := c.codec.Read()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
				return fmt.Errorf("reading message: %w", err)
			}
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			c.logger.Warn("dropping malformed message", "error", err)
			continue
		}

		switch m := msg.(type) {
		case *Request:
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				c.reply(ctx, m)
			}()
		case *Notification:
			if c.notif != nil {
				c.notif(ctx, m.Method, m.Params)
			}
		case *Response:
			if ch, ok := c.pending.LoadAndDelete(formatID(m.ID)); ok {
				ch.(chan *Response) <- m
			}
		}
	}
}

func (c *Conn) reply(ctx context.Context, req *Request) {
	result, err := c.handler(ctx, req.Method, req.Params)
	data, merr := json.Marshal(NewResponse(req.ID, result, err))
	if merr != nil {
		c.logger.Error("encoding response", "method", req.Method, "error", merr)
		return
	}
	if werr := c.codec.Write(data); werr != nil {
		c.logger.Error("writing response", "method", req.Method, "error", werr)
	}
}

// Call sends a request and waits for its response.
func (c *Conn) Call(ctx context.Context, method string, params any) (*Response, error) {
	id := IntID(c.nextID.Add(1))
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	ch := make(chan *Response, 1)
	key := formatID(id)
	c.pending.Store(key, ch)
	defer c.pending.Delete(key)

	data, err := json.Marshal(&Request{JSONRPC: Version, ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, err
	}
	if err := c.codec.Write(data); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Notify sends a notification.
func (c *Conn) Notify(_ context.Context, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&Notification{JSONRPC: Version, Method: method, Params: raw})
	if err != nil {
		return err
	}
	return c.codec.Write(data)
}

// Close stops Run at the next message boundary. It is safe to call twice.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func marshalParams(v any) (RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func formatID(id ID) string {
	switch v := id.Value().(type) {
	case int64:
		return fmt.Sprintf("n:%d", v)
	case string:
		return "s:" + v
	default:
		return "null"
	}
}

package valels

import (
	"context"

	"github.com/errata-ai/vale-ls/jsonrpc"
	"github.com/errata-ai/vale-ls/protocol"
)

// ClientProxy sends notifications from the server to the client.
type ClientProxy struct {
	conn *jsonrpc.Conn
}

func newClientProxy(conn *jsonrpc.Conn) *ClientProxy {
	return &ClientProxy{conn: conn}
}

// PublishDiagnostics replaces the client's diagnostics for one document.
func (c *ClientProxy) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	if params.Diagnostics == nil {
		params.Diagnostics = []protocol.Diagnostic{}
	}
	return c.conn.Notify(ctx, protocol.MethodPublishDiagnostics, params)
}

// LogMessage writes to the client's output log.
func (c *ClientProxy) LogMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.conn.Notify(ctx, protocol.MethodLogMessage, &protocol.LogMessageParams{
		Type:    typ,
		Message: message,
	})
}

// ShowMessage pops up a message in the client.
func (c *ClientProxy) ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.conn.Notify(ctx, protocol.MethodShowMessage, &protocol.ShowMessageParams{
		Type:    typ,
		Message: message,
	})
}

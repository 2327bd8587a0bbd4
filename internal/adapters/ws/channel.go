// Package ws binds the session core to WebSocket transport.
package ws

import (
	"context"

	"github.com/coder/websocket"

	"github.com/jshinodea/content-retriever/pkg/ports"
)

// Channel implements ports.Channel over a WebSocket connection. Frames are
// text messages carrying the JSON envelope.
type Channel struct {
	conn *websocket.Conn
}

// NewChannel wraps an established WebSocket connection.
func NewChannel(conn *websocket.Conn) *Channel {
	return &Channel{conn: conn}
}

// Send writes one frame.
func (c *Channel) Send(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// Receive reads the next frame. WebSocket guarantees in-order delivery, so
// the session's single total order of events is preserved.
func (c *Channel) Receive(ctx context.Context) ([]byte, error) {
	_, frame, err := c.conn.Read(ctx)
	return frame, err
}

// Close closes the connection with a normal status.
func (c *Channel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Dialer implements ports.Dialer by dialing a WebSocket URL. The session
// layer calls it on initial connect and on every reconnect attempt.
type Dialer struct {
	URL string
}

// Dial establishes a fresh connection.
func (d Dialer) Dial(ctx context.Context) (ports.Channel, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, err
	}
	return NewChannel(conn), nil
}

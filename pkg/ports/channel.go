package ports

import "context"

// Channel is one duplex byte-frame connection to a peer. Implementations
// must deliver frames in order; the session layer performs no reordering or
// buffering across messages.
type Channel interface {
	// Send delivers an encoded frame to the peer.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks until the next frame arrives, the context is canceled,
	// or the channel closes.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears down the connection.
	Close() error
}

// Dialer establishes a fresh Channel. The session layer calls it on initial
// connect and on each reconnect attempt.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Channel, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Channel, error) { return f(ctx) }

// Package session owns one duplex channel per client and manages its
// lifecycle: connect, disconnect, and reconnect with exponential backoff.
//
// A session's identity is stable across reconnects; the channel handle is
// replaced on each successful reconnect. Inbound frames are handed to the
// dispatch registry in arrival order from a single goroutine, so every
// handler runs to completion before the next message is processed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/dispatch"
	"github.com/jshinodea/content-retriever/pkg/domain"
	"github.com/jshinodea/content-retriever/pkg/ports"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

// ConnState is the connection lifecycle position of a session.
type ConnState string

const (
	StateDisconnected       ConnState = "disconnected"
	StateConnecting         ConnState = "connecting"
	StateConnected          ConnState = "connected"
	StateReconnectScheduled ConnState = "reconnect_scheduled"
	StateGivenUp            ConnState = "given_up"
)

// Notice reports a session lifecycle transition. Every transition emits a
// notice; nothing throws past the session boundary.
type Notice struct {
	State   ConnState
	Attempt int
	Delay   time.Duration
	Err     error
}

// Defaults for the reconnection policy.
const (
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultMaxAttempts = 5
)

// Session is one logical client connection.
type Session struct {
	id       string
	dialer   ports.Dialer
	registry *dispatch.Registry
	clock    ports.Clock
	logger   *slog.Logger
	notify   func(Notice)

	base        time.Duration
	maxAttempts int

	mu         sync.Mutex
	ch         ports.Channel
	state      ConnState
	attempts   int
	reconnects int
	closed     bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock injects a clock for deterministic backoff testing.
func WithClock(clock ports.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithBackoff overrides the reconnect policy. The delay before attempt n is
// base * 2^(n-1); after maxAttempts consecutive failures the session gives up.
func WithBackoff(base time.Duration, maxAttempts int) Option {
	return func(s *Session) {
		s.base = base
		s.maxAttempts = maxAttempts
	}
}

// WithNotify registers a callback for lifecycle notices.
func WithNotify(fn func(Notice)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithID fixes the session identity (e.g. the transport client ID). By
// default a fresh UUID is assigned.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session. The dialer may be nil for server-accepted
// connections driven through Serve.
func New(dialer ports.Dialer, registry *dispatch.Registry, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		dialer:      dialer,
		registry:    registry,
		clock:       ports.SystemClock{},
		logger:      logging.NewNop(),
		base:        DefaultBackoffBase,
		maxAttempts: DefaultMaxAttempts,
		state:       StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the stable session identity.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reconnects returns how many reconnects have succeeded over the session's
// lifetime.
func (s *Session) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// Connect establishes the duplex channel and starts the receive loop in the
// background. After the reconnect budget is exhausted the session is
// terminal until Connect is called again.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.dialer == nil {
		s.mu.Unlock()
		return errors.New("session has no dialer")
	}
	if s.ch != nil {
		s.mu.Unlock()
		return nil
	}
	s.closed = false
	s.attempts = 0
	s.mu.Unlock()

	s.transition(Notice{State: StateConnecting})
	ch, err := s.dialer.Dial(ctx)
	if err != nil {
		s.transition(Notice{State: StateDisconnected, Err: err})
		return fmt.Errorf("connect session %s: %w", s.id, err)
	}
	s.attach(ch)
	s.transition(Notice{State: StateConnected})

	go s.run(ctx, ch)
	return nil
}

// Serve drives an already-accepted channel synchronously until it closes.
// No reconnection is attempted: for server-accepted connections, redialing
// is the peer's responsibility.
func (s *Session) Serve(ctx context.Context, ch ports.Channel) error {
	s.attach(ch)
	s.transition(Notice{State: StateConnected})

	err := s.serve(ctx, ch)

	s.detach()
	s.transition(Notice{State: StateDisconnected, Err: err})
	return err
}

// Send encodes and delivers a message on the current channel. With no
// channel open it emits a user-visible notice and returns
// domain.ErrNotConnected rather than failing silently.
func (s *Session) Send(ctx context.Context, msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	if ch == nil {
		s.logger.Warn("send while disconnected", "session", s.id, "type", msg.Type)
		s.emit(Notice{State: StateDisconnected, Err: domain.ErrNotConnected})
		return domain.ErrNotConnected
	}
	if err := ch.Send(ctx, frame); err != nil {
		return fmt.Errorf("send %s message: %w", msg.Type, err)
	}
	return nil
}

// Close tears the session down permanently. No reconnect is scheduled.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	ch := s.ch
	s.ch = nil
	s.mu.Unlock()

	if ch != nil {
		return ch.Close()
	}
	return nil
}

// run serves the channel and reconnects on unexpected closure until the
// session is closed or the backoff budget runs out.
func (s *Session) run(ctx context.Context, ch ports.Channel) {
	for {
		err := s.serve(ctx, ch)

		s.detach()
		if s.isClosed() || ctx.Err() != nil {
			s.transition(Notice{State: StateDisconnected, Err: err})
			return
		}
		s.transition(Notice{State: StateDisconnected, Err: err})

		next, ok := s.reconnect(ctx)
		if !ok {
			return
		}
		ch = next
	}
}

// serve reads frames in arrival order and dispatches them one at a time.
// A frame that fails to decode is a protocol error: logged, skipped, and the
// session continues.
func (s *Session) serve(ctx context.Context, ch ports.Channel) error {
	for {
		frame, err := ch.Receive(ctx)
		if err != nil {
			return err
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			s.logger.Warn("dropping undecodable frame", "session", s.id, "err", err)
			continue
		}

		// Handler failures are already isolated and logged by the registry;
		// the joined error is recorded here and never tears the session down.
		if err := s.registry.Dispatch(ctx, msg); err != nil {
			s.logger.Error("dispatch completed with errors", "session", s.id, "type", msg.Type, "err", err)
		}
	}
}

// reconnect runs the backoff loop. It returns the fresh channel, or false
// when the session gave up or the context was canceled.
func (s *Session) reconnect(ctx context.Context) (ports.Channel, bool) {
	for {
		s.mu.Lock()
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		if attempt > s.maxAttempts {
			// Terminal: a fresh Connect is required. Emitted exactly once.
			s.transition(Notice{State: StateGivenUp, Attempt: attempt - 1})
			return nil, false
		}

		delay := s.base << (attempt - 1)
		s.transition(Notice{State: StateReconnectScheduled, Attempt: attempt, Delay: delay})

		select {
		case <-ctx.Done():
			return nil, false
		case <-s.clock.After(delay):
		}

		if s.isClosed() {
			return nil, false
		}

		s.transition(Notice{State: StateConnecting, Attempt: attempt})
		ch, err := s.dialer.Dial(ctx)
		if err != nil {
			s.logger.Warn("reconnect attempt failed", "session", s.id, "attempt", attempt, "err", err)
			continue
		}

		s.mu.Lock()
		s.ch = ch
		s.attempts = 0
		s.reconnects++
		s.mu.Unlock()
		s.transition(Notice{State: StateConnected, Attempt: attempt})
		return ch, true
	}
}

func (s *Session) attach(ch ports.Channel) {
	s.mu.Lock()
	s.ch = ch
	s.attempts = 0
	s.mu.Unlock()
}

func (s *Session) detach() {
	s.mu.Lock()
	s.ch = nil
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// transition records the new state and emits its notice.
func (s *Session) transition(n Notice) {
	s.mu.Lock()
	s.state = n.State
	s.mu.Unlock()
	s.emit(n)
}

// emit delivers a notice without changing state (e.g. send-while-disconnected).
func (s *Session) emit(n Notice) {
	s.logger.Debug("session notice",
		"session", s.id,
		"state", n.State,
		"attempt", n.Attempt,
		"delay", n.Delay,
		"err", n.Err,
	)
	if s.notify != nil {
		s.notify(n)
	}
}

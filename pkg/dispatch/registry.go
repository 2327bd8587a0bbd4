// Package dispatch routes decoded messages to interested handlers by type.
//
// A Registry is owned by a single session and constructed per session, never
// shared process-wide, so handler state cannot leak across sessions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/protocol"
)

// Handler processes one decoded message. Handlers run to completion before
// the next message on the session is dispatched.
type Handler func(ctx context.Context, msg protocol.Message) error

// Registry routes inbound messages by type to zero-or-more handlers.
type Registry struct {
	handlers map[protocol.MessageType][]Handler
	logger   *slog.Logger

	// onUnhandled, if set, observes messages whose type has no handler.
	onUnhandled func(msg protocol.Message)

	// observer, if set, sees every dispatched message and its joined
	// handler error. Used for metrics.
	observer func(msg protocol.Message, err error)
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures a logger for handler failures and unhandled types.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithUnhandledHook registers a callback for messages with no handler.
func WithUnhandledHook(fn func(msg protocol.Message)) Option {
	return func(r *Registry) {
		r.onUnhandled = fn
	}
}

// WithObserver registers a callback invoked after every dispatch with the
// message and the joined handler error, if any.
func WithObserver(fn func(msg protocol.Message, err error)) Option {
	return func(r *Registry) {
		r.observer = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[protocol.MessageType][]Handler),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a handler for a message type. Multiple handlers per type are
// allowed and run in registration order.
func (r *Registry) Register(t protocol.MessageType, h Handler) {
	r.handlers[t] = append(r.handlers[t], h)
}

// Dispatch invokes every handler registered for the message's type.
//
// A failing or panicking handler must not prevent other handlers of the same
// message from running, and must not crash the session: each handler is
// isolated, its failure logged, and the joined errors returned for the
// caller to log. An unknown type is an unhandled-message condition, reported
// but never fatal.
func (r *Registry) Dispatch(ctx context.Context, msg protocol.Message) error {
	handlers, ok := r.handlers[msg.Type]
	if !ok || len(handlers) == 0 {
		r.logger.Warn("unhandled message type", "type", msg.Type)
		if r.onUnhandled != nil {
			r.onUnhandled(msg)
		}
		return nil
	}

	var errs []error
	for i, h := range handlers {
		if err := r.invoke(ctx, h, msg); err != nil {
			r.logger.Error("handler failed",
				"type", msg.Type,
				"handler", i,
				"err", err,
			)
			errs = append(errs, err)
		}
	}

	joined := errors.Join(errs...)
	if r.observer != nil {
		r.observer(msg, joined)
	}
	return joined
}

// invoke runs one handler, converting a panic into an error.
func (r *Registry) invoke(ctx context.Context, h Handler, msg protocol.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, msg)
}

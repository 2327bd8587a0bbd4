package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/internal/runtime"
	"github.com/jshinodea/content-retriever/pkg/dispatch"
	"github.com/jshinodea/content-retriever/pkg/observability"
	"github.com/jshinodea/content-retriever/pkg/ports"
	"github.com/jshinodea/content-retriever/pkg/protocol"
	"github.com/jshinodea/content-retriever/pkg/session"
)

// Hub accepts WebSocket connections and runs one isolated session per
// client: its own registry, state machine, and table. No mutable state
// crosses session boundaries.
type Hub struct {
	worker  ports.Worker
	store   ports.SnapshotStore
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a hub with the given collaborators.
func NewHub(worker ports.Worker, store ports.SnapshotStore, opts ...HubOption) *Hub {
	h := &Hub{
		worker:   worker,
		store:    store,
		logger:   logging.NewNop(),
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and drives the session until the client
// disconnects. The route parameter clientID is the connection identity.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		http.Error(w, "missing client id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "client", clientID, "err", err)
		return
	}

	sess := h.newSession(clientID)
	h.track(clientID, sess)
	defer h.untrack(clientID)

	if h.metrics != nil {
		h.metrics.ActiveSessions.Inc()
		defer h.metrics.ActiveSessions.Dec()
	}

	h.logger.Info("client connected", "client", clientID, "session", sess.ID())
	err = sess.Serve(r.Context(), NewChannel(conn))
	h.logger.Info("client disconnected", "client", clientID, "session", sess.ID(), "err", err)
}

// newSession builds the per-connection session with its own registry and
// engine wiring.
func (h *Hub) newSession(clientID string) *session.Session {
	logger := h.logger.With("client", clientID)

	regOpts := []dispatch.Option{dispatch.WithLogger(logger)}
	if h.metrics != nil {
		regOpts = append(regOpts,
			dispatch.WithObserver(func(msg protocol.Message, err error) {
				h.metrics.MessagesTotal.WithLabelValues("inbound", string(msg.Type)).Inc()
				if err != nil {
					h.metrics.DispatchErrors.Inc()
				}
			}),
			dispatch.WithUnhandledHook(func(msg protocol.Message) {
				h.metrics.UnhandledTotal.Inc()
			}),
		)
	}
	registry := dispatch.NewRegistry(regOpts...)

	sess := session.New(nil, registry,
		session.WithID(clientID),
		session.WithLogger(logger),
	)

	store := h.store
	if h.metrics != nil {
		store = observability.InstrumentStore(store, h.metrics)
	}

	var sender runtime.Sender = sess
	if h.metrics != nil {
		sender = &countingSender{next: sess, metrics: h.metrics}
	}

	engine := runtime.NewEngine(sess.ID(), sender, h.worker, store,
		runtime.WithLogger(logger),
	)
	engine.Register(registry)
	return sess
}

// Broadcast sends a message to every connected client, e.g. a shutdown
// notice.
func (h *Hub) Broadcast(ctx context.Context, msg protocol.Message) {
	h.mu.Lock()
	sessions := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.Send(ctx, msg); err != nil {
			h.logger.Warn("broadcast delivery failed", "session", s.ID(), "err", err)
		}
	}
}

// ActiveSessions returns the number of connected clients.
func (h *Hub) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) track(clientID string, s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[clientID] = s
}

func (h *Hub) untrack(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, clientID)
}

// countingSender counts outbound messages by type.
type countingSender struct {
	next    runtime.Sender
	metrics *observability.Metrics
}

func (s *countingSender) Send(ctx context.Context, msg protocol.Message) error {
	err := s.next.Send(ctx, msg)
	if err == nil {
		s.metrics.MessagesTotal.WithLabelValues("outbound", string(msg.Type)).Inc()
	}
	return err
}

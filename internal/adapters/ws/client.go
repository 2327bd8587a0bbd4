package ws

import (
	"github.com/jshinodea/content-retriever/internal/config"
	"github.com/jshinodea/content-retriever/pkg/dispatch"
	"github.com/jshinodea/content-retriever/pkg/observability"
	"github.com/jshinodea/content-retriever/pkg/session"
)

// NewClient creates a reconnecting client session for a server WebSocket
// endpoint (e.g. ws://host:port/api/ws/my-client). The session redials the
// same URL on unexpected closure, subject to its backoff policy.
func NewClient(url string, registry *dispatch.Registry, opts ...session.Option) *session.Session {
	return session.New(Dialer{URL: url}, registry, opts...)
}

// NewClientFromConfig creates a client whose reconnect policy comes from the
// configured backoff settings. Later options override, so callers can still
// tighten the policy for tests.
func NewClientFromConfig(url string, registry *dispatch.Registry, cfg config.Config, opts ...session.Option) *session.Session {
	opts = append([]session.Option{
		session.WithBackoff(cfg.Backoff.Base, cfg.Backoff.MaxAttempts),
	}, opts...)
	return NewClient(url, registry, opts...)
}

// NewInstrumentedClient is NewClient with reconnect accounting. A later
// WithNotify option in opts replaces the counting hook.
func NewInstrumentedClient(url string, registry *dispatch.Registry, metrics *observability.Metrics, opts ...session.Option) *session.Session {
	counting := session.WithNotify(func(n session.Notice) {
		if n.State == session.StateConnected && n.Attempt > 0 {
			metrics.ReconnectsTotal.Inc()
		}
	})
	opts = append([]session.Option{counting}, opts...)
	return NewClient(url, registry, opts...)
}

// Package retriever assembles the content-retriever server: the WebSocket
// hub, the persistence collaborator, and the HTTP surface.
package retriever

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jshinodea/content-retriever/internal/adapters/httpapi"
	"github.com/jshinodea/content-retriever/internal/adapters/memory"
	redisadapter "github.com/jshinodea/content-retriever/internal/adapters/redis"
	"github.com/jshinodea/content-retriever/internal/adapters/ws"
	"github.com/jshinodea/content-retriever/internal/config"
	"github.com/jshinodea/content-retriever/internal/logging"
	"github.com/jshinodea/content-retriever/pkg/observability"
	"github.com/jshinodea/content-retriever/pkg/ports"
)

// Version is the release identifier, overridable at build time.
var Version = "dev"

// Server bundles the running pieces behind one HTTP handler.
type Server struct {
	Hub     *ws.Hub
	Handler http.Handler
	Metrics *observability.Metrics
}

// NewServer wires a server from configuration. The worker is the extraction
// capability; an empty redis address selects the in-memory snapshot store.
func NewServer(cfg config.Config, worker ports.Worker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	var store ports.SnapshotStore
	if cfg.Redis.Addr != "" {
		store = redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.TTL),
		)
	} else {
		store = memory.NewStore()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	hub := ws.NewHub(worker, store,
		ws.WithLogger(logger),
		ws.WithMetrics(metrics),
	)

	return &Server{
		Hub:     hub,
		Handler: httpapi.NewRouter(hub, registry),
		Metrics: metrics,
	}
}

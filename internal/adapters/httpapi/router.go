// Package httpapi binds the transport endpoints: the WebSocket upgrade
// route, the health check, and Prometheus metrics.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP handler. The wsHandler owns everything behind
// the upgrade; routing here stays thin.
func NewRouter(wsHandler http.Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Handle("/ws/{clientID}", wsHandler)
		r.Get("/health", handleHealth)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		http.Error(w, "encode health response", http.StatusInternalServerError)
	}
}

// Package observability exposes Prometheus metrics for the orchestration
// core: connection churn, message volume by type, and dispatch failures.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the instrument set registered by the server.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	MessagesTotal    *prometheus.CounterVec
	ReconnectsTotal  prometheus.Counter
	DispatchErrors   prometheus.Counter
	UnhandledTotal   prometheus.Counter
	SnapshotSaves    prometheus.Counter
	SnapshotFailures prometheus.Counter
}

// New creates and registers the metric set on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "retriever",
			Name:      "active_sessions",
			Help:      "Number of currently connected sessions.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "messages_total",
			Help:      "Messages processed, by direction and type.",
		}, []string{"direction", "type"}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "reconnects_total",
			Help:      "Successful reconnects across all sessions.",
		}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "dispatch_errors_total",
			Help:      "Handler invocations that returned an error or panicked.",
		}),
		UnhandledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "unhandled_messages_total",
			Help:      "Messages whose type had no registered handler.",
		}),
		SnapshotSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "snapshot_saves_total",
			Help:      "Table snapshots handed to the persistence collaborator.",
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "snapshot_failures_total",
			Help:      "Persistence collaborator failures.",
		}),
	}

	reg.MustRegister(
		m.ActiveSessions,
		m.MessagesTotal,
		m.ReconnectsTotal,
		m.DispatchErrors,
		m.UnhandledTotal,
		m.SnapshotSaves,
		m.SnapshotFailures,
	)
	return m
}

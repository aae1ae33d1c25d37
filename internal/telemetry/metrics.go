package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	Dispatched      *prometheus.CounterVec // operations handed to the driver, by class
	Resolved        *prometheus.CounterVec // routed results, by class and outcome
	UnmatchedEvents prometheus.Counter     // result events with no pending call
	PendingCalls    prometheus.Gauge       // calls currently in flight
	TapState        prometheus.Gauge       // numeric tap-to-pay state
	registry        *prometheus.Registry
}

// NewMetrics builds and registers the collectors on a dedicated registry so
// tests can gather without touching the global default.
func NewMetrics() *Metrics {
	m := &Metrics{
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sumup_bridge",
			Name:      "operations_dispatched_total",
			Help:      "Operations handed to the reader SDK driver.",
		}, []string{"class"}),
		Resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sumup_bridge",
			Name:      "results_routed_total",
			Help:      "Result events routed to a pending call.",
		}, []string{"class", "outcome"}),
		UnmatchedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sumup_bridge",
			Name:      "unmatched_result_events_total",
			Help:      "Result events dropped because no call was pending.",
		}),
		PendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sumup_bridge",
			Name:      "pending_calls",
			Help:      "Calls currently awaiting a result.",
		}),
		TapState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sumup_bridge",
			Name:      "taptopay_state",
			Help:      "Tap-to-pay lifecycle state (0 uninitialized, 1 initializing, 2 ready, 3 unavailable).",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Dispatched, m.Resolved, m.UnmatchedEvents, m.PendingCalls, m.TapState)
	return m
}

// Handler serves the bridge metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw metric families, used by tests.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

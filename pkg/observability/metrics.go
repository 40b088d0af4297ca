package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultChanged  = "changed"
	ResultIgnored  = "ignored"
	ResultRejected = "rejected"
	ResultOK       = "ok"
	ResultError    = "error"
)

// Metrics holds the Prometheus collectors of a statelens process.
type Metrics struct {
	registry *prometheus.Registry

	Events         *prometheus.CounterVec
	Previews       prometheus.Counter
	Loads          *prometheus.CounterVec
	Resets         prometheus.Counter
	NodeVisits     *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statelens_events_total",
				Help: "Total number of events sent to interpreters, by result",
			},
			[]string{"result"},
		),
		Previews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statelens_previews_total",
			Help: "Total number of preview computations",
		}),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statelens_loads_total",
				Help: "Total number of machine definition loads, by result",
			},
			[]string{"result"},
		),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statelens_resets_total",
			Help: "Total number of interpreter resets",
		}),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statelens_node_visits_total",
				Help: "Total number of node entries",
			},
			[]string{"node_id"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statelens_active_sessions",
			Help: "Number of open sessions",
		}),
	}
	m.registry.MustRegister(m.Events, m.Previews, m.Loads, m.Resets, m.NodeVisits, m.ActiveSessions)
	return m
}

// Registry exposes the underlying registry (e.g. for tests or extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that count node entries. next, if set, is called as well.
func (m *Metrics) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	hooks := next
	hooks.OnNodeEnter = func(ctx context.Context, e *domain.NodeEvent) {
		m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		if next.OnNodeEnter != nil {
			next.OnNodeEnter(ctx, e)
		}
	}
	return hooks
}

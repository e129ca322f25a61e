package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the authorization engine.
type Metrics struct {
	// Decision metrics, labeled by interception layer (gatekeeper, guard)
	// and outcome (allowed, unauthenticated, forbidden).
	DecisionsTotal *prometheus.CounterVec

	// Roster service metrics.
	RosterLookupsTotal   *prometheus.CounterVec
	RosterLookupDuration *prometheus.HistogramVec
	RosterCacheHitsTotal prometheus.Counter
	RosterCacheMissTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all authorization metrics. A nil
// registry gets a fresh one (used by tests to avoid double registration).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillstack_authz_decisions_total",
				Help: "Authorization decisions by interception layer and outcome",
			},
			[]string{"layer", "outcome"},
		),
		RosterLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tillstack_roster_lookups_total",
				Help: "Roster service lookups by operation and status",
			},
			[]string{"operation", "status"},
		),
		RosterLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tillstack_roster_lookup_duration_seconds",
				Help:    "Roster service lookup duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RosterCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tillstack_roster_cache_hits_total",
				Help: "Roster membership cache hits",
			},
		),
		RosterCacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tillstack_roster_cache_misses_total",
				Help: "Roster membership cache misses",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.DecisionsTotal,
		m.RosterLookupsTotal,
		m.RosterLookupDuration,
		m.RosterCacheHitsTotal,
		m.RosterCacheMissTotal,
	)
	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision increments the decision counter for a layer and outcome.
func (m *Metrics) RecordDecision(layer, outcome string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(layer, outcome).Inc()
}

// Package metrics exposes Prometheus collectors for the routing engine.
//
// Each Metrics value owns its registry so several coordinators (or tests)
// can coexist in one process. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for routing commits.
type Metrics struct {
	commitsTotal       *prometheus.CounterVec
	commitDuration     prometheus.Histogram
	commandsTotal      *prometheus.CounterVec
	snapshotsApplied   prometheus.Counter
	snapshotsDebounced prometheus.Counter
	routingState       prometheus.Gauge
	registry           *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "nfc"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.commitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "commits_total",
			Help:      "Total number of routing commits by outcome",
		},
		[]string{"outcome"},
	)

	m.commitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "commit_duration_seconds",
			Help:      "Routing commit duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "commands_total",
			Help:      "Total number of controller commands by operation and status",
		},
		[]string{"op", "status"},
	)

	m.snapshotsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "snapshots_applied_total",
			Help:      "Total number of capability snapshots applied",
		},
	)

	m.snapshotsDebounced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "snapshots_debounced_total",
			Help:      "Total number of capability snapshots held back by the debounce timer",
		},
	)

	m.routingState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "state",
			Help:      "Routing state (0=clean, 1=dirty, 2=committing)",
		},
	)

	m.registry.MustRegister(
		m.commitsTotal,
		m.commitDuration,
		m.commandsTotal,
		m.snapshotsApplied,
		m.snapshotsDebounced,
		m.routingState,
	)

	return m
}

// RecordCommit records a finished commit.
func (m *Metrics) RecordCommit(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(outcome).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

// RecordCommand records a resolved controller command.
func (m *Metrics) RecordCommand(op, status string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(op, status).Inc()
}

// RecordSnapshotApplied counts an applied capability snapshot.
func (m *Metrics) RecordSnapshotApplied() {
	if m == nil {
		return
	}
	m.snapshotsApplied.Inc()
}

// RecordSnapshotDebounced counts a capability snapshot held back by the
// debounce timer.
func (m *Metrics) RecordSnapshotDebounced() {
	if m == nil {
		return
	}
	m.snapshotsDebounced.Inc()
}

// SetRoutingState sets the routing state gauge.
func (m *Metrics) SetRoutingState(state int) {
	if m == nil {
		return
	}
	m.routingState.Set(float64(state))
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
// A nil Metrics serves an empty registry.
func (m *Metrics) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	if m != nil {
		reg = m.registry
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		Registry:          reg,
		EnableOpenMetrics: true,
	})
}

// Package metrics exports iteration metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steveyegge/slogan-gen/internal/iterative"
	"github.com/steveyegge/slogan-gen/internal/types"
)

const namespace = "slogan_gen"

// PrometheusCollector implements iterative.MetricsCollector on top of a
// private registry so several collectors can coexist in one process.
type PrometheusCollector struct {
	registry *prometheus.Registry

	turnsStarted    prometheus.Counter
	turnsCompleted  prometheus.Counter
	approvals       prometheus.Counter
	faults          *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	sessionDuration prometheus.Histogram
	turnsPerSession prometheus.Histogram
	artifactLength  prometheus.Histogram
}

var _ iterative.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a collector with its own registry. Process
// and Go runtime collectors are registered alongside the iteration metrics.
func NewPrometheusCollector() *PrometheusCollector {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		turnsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_started_total",
			Help:      "Turns whose producer call has started",
		}),
		turnsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Turns recorded on a session",
		}),
		approvals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_approvals_total",
			Help:      "Turns whose critique was detected as approval",
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_faults_total",
			Help:      "Producer or critic failures",
		}, []string{"role"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Completed sessions by completion reason",
		}, []string{"reason"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Time spent waiting on each capability",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"role"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time from session start to completion",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		turnsPerSession: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_turns",
			Help:      "Turns recorded per completed session",
			Buckets:   prometheus.LinearBuckets(1, 1, types.MaxRoundBudget),
		}),
		artifactLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_length_bytes",
			Help:      "Length of produced artifacts",
			Buckets:   []float64{16, 32, 64, 128, 256, 512},
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.turnsStarted,
		c.turnsCompleted,
		c.approvals,
		c.faults,
		c.sessions,
		c.turnDuration,
		c.sessionDuration,
		c.turnsPerSession,
		c.artifactLength,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *PrometheusCollector) RecordTurnStart(int) {
	c.turnsStarted.Inc()
}

func (c *PrometheusCollector) RecordTurnEnd(m *iterative.TurnMetrics) {
	if m == nil {
		return
	}
	c.turnsCompleted.Inc()
	if m.Approved {
		c.approvals.Inc()
	}
	c.turnDuration.WithLabelValues(string(iterative.RoleProducer)).Observe(m.ProducerDuration.Seconds())
	c.turnDuration.WithLabelValues(string(iterative.RoleCritic)).Observe(m.CriticDuration.Seconds())
	c.artifactLength.Observe(float64(m.ArtifactLength))
}

func (c *PrometheusCollector) RecordCapabilityFault(fault *iterative.CapabilityFault) {
	if fault == nil {
		return
	}
	c.faults.WithLabelValues(string(fault.Role)).Inc()
}

func (c *PrometheusCollector) RecordSessionComplete(_ *types.Session, m *iterative.SessionMetrics) {
	if m == nil {
		return
	}
	c.sessions.WithLabelValues(string(m.Reason)).Inc()
	c.sessionDuration.Observe(m.TotalDuration.Seconds())
	c.turnsPerSession.Observe(float64(m.TotalTurns))
}

// Multi fans every call out to each collector in order.
type Multi []iterative.MetricsCollector

var _ iterative.MetricsCollector = Multi(nil)

func (m Multi) RecordTurnStart(sequence int) {
	for _, c := range m {
		c.RecordTurnStart(sequence)
	}
}

func (m Multi) RecordTurnEnd(metrics *iterative.TurnMetrics) {
	for _, c := range m {
		c.RecordTurnEnd(metrics)
	}
}

func (m Multi) RecordCapabilityFault(fault *iterative.CapabilityFault) {
	for _, c := range m {
		c.RecordCapabilityFault(fault)
	}
}

func (m Multi) RecordSessionComplete(session *types.Session, metrics *iterative.SessionMetrics) {
	for _, c := range m {
		c.RecordSessionComplete(session, metrics)
	}
}

// Package metrics exposes Prometheus metrics for the relevance pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all counters for the daemon. A nil *Metrics is safe to use;
// every method no-ops.
type Metrics struct {
	UpdatesTotal     *prometheus.CounterVec
	RetrievalErrors  prometheus.Counter
	MemoriesInjected prometheus.Counter
	PipelineDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salience_updates_total",
				Help: "Conversation update outcomes by reason.",
			},
			[]string{"reason"},
		),
		RetrievalErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "salience_retrieval_errors_total",
				Help: "Memory store calls that failed and degraded to empty results.",
			},
		),
		MemoriesInjected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "salience_memories_injected_total",
				Help: "Memories delivered to the host across all sessions.",
			},
		),
		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "salience_pipeline_duration_seconds",
				Help:    "Duration of one full relevance pipeline pass.",
				Buckets: prometheus.DefBuckets,
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.UpdatesTotal)
	reg.MustRegister(m.RetrievalErrors)
	reg.MustRegister(m.MemoriesInjected)
	reg.MustRegister(m.PipelineDuration)

	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordUpdate counts one ProcessConversationUpdate outcome.
func (m *Metrics) RecordUpdate(reason string) {
	if m == nil {
		return
	}
	m.UpdatesTotal.WithLabelValues(reason).Inc()
}

// RecordRetrievalError counts one degraded store call.
func (m *Metrics) RecordRetrievalError() {
	if m == nil {
		return
	}
	m.RetrievalErrors.Inc()
}

// RecordInjected counts memories delivered to the host.
func (m *Metrics) RecordInjected(n int) {
	if m == nil {
		return
	}
	m.MemoriesInjected.Add(float64(n))
}

// ObservePipeline records one pipeline pass duration in seconds.
func (m *Metrics) ObservePipeline(seconds float64) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(seconds)
}

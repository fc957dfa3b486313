// Package metrics provides Prometheus metrics for the research pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LLM call outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeEmpty       = "empty"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeSkipped     = "skipped"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LLMCallsTotal        *prometheus.CounterVec
	LLMCallDuration      *prometheus.HistogramVec
	PhaseDuration        *prometheus.HistogramVec
	ActiveStreams        prometheus.Gauge
	DedupRejectionsTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.LLMCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blueprint_llm_calls_total",
			Help: "Total number of LLM provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	m.LLMCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blueprint_llm_call_duration_seconds",
			Help:    "Duration of LLM provider calls in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		},
		[]string{"provider"},
	)

	m.PhaseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blueprint_pipeline_phase_duration_seconds",
			Help:    "Duration of pipeline phases in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 240},
		},
		[]string{"phase"},
	)

	m.ActiveStreams = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "blueprint_active_streams",
			Help: "Number of event streams currently open",
		},
	)

	m.DedupRejectionsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "blueprint_dedup_rejections_total",
			Help: "Total number of requests rejected because the same work was in flight",
		},
	)

	return m
}

// RecordLLMCall records one provider attempt
func (m *Metrics) RecordLLMCall(provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.LLMCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordPhase records how long a pipeline phase ran
func (m *Metrics) RecordPhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}

func (m *Metrics) DedupRejected() {
	if m == nil {
		return
	}
	m.DedupRejectionsTotal.Inc()
}

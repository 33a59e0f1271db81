package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-stage outcomes of enrichment runs.
type PipelineMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrich_stage_duration_seconds",
		Help:    "Duration of enrichment pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrich_stage_outcomes_total",
		Help: "Enrichment stage outcomes by stage and result.",
	}, []string{"stage", "result"})
	reg.MustRegister(duration, outcomes)
	return &PipelineMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records the duration for the named stage.
func (p *PipelineMetrics) ObserveDuration(stage string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncOutcome increments the outcome counter for the named stage.
func (p *PipelineMetrics) IncOutcome(stage, result string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(stage), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

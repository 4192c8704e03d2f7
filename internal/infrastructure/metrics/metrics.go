package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/journalbot/internal/domain"
)

// Metrics holds all Prometheus metrics for the processing pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageFailures *prometheus.CounterVec

	RuleReloads      *prometheus.CounterVec
	RulesLoaded      prometheus.Gauge
	CacheLookups     *prometheus.CounterVec
	ExtractionCalls  *prometheus.CounterVec
	RetrievalLatency prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalbot_runs_total",
				Help: "Total pipeline runs by resulting status",
			},
			[]string{"status"},
		),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "journalbot_run_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: prometheus.DefBuckets,
		}),
		StageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalbot_stage_failures_total",
				Help: "Pipeline failures by stage",
			},
			[]string{"stage"},
		),
		RuleReloads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalbot_rule_reloads_total",
				Help: "Rule store reload attempts by outcome",
			},
			[]string{"outcome"},
		),
		RulesLoaded: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "journalbot_rules_loaded",
			Help: "Number of rules in the active snapshot",
		}),
		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalbot_result_cache_lookups_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		ExtractionCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journalbot_extraction_calls_total",
				Help: "Field extraction calls by outcome",
			},
			[]string{"outcome"},
		),
		RetrievalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "journalbot_retrieval_duration_seconds",
			Help:    "Similar-case retrieval duration",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

// ObserveRun records a completed pipeline run.
func (m *Metrics) ObserveRun(status domain.Status, duration time.Duration) {
	m.RunsTotal.WithLabelValues(string(status)).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// StageFailure records a pipeline failure attributed to a stage.
func (m *Metrics) StageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

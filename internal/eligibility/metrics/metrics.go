package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"visamatch/internal/eligibility"
)

// Metrics provides observability for the eligibility engine. All methods are
// safe on a nil receiver.
type Metrics struct {
	// Rule outcomes by rule id and kind
	RuleOutcomes *prometheus.CounterVec

	// Evaluation results by status
	Evaluations *prometheus.CounterVec

	EvaluateLatency prometheus.Histogram

	// Verdict cache lookups by result: "hit", "miss", "error"
	CacheLookups *prometheus.CounterVec

	// Batch sizes by direction: "jobs", "visas"
	BatchSize *prometheus.HistogramVec

	CatalogReloads prometheus.Counter
}

// New registers the eligibility metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RuleOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visamatch_rule_outcomes_total",
			Help: "Rule outcomes by rule id and kind",
		}, []string{"rule_id", "kind"}),

		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visamatch_evaluations_total",
			Help: "Completed evaluations by resulting status",
		}, []string{"status"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "visamatch_evaluate_duration_seconds",
			Help:    "Duration of a single (visa, job) evaluation",
			Buckets: []float64{0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "visamatch_verdict_cache_lookups_total",
			Help: "Verdict cache lookups by result",
		}, []string{"result"}),

		BatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "visamatch_batch_size",
			Help:    "Number of pairs evaluated per batch by direction",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"direction"}),

		CatalogReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "visamatch_catalog_reloads_total",
			Help: "Catalog reloads that published a new rule-set version",
		}),
	}
}

// RuleOutcome records one rule's verdict.
func (m *Metrics) RuleOutcome(ruleID string, kind eligibility.OutcomeKind) {
	if m != nil {
		m.RuleOutcomes.WithLabelValues(ruleID, string(kind)).Inc()
	}
}

// Evaluated records a completed evaluation.
func (m *Metrics) Evaluated(status eligibility.Status, d time.Duration) {
	if m != nil {
		m.Evaluations.WithLabelValues(string(status)).Inc()
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// CacheHit records a verdict served from cache.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records a verdict computed because it was not cached.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// CacheError records a cache store failure.
func (m *Metrics) CacheError() {
	if m != nil {
		m.CacheLookups.WithLabelValues("error").Inc()
	}
}

// ObserveBatch records the size of a batch.
func (m *Metrics) ObserveBatch(direction string, size int) {
	if m != nil {
		m.BatchSize.WithLabelValues(direction).Observe(float64(size))
	}
}

// IncrementCatalogReloads counts a published catalog reload.
func (m *Metrics) IncrementCatalogReloads() {
	if m != nil {
		m.CatalogReloads.Inc()
	}
}

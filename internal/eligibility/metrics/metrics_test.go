package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"visamatch/internal/eligibility"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RuleOutcome("universal.allowed-visa-codes", eligibility.OutcomeBlock)
	m.RuleOutcome("universal.allowed-visa-codes", eligibility.OutcomeBlock)
	m.Evaluated(eligibility.StatusBlocked, time.Microsecond)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.CacheError()
	m.ObserveBatch("jobs", 12)
	m.IncrementCatalogReloads()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleOutcomes.WithLabelValues("universal.allowed-visa-codes", "BLOCK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogReloads))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RuleOutcome("x", eligibility.OutcomePass)
		m.Evaluated(eligibility.StatusEligible, time.Millisecond)
		m.CacheHit()
		m.CacheMiss()
		m.CacheError()
		m.ObserveBatch("visas", 3)
		m.IncrementCatalogReloads()
	})
}

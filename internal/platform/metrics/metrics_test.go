package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("GET", "/eligibility/jobs", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "/eligibility/jobs", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "/eligibility/jobs/{jobID}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/eligibility/jobs", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/eligibility/jobs/{jobID}", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

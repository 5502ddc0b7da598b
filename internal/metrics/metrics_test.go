package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveGeneration("completed", 200*time.Millisecond)
	m.ObserveGeneration("completed", time.Second)
	m.ObserveGeneration("error", time.Second)
	m.ObserveScan(3, 1)
	m.ObserveStale(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Generations.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ScanDue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StaleRecovered))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeneration("completed", time.Second)
		m.ObserveScan(1, 0)
		m.ObserveStale(1)
	})
}

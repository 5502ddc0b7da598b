// Package metrics exposes Prometheus collectors for report generation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Generations        *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	ScanDue            prometheus.Gauge
	ScanFailures       prometheus.Counter
	StaleRecovered     prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reports",
			Name:      "generations_total",
			Help:      "Report generation attempts by outcome.",
		}, []string{"outcome"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reports",
			Name:      "generation_duration_seconds",
			Help:      "Time spent producing report artifacts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ScanDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reports",
			Name:      "scan_due_reports",
			Help:      "Due reports found by the last scan pass.",
		}),
		ScanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reports",
			Name:      "scan_failures_total",
			Help:      "Due reports whose generation failed during a scan.",
		}),
		StaleRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reports",
			Name:      "stale_recovered_total",
			Help:      "Reports moved from GENERATING to ERROR after exceeding the stale threshold.",
		}),
	}
	reg.MustRegister(m.Generations, m.GenerationDuration, m.ScanDue, m.ScanFailures, m.StaleRecovered)
	return m
}

// ObserveGeneration is safe on a nil receiver.
func (m *Metrics) ObserveGeneration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveScan(due, failed int) {
	if m == nil {
		return
	}
	m.ScanDue.Set(float64(due))
	m.ScanFailures.Add(float64(failed))
}

func (m *Metrics) ObserveStale(n int) {
	if m == nil {
		return
	}
	m.StaleRecovered.Add(float64(n))
}

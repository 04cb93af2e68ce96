package gosquit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons reported on gosquit_failures_total.
const (
	reasonNoPath      = "no_path"
	reasonPosMismatch = "pos_mismatch"
)

type metrics struct {
	generated  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		generated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosquit_records_generated_total",
				Help: "Total number of distinct records generated",
			},
			[]string{"shape"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosquit_failures_total",
				Help: "Total number of generation attempts that produced no record",
			},
			[]string{"shape", "reason"},
		),
		duplicates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosquit_duplicates_total",
				Help: "Total number of generated records dropped as duplicates",
			},
			[]string{"shape"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gosquit_generate_duration_seconds",
				Help:    "Duration of a single generation attempt in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
			},
			[]string{"shape"},
		),
	}
	reg.MustRegister(m.generated, m.failures, m.duplicates, m.duration)
	return m
}

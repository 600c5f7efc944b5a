// Package telemetry exposes Prometheus counters/histograms over the
// checker's own run, following the ambient metrics convention used
// across this module's sibling tools: a small registered-once set of
// collectors, passed down as a struct rather than touched through
// package-level globals.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the checker updates during a run.
type Metrics struct {
	AnomaliesFound      *prometheus.CounterVec
	CycleSearchTimeouts prometheus.Counter
	SCCSize             prometheus.Histogram
	AnalysisDuration    prometheus.Histogram
}

// New registers and returns a fresh Metrics set against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// concurrent analyses) or prometheus.DefaultRegisterer to expose via the
// process-wide /metrics endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnomaliesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elle_anomalies_found_total",
			Help: "Count of anomalies found, by type.",
		}, []string{"type"}),
		CycleSearchTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elle_cycle_search_timeouts_total",
			Help: "Count of per-SCC cycle searches that hit the search timeout.",
		}),
		SCCSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elle_scc_size",
			Help:    "Size (node count) of each non-trivial strongly connected component found.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elle_analysis_duration_seconds",
			Help:    "Wall-clock duration of a full Analyze call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.AnomaliesFound, m.CycleSearchTimeouts, m.SCCSize, m.AnalysisDuration)
	return m
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Source and query Prometheus metrics.
var (
	SourceLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_load_duration_seconds",
			Help:      "Time to open and fully read the record source",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SourceRecordsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_records_loaded",
			Help:      "Number of records read by the last successful load",
		},
	)

	SourceErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Total failed source loads",
		},
	)

	SourceCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Source cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	QueryMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_matches",
			Help:      "Number of records returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

var sourceMetricsRegistered bool

// RegisterSourceMetrics registers source and query metrics. Must be called once from main.
func RegisterSourceMetrics() {
	if sourceMetricsRegistered {
		return
	}
	prometheus.MustRegister(SourceLoadDuration)
	prometheus.MustRegister(SourceRecordsLoaded)
	prometheus.MustRegister(SourceErrorsTotal)
	prometheus.MustRegister(SourceCacheTotal)
	prometheus.MustRegister(QueryMatches)
	sourceMetricsRegistered = true
}

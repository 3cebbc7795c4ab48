// Package metrics defines collector-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector counter vectors
var (
	QuotesCollectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arb_scanner",
		Name:      "quotes_collected_total",
		Help:      "Total number of quotes collected by platform",
	}, []string{"platform"})

	CollectorFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arb_scanner",
		Name:      "collector_failures_total",
		Help:      "Total number of whole-platform collection failures by error code",
	}, []string{"platform", "code"})

	MarketFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arb_scanner",
		Name:      "market_failures_total",
		Help:      "Total number of failed per-market requests by error code",
	}, []string{"platform", "code"})
)

// Collector histogram vectors
var (
	CollectorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arb_scanner",
		Name:      "collector_duration_seconds",
		Help:      "Duration of one collection pass by platform",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})
)

// RecordCollection records the outcome of one collection pass.
func RecordCollection(platform string, quotes int, durationSeconds float64) {
	QuotesCollectedTotal.WithLabelValues(platform).Add(float64(quotes))
	CollectorDuration.WithLabelValues(platform).Observe(durationSeconds)
}

// RecordCollectorFailure records a platform that produced no quotes.
func RecordCollectorFailure(platform, code string) {
	CollectorFailuresTotal.WithLabelValues(platform, code).Inc()
}

// RecordMarketFailure records a failed per-market request.
func RecordMarketFailure(platform, code string) {
	MarketFailuresTotal.WithLabelValues(platform, code).Inc()
}

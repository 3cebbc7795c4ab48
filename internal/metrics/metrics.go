// Package metrics provides centralized Prometheus metrics registry for the scanner.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Scan status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Counter metrics
var (
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arb_scanner",
		Name:      "scans_total",
		Help:      "Total number of scan cycles by status",
	}, []string{"status"})
	OpportunitiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arb_scanner",
		Name:      "opportunities_total",
		Help:      "Total number of arbitrage opportunities detected",
	})
)

// Gauge metrics
var (
	OpportunitiesLastScan = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arb_scanner",
		Name:      "opportunities_last_scan",
		Help:      "Number of opportunities found by the most recent scan",
	})
	BestNetSpreadPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arb_scanner",
		Name:      "best_net_spread_pct",
		Help:      "Best net spread percentage in the most recent scan, 0 when none",
	})
)

// Histogram metrics
var (
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arb_scanner",
		Name:      "scan_duration_seconds",
		Help:      "Duration of scan cycles in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register scan metrics
		registry.MustRegister(ScansTotal)
		registry.MustRegister(OpportunitiesTotal)
		registry.MustRegister(OpportunitiesLastScan)
		registry.MustRegister(BestNetSpreadPct)
		registry.MustRegister(ScanDuration)

		// Register collector metrics
		registry.MustRegister(QuotesCollectedTotal)
		registry.MustRegister(CollectorFailuresTotal)
		registry.MustRegister(MarketFailuresTotal)
		registry.MustRegister(CollectorDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordScan records a completed or failed scan cycle.
func RecordScan(success bool, durationSeconds float64) {
	status := StatusSuccess
	if !success {
		status = StatusFailure
	}
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(durationSeconds)
}

// RecordOpportunities records the opportunities of one scan.
func RecordOpportunities(count int, bestNetSpreadPct float64) {
	OpportunitiesTotal.Add(float64(count))
	OpportunitiesLastScan.Set(float64(count))
	BestNetSpreadPct.Set(bestNetSpreadPct)
}

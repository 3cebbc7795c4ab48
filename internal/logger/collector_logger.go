// Package logger provides collector logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// CollectorLogger provides dedicated logging for platform collectors.
type CollectorLogger struct {
	*logrus.Entry
}

// NewCollectorLogger creates a new collector logger scoped to one platform.
func NewCollectorLogger(baseLogger *logrus.Logger, platform string) *CollectorLogger {
	return &CollectorLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "collector",
			"platform":  platform,
		}),
	}
}

// LogCollected logs the number of quotes a platform produced in one cycle.
func (cl *CollectorLogger) LogCollected(quotes, failures int, duration time.Duration) {
	cl.WithFields(logrus.Fields{
		"quotes":      quotes,
		"failures":    failures,
		"duration_ms": duration.Milliseconds(),
	}).Infof("%s: %d prices", cl.Data["platform"], quotes)
}

// LogMarketFailure logs a failed per-market detail request.
func (cl *CollectorLogger) LogMarketFailure(marketID string, err error) {
	cl.WithField("market_id", marketID).WithError(err).Warn("Market fetch failed")
}

// LogCollectorFailure logs a collector that produced no quotes this cycle.
func (cl *CollectorLogger) LogCollectorFailure(err error) {
	cl.WithError(err).Warn("Collector failed")
}

// LogCircuitBreakerEvent logs circuit breaker transitions.
func (cl *CollectorLogger) LogCircuitBreakerEvent(state string, consecutiveFailures int, cooldown time.Duration) {
	cl.WithFields(logrus.Fields{
		"state":                state,
		"consecutive_failures": consecutiveFailures,
		"cooldown":             cooldown.String(),
	}).Warn("Circuit breaker state changed")
}

// Package logger provides scan-cycle logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ScanLogger provides dedicated logging for scan cycles.
type ScanLogger struct {
	*logrus.Entry
}

// NewScanLogger creates a new scan logger.
func NewScanLogger(baseLogger *logrus.Logger) *ScanLogger {
	return &ScanLogger{
		Entry: baseLogger.WithField("component", "scanner"),
	}
}

// LogScanStarted logs the start of a scan cycle.
func (sl *ScanLogger) LogScanStarted(scanID string, scanNumber int) {
	sl.WithFields(logrus.Fields{
		"scan_id":     scanID,
		"scan_number": scanNumber,
	}).Debug("Scan started")
}

// LogScanCompleted logs a finished scan cycle.
func (sl *ScanLogger) LogScanCompleted(scanID string, scanNumber, quotes, opportunities int, duration time.Duration) {
	sl.WithFields(logrus.Fields{
		"scan_id":       scanID,
		"scan_number":   scanNumber,
		"quotes":        quotes,
		"opportunities": opportunities,
		"duration_ms":   duration.Milliseconds(),
	}).Info("Scan completed")
}

// LogScanFailed logs a failed scan cycle and the backoff before the next one.
func (sl *ScanLogger) LogScanFailed(scanID string, scanNumber int, err error, backoff time.Duration) {
	sl.WithFields(logrus.Fields{
		"scan_id":     scanID,
		"scan_number": scanNumber,
		"backoff":     backoff.String(),
	}).WithError(err).Error("Scan failed")
}

// LogOpportunity logs a detected arbitrage opportunity.
func (sl *ScanLogger) LogOpportunity(scanID, key, buyPlatform string, buyPrice float64, sellPlatform string, sellPrice, netSpreadPct float64) {
	sl.WithFields(logrus.Fields{
		"scan_id":        scanID,
		"key":            key,
		"buy_platform":   buyPlatform,
		"buy_price":      buyPrice,
		"sell_platform":  sellPlatform,
		"sell_price":     sellPrice,
		"net_spread_pct": netSpreadPct,
	}).Info("Opportunity detected")
}

// LogStatsSummary logs cumulative scanner statistics.
func (sl *ScanLogger) LogStatsSummary(cycles, failures, opportunities int, bestNetSpreadPct float64, uptime time.Duration) {
	sl.WithFields(logrus.Fields{
		"cycles":              cycles,
		"failed_cycles":       failures,
		"opportunities":       opportunities,
		"best_net_spread_pct": bestNetSpreadPct,
		"uptime":              uptime.Round(time.Second).String(),
	}).Info("Scanner statistics")
}

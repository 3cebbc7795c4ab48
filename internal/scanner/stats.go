package scanner

import "time"

// Stats holds cumulative scanner statistics
type Stats struct {
	Cycles           int       `json:"cycles"`
	FailedCycles     int       `json:"failed_cycles"`
	Opportunities    int       `json:"opportunities"`
	BestNetSpreadPct float64   `json:"best_net_spread_pct"`
	StartedAt        time.Time `json:"started_at"`
	LastScanAt       time.Time `json:"last_scan_at"`
}

// Uptime returns how long the scanner has existed at now
func (s Stats) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

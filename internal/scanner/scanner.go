// Package scanner runs the polling loop: collect quotes from every platform,
// find opportunities, report, then wait for the next cycle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/arb-scanner/internal/arbitrage"
	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/datasource"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/metrics"
	"github.com/yourusername/arb-scanner/internal/models"
)

// ErrNoQuotes is returned by a cycle in which every collector failed
var ErrNoQuotes = errors.New("no quotes collected from any platform")

// State is the loop state
type State string

// Loop states
const (
	StateIdle     State = "IDLE"
	StateScanning State = "SCANNING"
)

// Options controls thresholds and pacing of the loop
type Options struct {
	MinSpreadPct float64
	FeePct       float64
	PollInterval time.Duration
	ErrorBackoff time.Duration
	SortBySpread bool
	MaxCycles    int // 0 runs until cancelled
}

// OptionsFromConfig builds loop options from the scan configuration
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		MinSpreadPct: cfg.MinSpreadPct,
		FeePct:       cfg.FeePct,
		PollInterval: cfg.PollInterval(),
		ErrorBackoff: cfg.ErrorBackoff(),
		SortBySpread: cfg.SortBySpread,
		MaxCycles:    cfg.MaxCycles,
	}
}

// Cycle describes one scan cycle
type Cycle struct {
	ScanID        string
	Number        int
	StartedAt     time.Time
	Duration      time.Duration
	Results       []datasource.Result
	Quotes        []models.Quote
	Opportunities []models.Opportunity
}

// CycleHook is called after every cycle, successful or not
type CycleHook func(cycle Cycle, err error)

// Scanner owns the collectors and drives scan cycles
type Scanner struct {
	collectors []datasource.Collector
	opts       Options
	reporter   *Reporter
	log        *logger.ScanLogger
	hooks      []CycleHook
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) bool

	mu    sync.RWMutex
	state State
	stats Stats
}

// New creates a scanner over the given collectors, evaluated in order
func New(collectors []datasource.Collector, opts Options, reporter *Reporter, log *logger.ScanLogger) *Scanner {
	return &Scanner{
		collectors: collectors,
		opts:       opts,
		reporter:   reporter,
		log:        log,
		now:        time.Now,
		wait:       sleepContext,
		state:      StateIdle,
		stats:      Stats{StartedAt: time.Now()},
	}
}

// OnCycle registers a hook run after every cycle
func (s *Scanner) OnCycle(hook CycleHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Run scans until ctx is cancelled or MaxCycles cycles have run. A failed
// cycle is followed by the error backoff instead of the poll interval.
// Cancellation is a clean stop and returns nil.
func (s *Scanner) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		cycle, err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		pause := s.opts.PollInterval
		if err != nil {
			pause = s.errorBackoff()
			s.log.LogScanFailed(cycle.ScanID, cycle.Number, err, pause)
		}

		if s.opts.MaxCycles > 0 && cycle.Number >= s.opts.MaxCycles {
			return nil
		}

		if !s.wait(ctx, pause) {
			return nil
		}
	}
}

// RunOnce performs a single scan cycle. Panics inside the cycle are recovered
// and returned as errors. A cancelled cycle writes no report.
func (s *Scanner) RunOnce(ctx context.Context) (cycle Cycle, err error) {
	cycle = Cycle{
		ScanID:    uuid.NewString(),
		Number:    s.begin(),
		StartedAt: s.now(),
	}
	start := time.Now()
	s.log.LogScanStarted(cycle.ScanID, cycle.Number)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan cycle panicked: %v", r)
		}
		cycle.Duration = time.Since(start)
		s.end(ctx, cycle, err)
	}()

	cycle.Results = s.collect(ctx)
	if err := ctx.Err(); err != nil {
		return cycle, err
	}

	failed := 0
	for _, res := range cycle.Results {
		if res.Failed() {
			failed++
			continue
		}
		cycle.Quotes = append(cycle.Quotes, res.Quotes...)
	}
	if len(s.collectors) > 0 && failed == len(s.collectors) {
		return cycle, ErrNoQuotes
	}

	cycle.Opportunities = arbitrage.FindOpportunities(cycle.Quotes, s.opts.MinSpreadPct, s.opts.FeePct)
	if s.opts.SortBySpread {
		arbitrage.SortByNetSpread(cycle.Opportunities)
	}

	if err := s.reporter.Report(cycle); err != nil {
		return cycle, fmt.Errorf("failed to write report: %w", err)
	}

	for _, opp := range cycle.Opportunities {
		s.log.LogOpportunity(cycle.ScanID, opp.Key, opp.BuyPlatform, opp.BuyPrice, opp.SellPlatform, opp.SellPrice, opp.NetSpreadPct)
	}
	s.log.LogScanCompleted(cycle.ScanID, cycle.Number, len(cycle.Quotes), len(cycle.Opportunities), time.Since(start))

	return cycle, nil
}

// State returns the current loop state
func (s *Scanner) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a snapshot of cumulative statistics
func (s *Scanner) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// collect runs every collector concurrently. Results keep collector order.
func (s *Scanner) collect(ctx context.Context) []datasource.Result {
	results := make([]datasource.Result, len(s.collectors))

	var g errgroup.Group
	for i, c := range s.collectors {
		g.Go(func() error {
			results[i] = collectSafely(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		metrics.RecordCollection(res.Source, len(res.Quotes), res.Duration.Seconds())
		if res.Failed() {
			metrics.RecordCollectorFailure(res.Source, datasource.ErrorCode(res.Err))
		}
		for _, f := range res.Failures {
			metrics.RecordMarketFailure(res.Source, datasource.ErrorCode(f.Err))
		}
	}

	return results
}

// collectSafely turns a collector panic into a failed result
func collectSafely(ctx context.Context, c datasource.Collector) (res datasource.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = datasource.Result{
				Source: c.Name(),
				Err:    fmt.Errorf("collector %s panicked: %v", c.Name(), r),
			}
		}
	}()

	res = c.Collect(ctx)
	if res.Source == "" {
		res.Source = c.Name()
	}
	return res
}

func (s *Scanner) begin() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateScanning
	s.stats.Cycles++
	return s.stats.Cycles
}

func (s *Scanner) end(ctx context.Context, cycle Cycle, err error) {
	s.mu.Lock()
	s.state = StateIdle
	s.stats.LastScanAt = cycle.StartedAt
	if err != nil && ctx.Err() == nil {
		s.stats.FailedCycles++
	}
	if err == nil {
		s.stats.Opportunities += len(cycle.Opportunities)
		for _, opp := range cycle.Opportunities {
			if opp.NetSpreadPct > s.stats.BestNetSpreadPct {
				s.stats.BestNetSpreadPct = opp.NetSpreadPct
			}
		}
	}
	hooks := append([]CycleHook(nil), s.hooks...)
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	metrics.RecordScan(err == nil, cycle.Duration.Seconds())
	if err == nil {
		metrics.RecordOpportunities(len(cycle.Opportunities), bestNetSpread(cycle.Opportunities))
	}

	for _, hook := range hooks {
		hook(cycle, err)
	}
}

func (s *Scanner) errorBackoff() time.Duration {
	if floor := 2 * s.opts.PollInterval; s.opts.ErrorBackoff < floor {
		return floor
	}
	return s.opts.ErrorBackoff
}

func bestNetSpread(opps []models.Opportunity) float64 {
	best := 0.0
	for i, opp := range opps {
		if i == 0 || opp.NetSpreadPct > best {
			best = opp.NetSpreadPct
		}
	}
	return best
}

// sleepContext waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

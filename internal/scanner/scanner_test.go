package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/datasource"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/models"
)

type fakeCollector struct {
	name    string
	calls   atomic.Int32
	collect func(ctx context.Context, call int) datasource.Result
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(ctx context.Context) datasource.Result {
	call := int(f.calls.Add(1))
	return f.collect(ctx, call)
}

func staticCollector(name string, quotes ...models.Quote) *fakeCollector {
	return &fakeCollector{
		name: name,
		collect: func(ctx context.Context, call int) datasource.Result {
			return datasource.Result{Source: name, Quotes: quotes}
		},
	}
}

func failingCollector(name string) *fakeCollector {
	return &fakeCollector{
		name: name,
		collect: func(ctx context.Context, call int) datasource.Result {
			return datasource.Result{Source: name, Err: datasource.NewDataSourceError(name, datasource.ErrCodeServerError, "down", datasource.ErrServerError)}
		},
	}
}

func quote(platform, event string, bid, ask float64) models.Quote {
	return models.Quote{
		Platform:  platform,
		EventID:   platform + "-" + event,
		EventName: event,
		Outcome:   models.OutcomeYes,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

func testScanLogger() *logger.ScanLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logger.NewScanLogger(log)
}

func testOptions() Options {
	return Options{
		MinSpreadPct: 2.5,
		FeePct:       1.0,
		PollInterval: 5 * time.Second,
		ErrorBackoff: 10 * time.Second,
	}
}

func newTestScanner(out io.Writer, opts Options, collectors ...datasource.Collector) *Scanner {
	return New(collectors, opts, NewReporter(out), testScanLogger())
}

func TestRunOnceFindsOpportunity(t *testing.T) {
	var out bytes.Buffer
	s := newTestScanner(&out, testOptions(),
		staticCollector("Kalshi", quote("Kalshi", "Fed cuts rates", 0.40, 0.42)),
		staticCollector("Polymarket", quote("Polymarket", "fed cuts rates", 0.50, 0.52)),
	)

	cycle, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cycle.Number)
	assert.NotEmpty(t, cycle.ScanID)
	assert.Len(t, cycle.Quotes, 2)
	require.Len(t, cycle.Opportunities, 1)

	opp := cycle.Opportunities[0]
	assert.Equal(t, "fed cuts rates|YES", opp.Key)
	assert.Equal(t, "Kalshi", opp.BuyPlatform)
	assert.Equal(t, "Polymarket", opp.SellPlatform)
	assert.InDelta(t, 22.39, opp.NetSpreadPct, 0.01)

	report := out.String()
	assert.Contains(t, report, "[Scan #1]")
	assert.Contains(t, report, "FOUND 1 opportunities")
	assert.Contains(t, report, "BUY  Kalshi       @ 0.4100")
	assert.Contains(t, report, "SELL Polymarket   @ 0.5100")
	assert.Contains(t, report, "SPREAD: 22.39%")

	stats := s.Stats()
	assert.Equal(t, 1, stats.Cycles)
	assert.Equal(t, 0, stats.FailedCycles)
	assert.Equal(t, 1, stats.Opportunities)
	assert.InDelta(t, 22.39, stats.BestNetSpreadPct, 0.01)
	assert.Equal(t, StateIdle, s.State())
}

func TestRunOnceNoOpportunities(t *testing.T) {
	var out bytes.Buffer
	s := newTestScanner(&out, testOptions(),
		staticCollector("Kalshi", quote("Kalshi", "Same price", 0.50, 0.52)),
		staticCollector("Polymarket", quote("Polymarket", "Same price", 0.50, 0.52)),
	)

	cycle, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cycle.Opportunities)
	assert.Contains(t, out.String(), "No opportunities found")
}

func TestRunOncePartialFailure(t *testing.T) {
	var out bytes.Buffer
	s := newTestScanner(&out, testOptions(),
		failingCollector("Kalshi"),
		staticCollector("Polymarket", quote("Polymarket", "Solo", 0.50, 0.52)),
	)

	cycle, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, cycle.Results, 2)
	assert.True(t, cycle.Results[0].Failed())
	assert.Len(t, cycle.Quotes, 1)
	assert.Contains(t, out.String(), "No opportunities found")
}

func TestRunOnceAllCollectorsFail(t *testing.T) {
	var out bytes.Buffer
	s := newTestScanner(&out, testOptions(), failingCollector("Kalshi"), failingCollector("Polymarket"))

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, ErrNoQuotes)

	assert.Empty(t, out.String())
	assert.Equal(t, 1, s.Stats().FailedCycles)
}

func TestRunOnceRecoversCollectorPanic(t *testing.T) {
	var out bytes.Buffer
	panicking := &fakeCollector{
		name: "Broken",
		collect: func(ctx context.Context, call int) datasource.Result {
			panic("nil map")
		},
	}
	s := newTestScanner(&out, testOptions(), panicking, staticCollector("Polymarket", quote("Polymarket", "Solo", 0.5, 0.52)))

	cycle, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, cycle.Results, 2)
	assert.Equal(t, "Broken", cycle.Results[0].Source)
	assert.ErrorContains(t, cycle.Results[0].Err, "panicked")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunOnceReportFailure(t *testing.T) {
	s := newTestScanner(failingWriter{}, testOptions(), staticCollector("Kalshi", quote("Kalshi", "A", 0.4, 0.42)))

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write report")
}

func TestRunOnceSortBySpread(t *testing.T) {
	opts := testOptions()
	opts.SortBySpread = true

	var out bytes.Buffer
	s := newTestScanner(&out, opts,
		staticCollector("Kalshi", quote("Kalshi", "Small gap", 0.40, 0.42), quote("Kalshi", "Big gap", 0.40, 0.42)),
		staticCollector("Polymarket", quote("Polymarket", "Small gap", 0.44, 0.46), quote("Polymarket", "Big gap", 0.50, 0.52)),
	)

	cycle, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, cycle.Opportunities, 2)
	assert.Equal(t, "big gap|YES", cycle.Opportunities[0].Key)
	assert.Equal(t, "small gap|YES", cycle.Opportunities[1].Key)
}

func TestRunOnceStateDuringCollection(t *testing.T) {
	var s *Scanner
	var observed State
	watcher := &fakeCollector{
		name: "Watcher",
		collect: func(ctx context.Context, call int) datasource.Result {
			observed = s.State()
			return datasource.Result{Source: "Watcher"}
		},
	}
	s = newTestScanner(io.Discard, testOptions(), watcher)

	assert.Equal(t, StateIdle, s.State())
	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateScanning, observed)
	assert.Equal(t, StateIdle, s.State())
}

func TestRunBacksOffAfterFailure(t *testing.T) {
	opts := testOptions()
	opts.ErrorBackoff = 3 * time.Second
	opts.MaxCycles = 3

	flaky := &fakeCollector{
		name: "Kalshi",
		collect: func(ctx context.Context, call int) datasource.Result {
			if call == 2 {
				return datasource.Result{Source: "Kalshi", Err: errors.New("down")}
			}
			return datasource.Result{Source: "Kalshi", Quotes: []models.Quote{quote("Kalshi", "A", 0.4, 0.42)}}
		},
	}

	s := newTestScanner(io.Discard, opts, flaky)
	var waits []time.Duration
	s.wait = func(ctx context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, int32(3), flaky.calls.Load())
	// Backoff never drops below twice the poll interval
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, waits)

	stats := s.Stats()
	assert.Equal(t, 3, stats.Cycles)
	assert.Equal(t, 1, stats.FailedCycles)
}

func TestRunStopsOnCancel(t *testing.T) {
	opts := testOptions()
	opts.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestScanner(io.Discard, opts, staticCollector("Kalshi", quote("Kalshi", "A", 0.4, 0.42)))
	s.OnCycle(func(cycle Cycle, err error) { cancel() })

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
	assert.Equal(t, 1, s.Stats().Cycles)
}

func TestRunCancelledMidCycleWritesNoReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocking := &fakeCollector{
		name: "Slow",
		collect: func(ctx context.Context, call int) datasource.Result {
			cancel()
			<-ctx.Done()
			return datasource.Result{Source: "Slow", Err: ctx.Err()}
		},
	}

	var out bytes.Buffer
	s := newTestScanner(&out, testOptions(), blocking)

	var hookCalls int
	s.OnCycle(func(cycle Cycle, err error) { hookCalls++ })

	require.NoError(t, s.Run(ctx))
	assert.Empty(t, out.String())
	assert.Equal(t, 0, s.Stats().FailedCycles)
	assert.Equal(t, 0, hookCalls)
}

func TestOnCycleHook(t *testing.T) {
	s := newTestScanner(io.Discard, testOptions(), failingCollector("Kalshi"))

	var mu sync.Mutex
	var gotErr error
	var gotNumber int
	s.OnCycle(func(cycle Cycle, err error) {
		mu.Lock()
		defer mu.Unlock()
		gotErr = err
		gotNumber = cycle.Number
	})

	_, _ = s.RunOnce(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, gotErr, ErrNoQuotes)
	assert.Equal(t, 1, gotNumber)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.ScanConfig{
		MinSpreadPct:        3,
		FeePct:              0.5,
		PollIntervalSeconds: 5,
		ErrorBackoffSeconds: 4,
		SortBySpread:        true,
		MaxCycles:           2,
	})

	assert.Equal(t, 3.0, opts.MinSpreadPct)
	assert.Equal(t, 0.5, opts.FeePct)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 10*time.Second, opts.ErrorBackoff)
	assert.True(t, opts.SortBySpread)
	assert.Equal(t, 2, opts.MaxCycles)
}

func TestSleepContext(t *testing.T) {
	assert.True(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepContext(ctx, time.Hour))
}

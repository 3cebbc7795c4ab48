package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/models"
)

// FileCollector implements Collector over a JSON file of quotes that is
// re-read every cycle. It serves replayed feeds and platforms scraped by
// another process.
type FileCollector struct {
	name string
	path string
	log  *logger.CollectorLogger
	now  func() time.Time
}

// fileQuote is one record in the quotes file. Prices may be JSON numbers or
// strings.
type fileQuote struct {
	Platform  string          `json:"platform"`
	EventID   string          `json:"event_id"`
	EventName string          `json:"event_name"`
	Outcome   string          `json:"outcome"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp *time.Time      `json:"timestamp"`
}

// NewFileCollector creates a new file collector
func NewFileCollector(cfg config.CollectorConfig, log *logger.CollectorLogger) *FileCollector {
	return &FileCollector{
		name: cfg.Name,
		path: cfg.Path,
		log:  log,
		now:  time.Now,
	}
}

// Name returns the collector name, used as platform for records without one
func (c *FileCollector) Name() string {
	return c.name
}

// Collect reads and normalizes the quotes file
func (c *FileCollector) Collect(ctx context.Context) Result {
	start := time.Now()
	res := Result{Source: c.name}

	records, err := c.read(ctx)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		c.log.LogCollectorFailure(err)
		return res
	}

	res.Quotes = make([]models.Quote, 0, len(records))
	for i, rec := range records {
		q, err := c.normalize(rec)
		if err != nil {
			id := rec.EventID
			if id == "" {
				id = fmt.Sprintf("record[%d]", i)
			}
			res.Failures = append(res.Failures, MarketFailure{MarketID: id, Err: err})
			c.log.LogMarketFailure(id, err)
			continue
		}
		res.Quotes = append(res.Quotes, q)
	}

	res.Duration = time.Since(start)
	c.log.LogCollected(len(res.Quotes), len(res.Failures), res.Duration)
	return res
}

func (c *FileCollector) read(ctx context.Context) ([]fileQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDataSourceError(c.name, ErrCodeNotFound, c.path, errors.Join(ErrNotFound, err))
		}
		return nil, NewDataSourceError(c.name, ErrCodeUnknown, "failed to read quotes file", err)
	}

	var records []fileQuote
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, NewDataSourceError(c.name, ErrCodeInvalidData, "failed to parse quotes file", errors.Join(ErrInvalidData, err))
	}
	return records, nil
}

func (c *FileCollector) normalize(rec fileQuote) (models.Quote, error) {
	if strings.TrimSpace(rec.EventName) == "" {
		return models.Quote{}, models.ErrEmptyEvent
	}
	if err := checkProbability(rec.Bid); err != nil {
		return models.Quote{}, err
	}
	if err := checkProbability(rec.Ask); err != nil {
		return models.Quote{}, err
	}

	platform := rec.Platform
	if platform == "" {
		platform = c.name
	}
	outcome := strings.ToUpper(strings.TrimSpace(rec.Outcome))
	if outcome == "" {
		outcome = models.OutcomeYes
	}
	ts := c.now()
	if rec.Timestamp != nil {
		ts = *rec.Timestamp
	}

	return models.Quote{
		Platform:  platform,
		EventID:   rec.EventID,
		EventName: rec.EventName,
		Outcome:   outcome,
		Bid:       rec.Bid.InexactFloat64(),
		Ask:       rec.Ask.InexactFloat64(),
		Timestamp: ts,
	}, nil
}

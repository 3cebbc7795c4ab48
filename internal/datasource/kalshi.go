package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/models"
)

// KalshiCollector implements Collector for the Kalshi trade API
type KalshiCollector struct {
	name           string
	baseURL        string
	httpClient     *RateLimitedHTTPClient
	cache          *MarketCache
	marketLimit    int
	maxConcurrency int
	listTimeout    time.Duration
	detailTimeout  time.Duration
	log            *logger.CollectorLogger
	now            func() time.Time
}

type kalshiMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

type kalshiMarket struct {
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Levels are [price_cents, quantity] pairs; each side lists resting bids.
type kalshiOrderbookResponse struct {
	Orderbook struct {
		Yes [][]decimal.Decimal `json:"yes"`
		No  [][]decimal.Decimal `json:"no"`
	} `json:"orderbook"`
}

// NewKalshiCollector creates a new Kalshi collector
func NewKalshiCollector(cfg config.CollectorConfig, httpClient *RateLimitedHTTPClient, cache *MarketCache, log *logger.CollectorLogger) *KalshiCollector {
	return &KalshiCollector{
		name:           cfg.Name,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		cache:          cache,
		marketLimit:    cfg.MarketLimit,
		maxConcurrency: cfg.MaxConcurrency,
		listTimeout:    cfg.ListTimeout(),
		detailTimeout:  cfg.DetailTimeout(),
		log:            log,
		now:            time.Now,
	}
}

// Name returns the platform name
func (c *KalshiCollector) Name() string {
	return c.name
}

// Collect lists open markets and fetches the YES order book of each
func (c *KalshiCollector) Collect(ctx context.Context) Result {
	start := time.Now()
	res := Result{Source: c.name}

	markets, err := c.listMarkets(ctx)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		c.log.LogCollectorFailure(err)
		return res
	}

	res.Quotes, res.Failures = fetchQuotes(ctx, markets, c.maxConcurrency, c.detailTimeout, c.fetchQuote, c.log)
	if listingStale(ctx, markets, res.Quotes) {
		c.cache.Invalidate(c.name)
	}
	res.Duration = time.Since(start)
	c.log.LogCollected(len(res.Quotes), len(res.Failures), res.Duration)
	return res
}

func (c *KalshiCollector) listMarkets(ctx context.Context) ([]MarketRef, error) {
	if markets, ok := c.cache.Get(c.name); ok {
		return markets, nil
	}

	listCtx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("status", "open")
	query.Set("limit", strconv.Itoa(c.marketLimit))

	var resp kalshiMarketsResponse
	if err := getJSON(listCtx, c.httpClient, c.name, c.baseURL+"/markets?"+query.Encode(), &resp); err != nil {
		return nil, err
	}

	markets := make([]MarketRef, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		if m.Ticker == "" || strings.TrimSpace(m.Title) == "" {
			continue
		}
		markets = append(markets, MarketRef{ID: m.Ticker, Name: m.Title})
		if len(markets) == c.marketLimit {
			break
		}
	}

	c.cache.Set(c.name, markets)
	return markets, nil
}

func (c *KalshiCollector) fetchQuote(ctx context.Context, market MarketRef) (models.Quote, error) {
	var resp kalshiOrderbookResponse
	endpoint := fmt.Sprintf("%s/markets/%s/orderbook", c.baseURL, url.PathEscape(market.ID))
	if err := getJSON(ctx, c.httpClient, c.name, endpoint, &resp); err != nil {
		return models.Quote{}, err
	}

	bestYes, err := bestKalshiBid(resp.Orderbook.Yes)
	if err != nil {
		return models.Quote{}, NewDataSourceError(c.name, ErrCodeInvalidData, market.ID, err)
	}
	bestNo, err := bestKalshiBid(resp.Orderbook.No)
	if err != nil {
		return models.Quote{}, NewDataSourceError(c.name, ErrCodeInvalidData, market.ID, err)
	}

	// A NO bid at p cents is a YES offer at 100-p cents
	var bid, ask *decimal.Decimal
	if bestYes != nil {
		b := bestYes.Div(hundred)
		bid = &b
	}
	if bestNo != nil {
		a := hundred.Sub(*bestNo).Div(hundred)
		ask = &a
	}

	return models.Quote{
		Platform:  c.name,
		EventID:   market.ID,
		EventName: market.Name,
		Outcome:   models.OutcomeYes,
		Bid:       priceOrNeutral(bid),
		Ask:       priceOrNeutral(ask),
		Timestamp: c.now(),
	}, nil
}

// bestKalshiBid returns the highest price among levels in cents, or nil when
// the side is empty.
func bestKalshiBid(levels [][]decimal.Decimal) (*decimal.Decimal, error) {
	var best *decimal.Decimal
	for _, level := range levels {
		if len(level) == 0 {
			continue
		}
		price := level[0]
		if price.IsNegative() || price.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: %s cents", models.ErrInvalidPrice, price.String())
		}
		if best == nil || price.GreaterThan(*best) {
			p := price
			best = &p
		}
	}
	return best, nil
}

package datasource

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/models"
)

// PolymarketCollector implements Collector for the Polymarket CLOB API
type PolymarketCollector struct {
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

type polymarketMarketsResponse struct {
	Data       []polymarketMarket `json:"data"`
	NextCursor string             `json:"next_cursor"`
}

type polymarketMarket struct {
	ConditionID string            `json:"condition_id"`
	Question    string            `json:"question"`
	Active      bool              `json:"active"`
	Closed      bool              `json:"closed"`
	Tokens      []polymarketToken `json:"tokens"`
}

type polymarketToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
}

type polymarketBook struct {
	Market string                `json:"market"`
	Bids   []polymarketBookLevel `json:"bids"`
	Asks   []polymarketBookLevel `json:"asks"`
}

type polymarketBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// NewPolymarketCollector creates a new Polymarket collector
func NewPolymarketCollector(cfg config.CollectorConfig, httpClient *RateLimitedHTTPClient, cache *MarketCache, log *logger.CollectorLogger) *PolymarketCollector {
	return &PolymarketCollector{
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
func (c *PolymarketCollector) Name() string {
	return c.name
}

// Collect lists active markets and fetches the YES token book of each
func (c *PolymarketCollector) Collect(ctx context.Context) Result {
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

func (c *PolymarketCollector) listMarkets(ctx context.Context) ([]MarketRef, error) {
	if markets, ok := c.cache.Get(c.name); ok {
		return markets, nil
	}

	listCtx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	var resp polymarketMarketsResponse
	if err := getJSON(listCtx, c.httpClient, c.name, c.baseURL+"/markets", &resp); err != nil {
		return nil, err
	}

	markets := make([]MarketRef, 0, c.marketLimit)
	for _, m := range resp.Data {
		if !m.Active || m.Closed || strings.TrimSpace(m.Question) == "" {
			continue
		}
		tokenID := yesToken(m.Tokens)
		if tokenID == "" {
			continue
		}
		markets = append(markets, MarketRef{ID: m.ConditionID, Name: m.Question, TokenID: tokenID})
		if len(markets) == c.marketLimit {
			break
		}
	}

	c.cache.Set(c.name, markets)
	return markets, nil
}

func (c *PolymarketCollector) fetchQuote(ctx context.Context, market MarketRef) (models.Quote, error) {
	query := url.Values{}
	query.Set("token_id", market.TokenID)

	var book polymarketBook
	if err := getJSON(ctx, c.httpClient, c.name, c.baseURL+"/book?"+query.Encode(), &book); err != nil {
		return models.Quote{}, err
	}

	bid, err := bestPolymarketLevel(book.Bids, true)
	if err != nil {
		return models.Quote{}, NewDataSourceError(c.name, ErrCodeInvalidData, market.ID, err)
	}
	ask, err := bestPolymarketLevel(book.Asks, false)
	if err != nil {
		return models.Quote{}, NewDataSourceError(c.name, ErrCodeInvalidData, market.ID, err)
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

// yesToken picks the YES outcome token. Multi-outcome markets have none and
// are skipped.
func yesToken(tokens []polymarketToken) string {
	for _, t := range tokens {
		if strings.EqualFold(t.Outcome, models.OutcomeYes) {
			return t.TokenID
		}
	}
	return ""
}

// bestPolymarketLevel returns the highest bid or lowest ask, or nil when the
// side is empty.
func bestPolymarketLevel(levels []polymarketBookLevel, highest bool) (*decimal.Decimal, error) {
	var best *decimal.Decimal
	for _, level := range levels {
		price, err := decimal.NewFromString(level.Price)
		if err != nil {
			return nil, err
		}
		if err := checkProbability(price); err != nil {
			return nil, err
		}
		if best == nil || (highest && price.GreaterThan(*best)) || (!highest && price.LessThan(*best)) {
			p := price
			best = &p
		}
	}
	return best, nil
}

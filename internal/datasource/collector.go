package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/models"
)

const maxErrorBodyBytes = 512

var (
	hundred      = decimal.NewFromInt(100)
	neutralPrice = decimal.NewFromFloat(models.NeutralPrice)
)

// quoteFetcher fetches the quote of a single market
type quoteFetcher func(ctx context.Context, market MarketRef) (models.Quote, error)

// fetchQuotes runs fetch for every market, at most maxConcurrency at a time,
// each under its own timeout. Quotes keep the listing order. A failed market
// is recorded and skipped without affecting the others.
func fetchQuotes(ctx context.Context, markets []MarketRef, maxConcurrency int, timeout time.Duration, fetch quoteFetcher, log *logger.CollectorLogger) ([]models.Quote, []MarketFailure) {
	quotes := make([]*models.Quote, len(markets))
	errs := make([]error, len(markets))

	var g errgroup.Group
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	for i, market := range markets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}

			detailCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			q, err := fetch(detailCtx, market)
			if err != nil {
				errs[i] = err
				return nil
			}
			quotes[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	result := make([]models.Quote, 0, len(markets))
	var failures []MarketFailure
	for i := range markets {
		if errs[i] != nil {
			failures = append(failures, MarketFailure{MarketID: markets[i].ID, Err: errs[i]})
			if ctx.Err() == nil {
				log.LogMarketFailure(markets[i].ID, errs[i])
			}
			continue
		}
		result = append(result, *quotes[i])
	}

	return result, failures
}

// getJSON issues a GET and decodes a JSON body into out, mapping HTTP and
// transport failures to DataSourceError codes.
func getJSON(ctx context.Context, client *RateLimitedHTTPClient, source, url string, out interface{}) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, ErrCircuitOpen):
			return NewDataSourceError(source, ErrCodeCircuitOpen, "request skipped", err)
		case errors.Is(err, context.DeadlineExceeded):
			return NewDataSourceError(source, ErrCodeTimeout, "request timed out", err)
		default:
			return NewDataSourceError(source, ErrCodeNetworkError, "request failed", err)
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(source, ErrCodeAuthenticationFailed, fmt.Sprintf("status %d", resp.StatusCode), ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(source, ErrCodeNotFound, url, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(source, ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode >= http.StatusInternalServerError:
		return NewDataSourceError(source, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, readSnippet(resp.Body)), ErrServerError)
	default:
		return NewDataSourceError(source, ErrCodeUnknown, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, readSnippet(resp.Body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(source, ErrCodeInvalidData, "failed to parse response", errors.Join(ErrInvalidData, err))
	}
	return nil
}

func readSnippet(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(body)
}

// priceOrNeutral converts a best-level price to float, falling back to the
// neutral price when the side is empty.
func priceOrNeutral(p *decimal.Decimal) float64 {
	if p == nil {
		return neutralPrice.InexactFloat64()
	}
	return p.InexactFloat64()
}

// checkProbability rejects prices outside [0, 1]
func checkProbability(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", models.ErrInvalidPrice, p.String())
	}
	return nil
}

// listingStale reports whether a listing produced no quotes at all, which
// usually means the cached markets have closed.
func listingStale(ctx context.Context, markets []MarketRef, quotes []models.Quote) bool {
	return ctx.Err() == nil && len(markets) > 0 && len(quotes) == 0
}

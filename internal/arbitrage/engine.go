// Package arbitrage detects cross-platform price gaps between normalized quotes.
package arbitrage

import (
	"sort"

	"github.com/yourusername/arb-scanner/internal/models"
)

// group collects the quotes sharing one join key. Platforms keep the order in
// which they were first seen; the quote stored for a platform is the last one.
type group struct {
	platforms []string
	quotes    map[string]models.Quote
}

// FindOpportunities compares every platform pair quoting the same event and
// outcome and returns the pairs whose fee-adjusted spread reaches minSpreadPct.
//
// feePct is charged once per leg. Results are in discovery order: groups in
// first-seen order, then platform pairs in first-seen order. Invalid quotes
// are dropped, and a pair whose buy price is not positive is skipped.
func FindOpportunities(quotes []models.Quote, minSpreadPct, feePct float64) []models.Opportunity {
	var keys []string
	groups := make(map[string]*group)

	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		key := q.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{quotes: make(map[string]models.Quote)}
			groups[key] = g
			keys = append(keys, key)
		}
		if _, seen := g.quotes[q.Platform]; !seen {
			g.platforms = append(g.platforms, q.Platform)
		}
		// Duplicate platform quotes: last one wins.
		g.quotes[q.Platform] = q
	}

	var opportunities []models.Opportunity
	for _, key := range keys {
		g := groups[key]
		if len(g.platforms) < 2 {
			continue
		}
		for i := 0; i < len(g.platforms); i++ {
			for j := i + 1; j < len(g.platforms); j++ {
				opp, ok := evaluatePair(key, g.quotes[g.platforms[i]], g.quotes[g.platforms[j]], feePct)
				if ok && opp.NetSpreadPct >= minSpreadPct {
					opportunities = append(opportunities, opp)
				}
			}
		}
	}

	return opportunities
}

// evaluatePair orders the two quotes by mid price and computes the spreads.
func evaluatePair(key string, a, b models.Quote, feePct float64) (models.Opportunity, bool) {
	buy, sell := a, b
	if buy.Mid() > sell.Mid() {
		buy, sell = sell, buy
	}

	buyPrice, sellPrice := buy.Mid(), sell.Mid()
	if buyPrice <= 0 {
		return models.Opportunity{}, false
	}

	raw := (sellPrice - buyPrice) / buyPrice * 100
	return models.Opportunity{
		Key:          key,
		BuyPlatform:  buy.Platform,
		BuyPrice:     buyPrice,
		SellPlatform: sell.Platform,
		SellPrice:    sellPrice,
		RawSpreadPct: raw,
		NetSpreadPct: NetSpread(raw, feePct),
	}, true
}

// NetSpread subtracts the round-trip fee (one fee per leg) from a raw spread.
func NetSpread(rawSpreadPct, feePct float64) float64 {
	return rawSpreadPct - 2*feePct
}

// SortByNetSpread orders opportunities by net spread, widest first. Ties keep
// their discovery order.
func SortByNetSpread(opportunities []models.Opportunity) {
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].NetSpreadPct > opportunities[j].NetSpreadPct
	})
}

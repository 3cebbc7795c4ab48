package models

// Opportunity is a cross-platform price gap on one event/outcome key
type Opportunity struct {
	Key          string  `json:"key"`
	BuyPlatform  string  `json:"buy_platform"`
	BuyPrice     float64 `json:"buy_price"`
	SellPlatform string  `json:"sell_platform"`
	SellPrice    float64 `json:"sell_price"`
	RawSpreadPct float64 `json:"raw_spread_pct"`
	NetSpreadPct float64 `json:"net_spread_pct"`
}

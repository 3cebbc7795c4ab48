package models

import (
	"math"
	"strings"
	"time"
)

// NeutralPrice is the mid-price assumed when a side of the book is unknown.
const NeutralPrice = 0.5

// Outcome vocabulary shared by all collectors.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Quote is a normalized best bid/ask snapshot for one outcome on one platform
type Quote struct {
	Platform  string    `json:"platform"`
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	Outcome   string    `json:"outcome"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// Mid returns the mid price, or NeutralPrice when either side is missing
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return NeutralPrice
}

// Key returns the cross-platform join key: lower-cased event name and outcome.
func (q Quote) Key() string {
	return strings.ToLower(q.EventName) + "|" + q.Outcome
}

// Valid reports whether the quote's prices can take part in spread math.
// Bid <= Ask is not checked.
func (q Quote) Valid() bool {
	if !validPrice(q.Bid) || !validPrice(q.Ask) {
		return false
	}
	mid := q.Mid()
	return validPrice(mid) && mid > 0
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}

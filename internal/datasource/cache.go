package datasource

import (
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// MarketRef identifies a market whose order book a collector will fetch
type MarketRef struct {
	ID      string // platform market id (Kalshi ticker, Polymarket condition id)
	Name    string // event name used as the join key
	TokenID string // order book id when it differs from ID
}

// MarketCache keeps market listings between cycles so that only order books
// are fetched on every poll. A zero TTL disables caching.
type MarketCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewMarketCache creates a new market listing cache
func NewMarketCache(ttl time.Duration) *MarketCache {
	mc := &MarketCache{ttl: ttl}
	if ttl > 0 {
		mc.cache = cache.New(ttl, ttl*2)
	}
	return mc
}

// Get returns the cached listing for a source
func (mc *MarketCache) Get(source string) ([]MarketRef, bool) {
	if mc == nil || mc.cache == nil {
		return nil, false
	}

	if v, found := mc.cache.Get(source); found {
		if markets, ok := v.([]MarketRef); ok {
			mc.hitCount.Add(1)
			return markets, true
		}
	}

	mc.missCount.Add(1)
	return nil, false
}

// Set stores a listing for a source
func (mc *MarketCache) Set(source string, markets []MarketRef) {
	if mc == nil || mc.cache == nil {
		return
	}
	mc.cache.Set(source, markets, mc.ttl)
}

// Invalidate drops the cached listing for a source
func (mc *MarketCache) Invalidate(source string) {
	if mc == nil || mc.cache == nil {
		return
	}
	mc.cache.Delete(source)
}

// Stats returns cache hit and miss counts
func (mc *MarketCache) Stats() (hits, misses uint64) {
	if mc == nil {
		return 0, 0
	}
	return mc.hitCount.Load(), mc.missCount.Load()
}

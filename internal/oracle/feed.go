/*

Price feed for the yield-bearing reference asset. Valuation never blocks on an
external fetch: prices are pushed into the feed by a PriceUpdater and read back
as pre-computed inputs.

*/

package oracle

import (
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Quote is one observed price point.
type Quote struct {
	Price     sdkmath.LegacyDec `json:"price"`
	Timestamp time.Time         `json:"timestamp"`
}

// PriceFeed serves the latest known price for an asset denom.
type PriceFeed interface {
	// CurrentPrice returns the latest quote for the denom. ok is false when no
	// price has ever been observed.
	CurrentPrice(denom string) (Quote, bool)
}

// ManualFeed is a PriceFeed fed by explicit pushes (API, operator tooling).
type ManualFeed struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewManualFeed creates an empty manual feed.
func NewManualFeed() *ManualFeed {
	return &ManualFeed{quotes: make(map[string]Quote)}
}

// Push records a new observed price for the denom.
func (f *ManualFeed) Push(denom string, price sdkmath.LegacyDec, observedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[denom] = Quote{Price: price, Timestamp: observedAt}
}

// CurrentPrice implements PriceFeed.
func (f *ManualFeed) CurrentPrice(denom string) (Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	q, ok := f.quotes[denom]
	return q, ok
}

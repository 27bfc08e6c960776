// Package domain defines the core types and interfaces shared across the
// spreadbot packages: market data snapshots, positions, the execution gateway
// contract, and the persistence/cache interfaces.
package domain

import "time"

// PriceLevel is a single price+quantity entry in an order book ladder.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// OrderBookSnapshot is an immutable view of one polling cycle's order book,
// optionally carrying recent candle closes for the moving-average policies.
// It is created fresh each cycle and discarded afterwards.
type OrderBookSnapshot struct {
	Symbol    string
	Bids      []PriceLevel // descending by price
	Asks      []PriceLevel // ascending by price
	Closes    []float64    // recent candle close prices, oldest first; may be empty
	FetchedAt time.Time
}

// Usable reports whether both ladders are non-empty. An unusable snapshot
// means the cycle is skipped entirely.
func (s OrderBookSnapshot) Usable() bool {
	return len(s.Bids) > 0 && len(s.Asks) > 0
}

// BestBid returns the highest bid level. Callers must check Usable first.
func (s OrderBookSnapshot) BestBid() PriceLevel {
	return s.Bids[0]
}

// BestAsk returns the lowest ask level. Callers must check Usable first.
func (s OrderBookSnapshot) BestAsk() PriceLevel {
	return s.Asks[0]
}

// Candle is a single OHLCV bar as reported by the venue.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

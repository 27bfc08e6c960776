package domain

import "context"

// OrderResult reports the outcome of a filled market order.
type OrderResult struct {
	OrderID        string
	FilledQuantity float64
	AvgFillPrice   float64 // 0 when the venue does not report a fill price
}

// Exchange is the execution gateway: the narrow capability set the decision
// engine consumes from the venue SDK. Every call may fail with a transport,
// auth, or rate-limit error; callers treat such failures as non-fatal for the
// cycle in which they occur.
type Exchange interface {
	// FetchOrderBook returns up to depth levels per side for the symbol.
	FetchOrderBook(ctx context.Context, symbol string, depth int) (OrderBookSnapshot, error)

	// FetchCandles returns up to limit recent candles for the symbol at the
	// given interval (e.g. "1m"), oldest first.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// FetchBalances returns the available (free) quantity per asset.
	FetchBalances(ctx context.Context) (map[string]float64, error)

	// PlaceMarketBuy submits an immediate-execution buy for quantity base units.
	PlaceMarketBuy(ctx context.Context, symbol string, quantity float64) (OrderResult, error)

	// PlaceMarketSell submits an immediate-execution sell for quantity base units.
	PlaceMarketSell(ctx context.Context, symbol string, quantity float64) (OrderResult, error)
}

// Package pricing implements the liquidity-aware price calculations: the
// volume-weighted coverage price for a given order size and the relative
// spread derived from it. All functions are pure and deterministic.
package pricing

import "github.com/alanyoungcy/spreadbot/internal/domain"

// Result is the outcome of a coverage computation.
type Result struct {
	// Price is the quantity-weighted average price of the levels consumed.
	Price float64
	// Covered is the quantity actually absorbed; less than the requested
	// quantity when the book was exhausted first.
	Covered float64
}

// Coverage computes the quantity-weighted average price of the minimum number
// of levels, taken in book order, whose cumulative quantity reaches qty.
//
// When the book is exhausted before qty is reached, the price falls back to
// the first (best) level's price rather than extrapolating beyond available
// liquidity. A non-positive qty or empty book yields a zero Result.
func Coverage(levels []domain.PriceLevel, qty float64) Result {
	if qty <= 0 || len(levels) == 0 {
		return Result{}
	}

	var (
		covered     float64
		weightedSum float64
	)
	for _, lvl := range levels {
		if lvl.Quantity <= 0 {
			continue
		}
		take := lvl.Quantity
		if remaining := qty - covered; take > remaining {
			take = remaining
		}
		covered += take
		weightedSum += take * lvl.Price
		if covered >= qty {
			break
		}
	}

	if covered < qty {
		// Shallow book: best level price, never divide by zero.
		return Result{Price: levels[0].Price, Covered: covered}
	}
	return Result{Price: weightedSum / covered, Covered: covered}
}

// CoverageBid returns the coverage price on the bid side of the snapshot for
// the given quantity: the price actually receivable when selling qty into the
// book, not just the best bid.
func CoverageBid(snap domain.OrderBookSnapshot, qty float64) Result {
	return Coverage(snap.Bids, qty)
}

// Spread is the relative gap between the best ask and the bid-side coverage
// price for a comparable size: (bestAsk - coverageBid) / bestAsk.
// A non-positive bestAsk yields 0.
func Spread(bestAsk, coverageBid float64) float64 {
	if bestAsk <= 0 {
		return 0
	}
	return (bestAsk - coverageBid) / bestAsk
}

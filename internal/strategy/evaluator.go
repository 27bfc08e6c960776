package strategy

import (
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/pricing"
)

// EntryParams are the configured thresholds consulted on every entry check.
type EntryParams struct {
	// SpreadThreshold is the maximum relative spread tolerated for entry.
	SpreadThreshold float64
	// MinNotional is the minimum order value (quantity * best ask) accepted
	// by the venue.
	MinNotional float64
	// MaxBalanceRatio is the fraction of the quote balance deployable in a
	// single entry.
	MaxBalanceRatio float64
}

// Decision is the outcome of one entry evaluation, with the intermediate
// figures retained for logging.
type Decision struct {
	Enter       bool
	Quantity    float64
	BestAsk     float64
	CoverageBid float64
	Spread      float64
	// Reason names the first gate that blocked entry; empty when Enter.
	Reason string
}

// Evaluator applies the entry gates in order against a fresh snapshot.
type Evaluator struct {
	Policy EntryPolicy
	Params EntryParams
}

// EvaluateEntry checks the spread, momentum, notional and sizing gates. All
// must pass for Enter to be true; evaluation stops at the first failing gate.
func (e Evaluator) EvaluateEntry(snap domain.OrderBookSnapshot, quoteBalance float64, closes []float64) Decision {
	if !snap.Usable() {
		return Decision{Reason: "empty book"}
	}
	bestAsk := snap.BestAsk()

	cov := pricing.CoverageBid(snap, bestAsk.Quantity)
	spread := pricing.Spread(bestAsk.Price, cov.Price)

	d := Decision{
		BestAsk:     bestAsk.Price,
		CoverageBid: cov.Price,
		Spread:      spread,
	}

	if spread >= e.Params.SpreadThreshold {
		d.Reason = "spread above threshold"
		return d
	}
	if !e.Policy.Allow(closes) {
		d.Reason = "momentum gate not satisfied"
		return d
	}

	deployable := bestAsk.Quantity
	if affordable := quoteBalance * e.Params.MaxBalanceRatio / bestAsk.Price; affordable < deployable {
		deployable = affordable
	}
	if deployable <= 0 {
		d.Reason = "no deployable quantity"
		return d
	}
	if deployable*bestAsk.Price < e.Params.MinNotional {
		d.Reason = "below minimum notional"
		return d
	}

	d.Enter = true
	d.Quantity = deployable
	return d
}

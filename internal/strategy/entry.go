package strategy

import "fmt"

// Entry policy names accepted by configuration.
const (
	PolicyTickMomentum  = "tick_momentum"
	PolicyMAConvergence = "ma_convergence"
)

// EntryPolicy is the momentum gate consulted before opening a position. It
// receives the tracked close series, oldest first, and reports whether the
// momentum condition holds.
type EntryPolicy interface {
	Name() string
	Allow(closes []float64) bool
}

// TickMomentum permits entry only when the last close is strictly greater
// than the previous cycle's close.
type TickMomentum struct{}

func (TickMomentum) Name() string { return PolicyTickMomentum }

func (TickMomentum) Allow(closes []float64) bool {
	n := len(closes)
	if n < 2 {
		return false
	}
	return closes[n-1] > closes[n-2]
}

// MAConvergence permits entry on a sharp approach from below: the short-period
// average is still under the long-period average, but the gap between them has
// narrowed by at least Sharpness (a fraction) over Lookback cycles.
type MAConvergence struct {
	ShortPeriod int
	LongPeriod  int
	Lookback    int
	Sharpness   float64
}

func (MAConvergence) Name() string { return PolicyMAConvergence }

func (p MAConvergence) Allow(closes []float64) bool {
	if len(closes) < p.LongPeriod+p.Lookback {
		return false
	}

	shortNow := SMA(closes, p.ShortPeriod, 0)
	longNow := SMA(closes, p.LongPeriod, 0)
	if shortNow >= longNow {
		return false
	}

	gapNow := longNow - shortNow
	gapPast := SMA(closes, p.LongPeriod, p.Lookback) - SMA(closes, p.ShortPeriod, p.Lookback)
	if gapPast <= 0 {
		// The short average was not below the long one a lookback ago, so
		// there is no converging approach to measure.
		return false
	}
	return (gapPast-gapNow)/gapPast >= p.Sharpness
}

// NewEntryPolicy builds the entry policy selected by name.
func NewEntryPolicy(name string, shortPeriod, longPeriod, lookback int, sharpness float64) (EntryPolicy, error) {
	switch name {
	case PolicyTickMomentum:
		return TickMomentum{}, nil
	case PolicyMAConvergence:
		return MAConvergence{
			ShortPeriod: shortPeriod,
			LongPeriod:  longPeriod,
			Lookback:    lookback,
			Sharpness:   sharpness,
		}, nil
	default:
		return nil, fmt.Errorf("strategy: unknown entry policy %q", name)
	}
}

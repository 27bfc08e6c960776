package book

import (
	"math"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// State is the per-cycle outcome of the trailing-stop evaluation for one
// position.
type State int

const (
	// StateRising: coverage price at or above the high-water mark.
	StateRising State = iota
	// StateDrawdownPending: coverage price below the mark, confirmation
	// timer running.
	StateDrawdownPending
	// StateConfirmedExit: drawdown persisted for the full confirmation
	// period; the position should be sold.
	StateConfirmedExit
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateRising:
		return "rising"
	case StateDrawdownPending:
		return "drawdown_pending"
	case StateConfirmedExit:
		return "confirmed_exit"
	default:
		return "unknown"
	}
}

// Ratchet advances positions through the trailing-stop state machine. The
// stop level (high-water mark) only ever moves in the position's favor.
type Ratchet struct {
	// Confirmation is the minimum dwell time the coverage price must stay
	// below the high-water mark before an exit is confirmed.
	Confirmation time.Duration
	// Precision is the number of decimals prices are rounded to before
	// comparison; negative disables rounding.
	Precision int
}

// Advance feeds one coverage-price observation into the position's ratchet
// state and returns the resulting state. The position's HighWaterPrice and
// PendingExitSince fields are updated in place.
func (r Ratchet) Advance(pos *domain.Position, coverage float64, now time.Time) State {
	cmpCoverage := r.round(coverage)
	cmpHigh := r.round(pos.HighWaterPrice)

	switch {
	case cmpCoverage > cmpHigh:
		// New high: ratchet the stop level up and clear any pending timer.
		pos.HighWaterPrice = coverage
		pos.PendingExitSince = nil
		return StateRising

	case cmpCoverage == cmpHigh:
		// Recovered to the mark: the drawdown did not stick.
		pos.PendingExitSince = nil
		return StateRising

	default:
		if pos.PendingExitSince == nil {
			ts := now
			pos.PendingExitSince = &ts
			return StateDrawdownPending
		}
		if now.Sub(*pos.PendingExitSince) >= r.Confirmation {
			return StateConfirmedExit
		}
		return StateDrawdownPending
	}
}

// ClearTimer resets the confirmation timer, forcing confirmation to
// re-accumulate. Used after a failed sell so a transient gateway error does
// not cause an immediate retry storm.
func (r Ratchet) ClearTimer(pos *domain.Position) {
	pos.PendingExitSince = nil
}

func (r Ratchet) round(v float64) float64 {
	if r.Precision < 0 {
		return v
	}
	scale := math.Pow10(r.Precision)
	return math.Round(v*scale) / scale
}

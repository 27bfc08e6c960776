package domain

import "time"

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonRatchet   ExitReason = "ratchet"
	ExitReasonCrossover ExitReason = "crossover"
)

// ClosedTrade is the realized outcome of a position that was sold. ExitPrice
// is the coverage price used for the sale decision; PnL and PnLPct are derived
// from it at close time.
type ClosedTrade struct {
	ID         string
	PositionID string
	Symbol     string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64 // (exit - entry) * quantity, in quote currency
	PnLPct     float64 // (exit - entry) / entry * 100
	Reason     ExitReason
	OpenedAt   time.Time
	ClosedAt   time.Time
}

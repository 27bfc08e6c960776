package domain

import "time"

// Position is an open inventory lot created by a filled market buy. The
// trailing-stop (ratchet) state lives directly on the position: the high-water
// mark and the pending-exit timestamp, rather than in side tables keyed by ID.
type Position struct {
	ID          string // opaque unique identifier, stable for the lifetime
	Symbol      string
	EntryPrice  float64 // price paid per unit at open
	Quantity    float64 // units held; > 0 while open
	EntryPolicy string  // name of the entry policy that opened it

	// HighWaterPrice is the highest coverage price observed since entry. It is
	// monotonically non-decreasing and initialized to EntryPrice.
	HighWaterPrice float64

	// PendingExitSince marks when the coverage price first dropped below the
	// high-water mark. Nil whenever price makes a new high or recovers to it.
	PendingExitSince *time.Time

	OpenedAt time.Time
}

// Notional returns the position's value at the given price.
func (p Position) Notional(price float64) float64 {
	return p.Quantity * price
}

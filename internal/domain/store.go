package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists open positions, including their ratchet state, so a
// restart can reload the position book. Implementations are optional; the
// run loop operates purely in memory when no store is wired.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	// UpdateRatchet persists the mutable trailing-stop fields.
	UpdateRatchet(ctx context.Context, id string, highWater float64, pendingSince *time.Time) error
	Delete(ctx context.Context, id string) error
	ListOpen(ctx context.Context, symbol string) ([]Position, error)
}

// TradeStore persists realized trade outcomes.
type TradeStore interface {
	Insert(ctx context.Context, trade ClosedTrade) error
	ListRecent(ctx context.Context, symbol string, opts ListOpts) ([]ClosedTrade, error)
	SumPnL(ctx context.Context, symbol string, since time.Time) (float64, error)
}

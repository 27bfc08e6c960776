package domain

import "context"

// CandleCache keeps a bounded window of recent candle closes so the
// moving-average policies can warm up immediately after a restart.
type CandleCache interface {
	// AppendClose appends a close price, trimming the window to maxLen.
	AppendClose(ctx context.Context, symbol string, close float64, maxLen int) error
	// RecentCloses returns up to limit closes, oldest first.
	RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
}

// EventBus publishes bot lifecycle and trade events for external consumers
// (dashboards, other processes). Delivery is best-effort.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

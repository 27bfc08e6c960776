// Package strategy implements the momentum gates for entries, the
// moving-average crossover exit, and the combined entry evaluator.
package strategy

import (
	"context"
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// CloseTracker maintains a bounded window of recent close prices and exposes
// the statistical helpers the entry and exit policies rely on. It is safe for
// concurrent use.
type CloseTracker struct {
	mu     sync.RWMutex
	closes []float64
	maxLen int
}

// NewCloseTracker creates a CloseTracker keeping at most maxLen closes.
func NewCloseTracker(maxLen int) *CloseTracker {
	if maxLen < 2 {
		maxLen = 2
	}
	return &CloseTracker{maxLen: maxLen}
}

// Seed replaces the tracked series with the given closes, oldest first.
// Used to warm the moving averages from candle history on startup.
func (t *CloseTracker) Seed(closes []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := 0
	if len(closes) > t.maxLen {
		start = len(closes) - t.maxLen
	}
	t.closes = append(t.closes[:0], closes[start:]...)
}

// SeedFromCache restores the series from a candle cache, if one is wired.
func (t *CloseTracker) SeedFromCache(ctx context.Context, cache domain.CandleCache, symbol string) error {
	closes, err := cache.RecentCloses(ctx, symbol, t.maxLen)
	if err != nil {
		return err
	}
	t.Seed(closes)
	return nil
}

// Track appends a close price observed this cycle, trimming the window.
func (t *CloseTracker) Track(close float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closes = append(t.closes, close)
	if len(t.closes) > t.maxLen {
		t.closes = t.closes[len(t.closes)-t.maxLen:]
	}
}

// Closes returns a copy of the tracked series, oldest first.
func (t *CloseTracker) Closes() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.closes) == 0 {
		return nil
	}
	out := make([]float64, len(t.closes))
	copy(out, t.closes)
	return out
}

// Len returns the number of tracked closes.
func (t *CloseTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.closes)
}

// SMA returns the simple moving average of the most recent period closes,
// ending offset cycles before the latest observation. It returns 0 when the
// series is too short.
func SMA(closes []float64, period, offset int) float64 {
	if period <= 0 || offset < 0 {
		return 0
	}
	end := len(closes) - offset
	start := end - period
	if start < 0 {
		return 0
	}
	var sum float64
	for _, c := range closes[start:end] {
		sum += c
	}
	return sum / float64(period)
}

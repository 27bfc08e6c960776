package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// CandleCache implements domain.CandleCache using a Redis list per symbol.
// Closes are appended with RPUSH and trimmed with LTRIM so the list holds the
// most recent window, oldest first.
type CandleCache struct {
	rdb *redis.Client
}

// Compile-time interface check.
var _ domain.CandleCache = (*CandleCache)(nil)

// NewCandleCache creates a CandleCache backed by the given Client.
func NewCandleCache(c *Client) *CandleCache {
	return &CandleCache{rdb: c.Underlying()}
}

func closesKey(symbol string) string {
	return "closes:" + symbol
}

// AppendClose appends a close price for the symbol, trimming the window to
// maxLen entries.
func (cc *CandleCache) AppendClose(ctx context.Context, symbol string, close float64, maxLen int) error {
	key := closesKey(symbol)

	pipe := cc.rdb.Pipeline()
	pipe.RPush(ctx, key, strconv.FormatFloat(close, 'f', -1, 64))
	if maxLen > 0 {
		pipe.LTrim(ctx, key, int64(-maxLen), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append close %s: %w", symbol, err)
	}
	return nil
}

// RecentCloses returns up to limit closes for the symbol, oldest first.
func (cc *CandleCache) RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	vals, err := cc.rdb.LRange(ctx, closesKey(symbol), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: recent closes %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse close %q for %s: %w", v, symbol, err)
		}
		closes = append(closes, f)
	}
	return closes, nil
}

package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func snapshot(bids, asks []domain.PriceLevel) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		Symbol:    "BTCUSDT",
		Bids:      bids,
		Asks:      asks,
		FetchedAt: time.Unix(1700000000, 0),
	}
}

func defaultEvaluator() Evaluator {
	return Evaluator{
		Policy: TickMomentum{},
		Params: EntryParams{
			SpreadThreshold: 0.001,
			MinNotional:     10,
			MaxBalanceRatio: 0.9,
		},
	}
}

func TestEvaluateEntryAllGatesPass(t *testing.T) {
	e := defaultEvaluator()

	// Deep bid right under the ask keeps the spread tight. Best ask 20 with
	// quantity 10; balance 100 at ratio 0.9 caps the size at 4.5.
	snap := snapshot(
		[]domain.PriceLevel{{Price: 19.99, Quantity: 50}},
		[]domain.PriceLevel{{Price: 20, Quantity: 10}},
	)
	closes := []float64{19.9, 19.95}

	d := e.EvaluateEntry(snap, 100, closes)
	require.True(t, d.Enter, "blocked by %q", d.Reason)
	assert.InDelta(t, 4.5, d.Quantity, 1e-12)
	assert.InDelta(t, 20.0, d.BestAsk, 1e-12)
	assert.InDelta(t, 19.99, d.CoverageBid, 1e-12)
	assert.Less(t, d.Spread, 0.001)
}

func TestEvaluateEntrySizedByAskQuantity(t *testing.T) {
	e := defaultEvaluator()

	// Ask quantity smaller than what the balance affords.
	snap := snapshot(
		[]domain.PriceLevel{{Price: 19.99, Quantity: 50}},
		[]domain.PriceLevel{{Price: 20, Quantity: 2}},
	)

	d := e.EvaluateEntry(snap, 1000, []float64{19.9, 19.95})
	require.True(t, d.Enter, "blocked by %q", d.Reason)
	assert.InDelta(t, 2.0, d.Quantity, 1e-12)
}

func TestEvaluateEntryBlockedByWideSpread(t *testing.T) {
	e := defaultEvaluator()

	// Coverage bid 99.88 against best ask 100: spread 0.0012.
	snap := snapshot(
		[]domain.PriceLevel{{Price: 99.88, Quantity: 50}},
		[]domain.PriceLevel{{Price: 100, Quantity: 1}},
	)

	d := e.EvaluateEntry(snap, 1000, []float64{99, 99.5})
	assert.False(t, d.Enter)
	assert.Equal(t, "spread above threshold", d.Reason)
	assert.InDelta(t, 0.0012, d.Spread, 1e-9)
}

func TestEvaluateEntryAllowsNarrowSpread(t *testing.T) {
	e := defaultEvaluator()

	// Coverage bid 99.92 against best ask 100: spread 0.0008.
	snap := snapshot(
		[]domain.PriceLevel{{Price: 99.92, Quantity: 50}},
		[]domain.PriceLevel{{Price: 100, Quantity: 1}},
	)

	d := e.EvaluateEntry(snap, 1000, []float64{99, 99.5})
	require.True(t, d.Enter, "blocked by %q", d.Reason)
	assert.InDelta(t, 0.0008, d.Spread, 1e-9)
}

func TestEvaluateEntryBlockedByMomentum(t *testing.T) {
	e := defaultEvaluator()

	snap := snapshot(
		[]domain.PriceLevel{{Price: 99.99, Quantity: 50}},
		[]domain.PriceLevel{{Price: 100, Quantity: 1}},
	)

	d := e.EvaluateEntry(snap, 1000, []float64{100.5, 100})
	assert.False(t, d.Enter)
	assert.Equal(t, "momentum gate not satisfied", d.Reason)
}

func TestEvaluateEntryBlockedByMinNotional(t *testing.T) {
	e := defaultEvaluator()

	// Balance 10 at ratio 0.9 deploys 0.09 units: notional 9 < 10.
	snap := snapshot(
		[]domain.PriceLevel{{Price: 99.99, Quantity: 50}},
		[]domain.PriceLevel{{Price: 100, Quantity: 5}},
	)

	d := e.EvaluateEntry(snap, 10, []float64{99, 99.5})
	assert.False(t, d.Enter)
	assert.Equal(t, "below minimum notional", d.Reason)
}

func TestEvaluateEntryBlockedByZeroBalance(t *testing.T) {
	e := defaultEvaluator()

	snap := snapshot(
		[]domain.PriceLevel{{Price: 99.99, Quantity: 50}},
		[]domain.PriceLevel{{Price: 100, Quantity: 5}},
	)

	d := e.EvaluateEntry(snap, 0, []float64{99, 99.5})
	assert.False(t, d.Enter)
	assert.Equal(t, "no deployable quantity", d.Reason)
}

func TestEvaluateEntryEmptyBook(t *testing.T) {
	e := defaultEvaluator()

	d := e.EvaluateEntry(snapshot(nil, nil), 1000, []float64{99, 99.5})
	assert.False(t, d.Enter)
	assert.Equal(t, "empty book", d.Reason)
}

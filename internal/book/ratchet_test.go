package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func newTestPosition(entry float64) *domain.Position {
	return &domain.Position{
		ID:             "pos-1",
		Symbol:         "BTCUSDT",
		EntryPrice:     entry,
		Quantity:       1,
		HighWaterPrice: entry,
		OpenedAt:       time.Unix(1700000000, 0),
	}
}

func TestRatchetHighWaterOnlyRises(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: -1}
	pos := newTestPosition(100)
	now := time.Unix(1700000100, 0)

	assert.Equal(t, StateRising, r.Advance(pos, 105, now))
	assert.InDelta(t, 105.0, pos.HighWaterPrice, 1e-12)

	// A dip never lowers the mark.
	r.Advance(pos, 95, now.Add(time.Second))
	assert.InDelta(t, 105.0, pos.HighWaterPrice, 1e-12)

	r.Advance(pos, 110, now.Add(2*time.Second))
	assert.InDelta(t, 110.0, pos.HighWaterPrice, 1e-12)
}

func TestRatchetDrawdownStartsTimer(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: -1}
	pos := newTestPosition(100)
	now := time.Unix(1700000100, 0)

	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, now))
	require.NotNil(t, pos.PendingExitSince)
	assert.True(t, pos.PendingExitSince.Equal(now))

	// Further drawdown observations do not restart the timer.
	later := now.Add(30 * time.Second)
	require.Equal(t, StateDrawdownPending, r.Advance(pos, 98, later))
	assert.True(t, pos.PendingExitSince.Equal(now))
}

func TestRatchetConfirmsAfterFullPeriod(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: -1}
	pos := newTestPosition(100)
	start := time.Unix(1700000100, 0)

	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start))

	// One tick short of the period is still pending.
	assert.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start.Add(time.Minute-time.Millisecond)))

	// Exactly at the period the exit is confirmed.
	assert.Equal(t, StateConfirmedExit, r.Advance(pos, 99, start.Add(time.Minute)))
}

func TestRatchetRecoveryClearsTimer(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: -1}
	pos := newTestPosition(100)
	start := time.Unix(1700000100, 0)

	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start))

	// Recovery to exactly the mark clears the pending timer.
	require.Equal(t, StateRising, r.Advance(pos, 100, start.Add(10*time.Second)))
	assert.Nil(t, pos.PendingExitSince)

	// A new drawdown must accumulate the full period from scratch.
	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start.Add(20*time.Second)))
	assert.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start.Add(70*time.Second)))
	assert.Equal(t, StateConfirmedExit, r.Advance(pos, 99, start.Add(80*time.Second)))
}

func TestRatchetPrecisionAbsorbsNoise(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: 2}
	pos := newTestPosition(100)
	now := time.Unix(1700000100, 0)

	// 99.996 rounds to 100.00: treated as holding the mark, not a drawdown.
	assert.Equal(t, StateRising, r.Advance(pos, 99.996, now))
	assert.Nil(t, pos.PendingExitSince)

	// 99.994 rounds to 99.99: a real drawdown.
	assert.Equal(t, StateDrawdownPending, r.Advance(pos, 99.994, now.Add(time.Second)))
}

func TestRatchetClearTimer(t *testing.T) {
	r := Ratchet{Confirmation: time.Minute, Precision: -1}
	pos := newTestPosition(100)
	start := time.Unix(1700000100, 0)

	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start))
	r.ClearTimer(pos)
	assert.Nil(t, pos.PendingExitSince)

	// The next drawdown observation starts a fresh timer.
	require.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start.Add(2*time.Minute)))
	assert.Equal(t, StateDrawdownPending, r.Advance(pos, 99, start.Add(2*time.Minute+59*time.Second)))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "rising", StateRising.String())
	assert.Equal(t, "drawdown_pending", StateDrawdownPending.String())
	assert.Equal(t, "confirmed_exit", StateConfirmedExit.String())
}

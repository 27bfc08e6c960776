package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseTrackerWindowTrim(t *testing.T) {
	tr := NewCloseTracker(3)

	tr.Track(1)
	tr.Track(2)
	tr.Track(3)
	tr.Track(4)

	assert.Equal(t, []float64{2, 3, 4}, tr.Closes())
	assert.Equal(t, 3, tr.Len())
}

func TestCloseTrackerSeed(t *testing.T) {
	tr := NewCloseTracker(3)
	tr.Track(99)

	tr.Seed([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, []float64{3, 4, 5}, tr.Closes())
}

func TestCloseTrackerClosesReturnsCopy(t *testing.T) {
	tr := NewCloseTracker(5)
	tr.Track(1)
	tr.Track(2)

	closes := tr.Closes()
	closes[0] = 42
	assert.Equal(t, []float64{1, 2}, tr.Closes())
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 4.0, SMA(closes, 3, 0), 1e-12) // (3+4+5)/3
	assert.InDelta(t, 3.0, SMA(closes, 3, 1), 1e-12) // (2+3+4)/3
	assert.InDelta(t, 3.0, SMA(closes, 5, 0), 1e-12)

	require.Zero(t, SMA(closes, 6, 0), "period longer than series")
	require.Zero(t, SMA(closes, 3, 3), "offset pushes window before start")
	require.Zero(t, SMA(closes, 0, 0))
}

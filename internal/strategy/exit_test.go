package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossoverExitDetectsBearishCross(t *testing.T) {
	p := CrossoverExit{ShortPeriod: 2, MediumPeriod: 4}

	// Previous cycle: short (10.5) above medium (10.25). Current cycle: the
	// latest close collapses, short (8.5) drops below medium (9.25).
	closes := []float64{10, 10, 10, 11, 6}
	assert.True(t, p.ShouldExit(closes))
}

func TestCrossoverExitNoCrossWhileAbove(t *testing.T) {
	p := CrossoverExit{ShortPeriod: 2, MediumPeriod: 4}

	closes := []float64{10, 10, 10, 11, 12}
	assert.False(t, p.ShouldExit(closes))
}

func TestCrossoverExitNoRepeatWhileBelow(t *testing.T) {
	p := CrossoverExit{ShortPeriod: 2, MediumPeriod: 4}

	// Short already below medium on both cycles: the cross happened earlier,
	// no new exit signal.
	closes := []float64{10, 10, 11, 6, 6}
	assert.False(t, p.ShouldExit(closes))
}

func TestCrossoverExitNeedsEnoughHistory(t *testing.T) {
	p := CrossoverExit{ShortPeriod: 2, MediumPeriod: 4}
	assert.False(t, p.ShouldExit([]float64{10, 9, 8, 7}))
}

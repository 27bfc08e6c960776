package strategy

// CrossoverExit closes positions unconditionally when the short-period
// average crosses from above to below the medium-period average between the
// previous and current cycle. It overrides the trailing-stop for the cycle in
// which the cross occurs.
type CrossoverExit struct {
	ShortPeriod  int
	MediumPeriod int
}

// ShouldExit reports whether a bearish cross occurred on the latest close.
func (p CrossoverExit) ShouldExit(closes []float64) bool {
	// One extra close is needed to evaluate the previous cycle's averages.
	if len(closes) < p.MediumPeriod+1 {
		return false
	}

	prevShort := SMA(closes, p.ShortPeriod, 1)
	prevMedium := SMA(closes, p.MediumPeriod, 1)
	curShort := SMA(closes, p.ShortPeriod, 0)
	curMedium := SMA(closes, p.MediumPeriod, 0)

	return prevShort >= prevMedium && curShort < curMedium
}

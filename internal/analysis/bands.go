package analysis

// scoreBand awards points when a value clears a bound. Ladders are evaluated
// top-down and only the first matching band applies; values that clear no
// band score zero.
type scoreBand struct {
	bound  float64
	points float64
}

// floorLadder is a descending list of lower bounds: the first band whose
// bound the value meets or exceeds wins.
type floorLadder []scoreBand

func (l floorLadder) score(v float64) float64 {
	for _, b := range l {
		if v >= b.bound {
			return b.points
		}
	}
	return 0
}

// ceilLadder is an ascending list of upper bounds: the first band whose
// bound the value is at or below wins.
type ceilLadder []scoreBand

func (l ceilLadder) score(v float64) float64 {
	for _, b := range l {
		if v <= b.bound {
			return b.points
		}
	}
	return 0
}

// scoreBelow is like score but with strict upper bounds.
func (l ceilLadder) scoreBelow(v float64) float64 {
	for _, b := range l {
		if v < b.bound {
			return b.points
		}
	}
	return 0
}

// Financial health pillar (cap 25).
var (
	currentRatioBands  = floorLadder{{2, 5}, {1.5, 3}, {1, 1}}
	quickRatioBands    = floorLadder{{1, 5}, {0.8, 3}}
	debtRatioBands     = ceilLadder{{0.3, 5}, {0.5, 3}, {0.6, 1}}
	cashFlowRatioBands = floorLadder{{1.2, 5}, {0.8, 3}}
	// Interest coverage proxy: reuses the debt ratio with strict bounds.
	interestCoverBands = ceilLadder{{0.3, 5}, {0.5, 3}}
)

// Profitability pillar (cap 25).
var (
	roeBands          = floorLadder{{0.20, 8}, {0.15, 6}, {0.10, 4}}
	netMarginBands    = floorLadder{{0.15, 8}, {0.10, 6}, {0.05, 3}}
	grossMarginBands  = floorLadder{{0.40, 5}, {0.30, 3}}
	profitGrowthBands = floorLadder{{0.20, 4}, {0.10, 3}, {0, 2}}
)

// Valuation pillar (cap 25).
var (
	peBands  = ceilLadder{{10, 8}, {15, 6}, {20, 4}, {25, 2}}
	pbBands  = ceilLadder{{1, 8}, {1.5, 6}, {2, 4}, {3, 2}}
	pegBands = ceilLadder{{0.8, 9}, {1.0, 7}, {1.5, 4}}
)

// Safety margin pillar (cap 25). Bounds are margin percentages.
var safetyMarginBands = floorLadder{{50, 25}, {40, 20}, {30, 15}, {20, 10}, {10, 5}}

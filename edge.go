package proximity

import "math"

const (
	// TICKS_PER_UNIT is fixed-point resolution of travel costs used by isochrones.
	// Integer sums do not depend on summation order, so forward and reverse searches agree on the budget boundary.
	TICKS_PER_UNIT = 1e9
	// MAX_EDGE_WEIGHT keeps single edge cost representable in ticks
	MAX_EDGE_WEIGHT = 1e9
)

// Edge is directed weighted link. Weight is traversal cost in time units.
type Edge struct {
	Source NodeID
	Target NodeID
	Weight float64

	ticks int64
}

func toTicks(v float64) int64 {
	return int64(math.Round(v * TICKS_PER_UNIT))
}

// budgetTicks converts isochrone budget. Budgets beyond int64 range are unbounded.
func budgetTicks(budget float64) int64 {
	if budget >= float64(math.MaxInt64)/TICKS_PER_UNIT {
		return math.MaxInt64
	}
	return toTicks(budget)
}

func fromTicks(ticks int64) float64 {
	return float64(ticks) / TICKS_PER_UNIT
}

package scaling

import (
	"fmt"
	"math"
	"math/rand/v2"

	"seiir/internal/failure"
)

// minHistorySpan is the minimum number of days between the two history
// window bounds.
const minHistorySpan = 7

// Params configures one scenario's beta scaling.
type Params struct {
	WindowSize        int
	AverageOverMin    int
	AverageOverMax    int
	OffsetDeathsLower float64
	OffsetDeathsUpper float64
}

// Validate reports parameters that cannot produce a history window or an
// ordered pair of death thresholds.
func (p Params) Validate() error {
	switch {
	case p.WindowSize < 1:
		return invalid("window_size must be at least 1, got %d", p.WindowSize)
	case p.AverageOverMin < 2:
		return invalid("average_over_min must be at least 2, got %d", p.AverageOverMin)
	case p.AverageOverMax < p.AverageOverMin+minHistorySpan:
		return invalid("average_over_max must be at least average_over_min + %d, got %d and %d",
			minHistorySpan, p.AverageOverMin, p.AverageOverMax)
	case math.IsNaN(p.OffsetDeathsLower) || math.IsNaN(p.OffsetDeathsUpper):
		return invalid("offset death thresholds must be numbers")
	case p.OffsetDeathsLower > p.OffsetDeathsUpper:
		return invalid("offset_deaths_lower %v exceeds offset_deaths_upper %v",
			p.OffsetDeathsLower, p.OffsetDeathsUpper)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return failure.Wrap(failure.ErrValidation, "scaling", "params", fmt.Sprintf(format, args...), nil)
}

// HistoryWindow draws the history window bounds for draw. The generator is a
// PCG stream seeded with (draw, 0); a is drawn first from [1, min) and b second
// from [a+7, max), so 1 <= a, a+7 <= b and b < max. The same draw always
// yields the same window. p must be valid.
func HistoryWindow(draw int, p Params) (a, b int) {
	rng := rand.New(rand.NewPCG(uint64(draw), 0))
	a = 1 + rng.IntN(p.AverageOverMin-1)
	low := a + minHistorySpan
	b = low + rng.IntN(p.AverageOverMax-low)
	return a, b
}

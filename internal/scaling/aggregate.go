package scaling

import (
	"fmt"
	"math"
	"slices"

	"seiir/internal/failure"
)

// Regime names the blending regime a location falls into.
type Regime string

const (
	// RegimeNone applies no correction: deaths at or above the upper threshold.
	RegimeNone Regime = "none"
	// RegimeInterpolated scales the correction linearly between the thresholds.
	RegimeInterpolated Regime = "interpolated"
	// RegimeFull removes the whole average: deaths below the lower threshold.
	RegimeFull Regime = "full"
)

// Classify returns the regime for a location with the given total deaths.
func Classify(deaths, lower, upper float64) Regime {
	switch {
	case deaths >= upper:
		return RegimeNone
	case deaths >= lower:
		return RegimeInterpolated
	default:
		return RegimeFull
	}
}

// Offset returns the blending offset for one location.
func Offset(deaths, average, lower, upper float64) float64 {
	switch Classify(deaths, lower, upper) {
	case RegimeNone:
		return 0
	case RegimeInterpolated:
		return (upper - deaths) / (upper - lower) * average
	default:
		return average
	}
}

// AverageResidual returns the cross-draw mean of LogBetaResidualMean per
// location. Every set must cover the same locations in the same order.
func AverageResidual(sets []RecordSet) (map[int]float64, error) {
	if len(sets) == 0 {
		return nil, failure.Wrap(failure.ErrComputation, "scaling", "average residual", "no draws to aggregate", nil)
	}
	reference := sets[0].Locations()
	sums := make(map[int]float64, len(reference))
	for _, set := range sets {
		if !slices.Equal(reference, set.Locations()) {
			return nil, failure.Wrap(failure.ErrConsistency, "scaling", "average residual",
				fmt.Sprintf("draw %d location set differs from draw %d", set.Draw, sets[0].Draw), nil)
		}
		for _, r := range set.Records {
			sums[r.Location] += r.LogBetaResidualMean
		}
	}
	averages := make(map[int]float64, len(sums))
	for location, sum := range sums {
		averages[location] = sum / float64(len(sets))
	}
	return averages, nil
}

// Offsets computes the offset of every location from its total deaths and
// cross-draw average.
func Offsets(locations []int, deaths, averages map[int]float64, p Params) (map[int]float64, error) {
	offsets := make(map[int]float64, len(locations))
	for _, location := range locations {
		d, ok := deaths[location]
		if !ok {
			return nil, aggregateError("location %d has no total deaths", location)
		}
		avg, ok := averages[location]
		if !ok {
			return nil, aggregateError("location %d has no average residual", location)
		}
		offsets[location] = Offset(d, avg, p.OffsetDeathsLower, p.OffsetDeathsUpper)
	}
	return offsets, nil
}

// LocationSummary describes the correction applied to one location.
type LocationSummary struct {
	Location  int
	Deaths    float64
	Average   float64
	Offset    float64
	Corrected float64
	Regime    Regime
}

// Summarize reports the correction per location in locations order.
func Summarize(locations []int, deaths, averages, offsets map[int]float64, p Params) []LocationSummary {
	out := make([]LocationSummary, 0, len(locations))
	for _, location := range locations {
		d, avg, off := deaths[location], averages[location], offsets[location]
		out = append(out, LocationSummary{
			Location:  location,
			Deaths:    d,
			Average:   avg,
			Offset:    off,
			Corrected: avg - off,
			Regime:    Classify(d, p.OffsetDeathsLower, p.OffsetDeathsUpper),
		})
	}
	return out
}

// Apply returns corrected copies of sets. Each record's offset is subtracted
// from its LogBetaResidualMean and ScaleFinal is the exponential of the
// result. The inputs are left untouched.
func Apply(sets []RecordSet, offsets map[int]float64) ([]RecordSet, error) {
	out := make([]RecordSet, len(sets))
	for i, set := range sets {
		adjusted := set.Clone()
		for j := range adjusted.Records {
			r := &adjusted.Records[j]
			off, ok := offsets[r.Location]
			if !ok {
				return nil, aggregateError("draw %d location %d has no offset", set.Draw, r.Location)
			}
			r.Adjusted = true
			r.Offset = off
			r.AdjustedLogBetaResidualMean = r.LogBetaResidualMean - off
			r.ScaleFinal = math.Exp(r.AdjustedLogBetaResidualMean)
		}
		out[i] = adjusted
	}
	return out, nil
}

func aggregateError(format string, args ...any) error {
	return failure.Wrap(failure.ErrComputation, "scaling", "aggregate", fmt.Sprintf(format, args...), nil)
}

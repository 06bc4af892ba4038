package scaling

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"seiir/internal/failure"
)

// ComputeDraw derives one draw's scaling records, one per entry of
// in.Locations and in the same order.
func ComputeDraw(in DrawInput, p Params) (RecordSet, error) {
	if err := p.Validate(); err != nil {
		return RecordSet{}, err
	}
	series, err := groupByLocation(in)
	if err != nil {
		return RecordSet{}, err
	}
	if err := checkTransitionLocations(in); err != nil {
		return RecordSet{}, err
	}

	a, b := HistoryWindow(in.Draw, p)
	records := make([]Record, 0, len(in.Locations))
	for _, location := range in.Locations {
		deaths, ok := in.TotalDeaths[location]
		if !ok {
			return RecordSet{}, computeError(in.Draw, "location %d has no total deaths", location)
		}
		transition, ok := in.TransitionDates[location]
		if !ok {
			return RecordSet{}, computeError(in.Draw, "location %d has no transition date", location)
		}
		obs := series[location]
		if len(obs) == 0 {
			return RecordSet{}, computeError(in.Draw, "location %d missing from beta regression", location)
		}

		// Observations up to and including the transition date.
		n := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(transition) })
		if n == 0 || !obs[n-1].Date.Equal(transition) {
			return RecordSet{}, computeError(in.Draw, "location %d has no beta on transition date %s",
				location, transition.Format("2006-01-02"))
		}
		final := obs[n-1]
		if !(final.Beta > 0) || !(final.BetaPred > 0) {
			return RecordSet{}, computeError(in.Draw, "location %d has non-positive beta at transition", location)
		}

		mean, err := meanLogResidual(obs[:n], a, b)
		if err != nil {
			return RecordSet{}, computeError(in.Draw, "location %d: %v", location, err)
		}

		records = append(records, Record{
			Location:            location,
			Deaths:              deaths,
			WindowSize:          p.WindowSize,
			FitFinal:            final.Beta,
			PredStart:           final.BetaPred,
			ScaleInit:           final.Beta / final.BetaPred,
			HistoryDaysStart:    a,
			HistoryDaysEnd:      b,
			LogBetaResidualMean: mean,
			Draw:                in.Draw,
		})
	}
	return RecordSet{Draw: in.Draw, Records: records}, nil
}

// meanLogResidual averages log(beta/beta_pred) over past[n-b : n-a], clamping
// the start at the first observation.
func meanLogResidual(past []BetaObservation, a, b int) (float64, error) {
	n := len(past)
	start, end := max(n-b, 0), n-a
	if end <= start {
		return 0, fmt.Errorf("history window [%d, %d) is empty with %d days of history", a, b, n)
	}
	var sum float64
	for _, o := range past[start:end] {
		if !(o.Beta > 0) || !(o.BetaPred > 0) {
			return 0, fmt.Errorf("non-positive beta on %s", o.Date.Format("2006-01-02"))
		}
		sum += math.Log(o.Beta / o.BetaPred)
	}
	return sum / float64(end-start), nil
}

// groupByLocation splits the beta series per location, sorted by date. A
// location outside in.Locations or a repeated date is an error.
func groupByLocation(in DrawInput) (map[int][]BetaObservation, error) {
	known := make(map[int]struct{}, len(in.Locations))
	for _, location := range in.Locations {
		known[location] = struct{}{}
	}
	series := make(map[int][]BetaObservation, len(in.Locations))
	for _, o := range in.Beta {
		if _, ok := known[o.Location]; !ok {
			return nil, failure.Wrap(failure.ErrConsistency, "scaling", "compute draw",
				fmt.Sprintf("draw %d: beta regression location %d is not in the location set", in.Draw, o.Location), nil)
		}
		series[o.Location] = append(series[o.Location], o)
	}
	for location, obs := range series {
		slices.SortFunc(obs, func(x, y BetaObservation) int { return x.Date.Compare(y.Date) })
		for i := 1; i < len(obs); i++ {
			if obs[i].Date.Equal(obs[i-1].Date) {
				return nil, failure.Wrap(failure.ErrValidation, "scaling", "compute draw",
					fmt.Sprintf("draw %d: location %d has two beta rows for %s",
						in.Draw, location, obs[i].Date.Format("2006-01-02")), nil)
			}
		}
	}
	return series, nil
}

// checkTransitionLocations rejects transition dates for locations outside
// in.Locations.
func checkTransitionLocations(in DrawInput) error {
	extra := make([]int, 0)
	for location := range in.TransitionDates {
		if !slices.Contains(in.Locations, location) {
			extra = append(extra, location)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	slices.Sort(extra)
	return failure.Wrap(failure.ErrConsistency, "scaling", "compute draw",
		fmt.Sprintf("draw %d: transition dates for locations %v are not in the location set", in.Draw, extra), nil)
}

func computeError(draw int, format string, args ...any) error {
	return failure.Wrap(failure.ErrComputation, "scaling", "compute draw",
		fmt.Sprintf("draw %d: %s", draw, fmt.Sprintf(format, args...)), nil)
}

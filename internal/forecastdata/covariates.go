package forecastdata

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"seiir/internal/csvio"
	"seiir/internal/failure"
)

// CovariateRow is one covariate value. Date is zero for covariates that do
// not vary over time.
type CovariateRow struct {
	Location int
	Date     time.Time
	Value    float64
}

// CovariateSet splits one covariate into the portion used by the regression
// and one forward portion per covariate scenario.
type CovariateSet struct {
	Covariate  string
	Regression []CovariateRow
	Scenarios  map[string][]CovariateRow
}

// CheckCovariates verifies that every covariate scenario named by a forecast
// scenario has a file in the covariate root, and that the forecast and the
// regression read the same covariate version.
func (d *Interface) CheckCovariates() error {
	needed := false
	for _, scenario := range d.Spec.Scenarios {
		if len(scenario.Covariates) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	if d.Covariates == nil {
		return failure.Wrap(failure.ErrConfiguration, "forecastdata", "check covariates",
			"scenarios name covariates but no covariate version is configured", nil)
	}
	if version := d.RegressionSpec.Data.CovariateVersion; version != "" && version != d.Spec.Data.CovariateVersion {
		return failure.Wrap(failure.ErrConsistency, "forecastdata", "check covariates",
			fmt.Sprintf("regression used covariate version %s, forecast uses %s", version, d.Spec.Data.CovariateVersion), nil)
	}
	files := map[string]map[string]string{}
	for _, scenario := range d.Spec.Scenarios {
		covariates := make([]string, 0, len(scenario.Covariates))
		for covariate := range scenario.Covariates {
			covariates = append(covariates, covariate)
		}
		sort.Strings(covariates)
		for _, covariate := range covariates {
			mapping, ok := files[covariate]
			if !ok {
				var err error
				mapping, err = d.Covariates.ScenarioFiles(covariate)
				if err != nil {
					return err
				}
				files[covariate] = mapping
			}
			want := scenario.Covariates[covariate]
			if _, ok := mapping[want]; !ok {
				return failure.Wrap(failure.ErrNotFound, "forecastdata", "check covariates",
					fmt.Sprintf("scenario %q: covariate %q has no %q scenario file", scenario.Name, covariate, want), nil)
			}
		}
	}
	return nil
}

// LoadCovariate reads every scenario file of covariate restricted to
// locations. Time-dependent rows are split at each location's draw transition
// date. The regression portion must be identical across scenario files.
func (d *Interface) LoadCovariate(covariate string, locations []int, draw int, useDraws bool) (*CovariateSet, error) {
	if d.Covariates == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "forecastdata", "load covariate",
			"no covariate version is configured", nil)
	}
	mapping, err := d.Covariates.ScenarioFiles(covariate)
	if err != nil {
		return nil, err
	}
	scenarios := make([]string, 0, len(mapping))
	for scenario := range mapping {
		scenarios = append(scenarios, scenario)
	}
	sort.Strings(scenarios)

	var cutoffs map[int]time.Time
	set := &CovariateSet{Covariate: covariate, Scenarios: make(map[string][]CovariateRow, len(scenarios))}
	for i, scenario := range scenarios {
		frame, err := csvio.ReadFile(mapping[scenario])
		if err != nil {
			return nil, err
		}
		valueName := fmt.Sprintf("%s_%s", covariate, scenario)
		if useDraws {
			valueName = fmt.Sprintf("draw_%d", draw)
		}
		rows, err := covariateRows(frame, valueName, locations)
		if err != nil {
			return nil, err
		}

		regression, forward := rows, rows
		if frame.Has("date") {
			if cutoffs == nil {
				if cutoffs, err = d.TransitionDates(draw); err != nil {
					return nil, err
				}
			}
			regression, forward = splitAtCutoff(rows, cutoffs)
		}

		if i == 0 {
			set.Regression = regression
		} else if !slices.EqualFunc(set.Regression, regression, sameRow) {
			return nil, failure.Wrap(failure.ErrConsistency, "forecastdata", "load covariate",
				fmt.Sprintf("regression data for %q differs between scenario files %s and %s",
					covariate, mapping[scenarios[0]], mapping[scenario]), nil)
		}
		set.Scenarios[scenario] = forward
	}
	return set, nil
}

func covariateRows(frame *csvio.Frame, valueName string, locations []int) ([]CovariateRow, error) {
	locCol, err := frame.Column("location_id")
	if err != nil {
		return nil, err
	}
	valueCol, err := frame.Column(valueName)
	if err != nil {
		return nil, err
	}
	dateCol := -1
	if frame.Has("date") {
		dateCol, _ = frame.Column("date")
	}
	wanted := make(map[int]struct{}, len(locations))
	for _, location := range locations {
		wanted[location] = struct{}{}
	}

	rows := make([]CovariateRow, 0, frame.Len())
	for row := 0; row < frame.Len(); row++ {
		var r CovariateRow
		if r.Location, err = frame.Int(row, locCol); err != nil {
			return nil, err
		}
		if _, ok := wanted[r.Location]; !ok {
			continue
		}
		if r.Value, err = frame.Float(row, valueCol); err != nil {
			return nil, err
		}
		if math.IsNaN(r.Value) {
			continue
		}
		if dateCol >= 0 {
			if r.Date, err = frame.Date(row, dateCol); err != nil {
				return nil, err
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// splitAtCutoff keeps rows on or before the cutoff for the regression and rows
// on or after it for the forecast. Locations without a cutoff are dropped.
func splitAtCutoff(rows []CovariateRow, cutoffs map[int]time.Time) (regression, forward []CovariateRow) {
	for _, r := range rows {
		cutoff, ok := cutoffs[r.Location]
		if !ok {
			continue
		}
		if !r.Date.After(cutoff) {
			regression = append(regression, r)
		}
		if !r.Date.Before(cutoff) {
			forward = append(forward, r)
		}
	}
	return regression, forward
}

func sameRow(a, b CovariateRow) bool {
	return a.Location == b.Location && a.Date.Equal(b.Date) && a.Value == b.Value
}

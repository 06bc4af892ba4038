package forecastdata

import (
	"fmt"
	"slices"
	"time"

	"seiir/internal/csvio"
	"seiir/internal/fileutil"
	"seiir/internal/paths"
	"seiir/internal/scaling"
)

// Measures are the derived output series concatenated across draws.
var Measures = []string{"deaths", "infections", "r_effective"}

// OutputRow is one (location, date) row of a draw's forecast outputs.
type OutputRow struct {
	Location   int
	Date       time.Time
	Deaths     float64
	Infections float64
	REffective float64
}

// Value returns the named measure.
func (r OutputRow) Value(measure string) (float64, bool) {
	switch measure {
	case "deaths":
		return r.Deaths, true
	case "infections":
		return r.Infections, true
	case "r_effective":
		return r.REffective, true
	default:
		return 0, false
	}
}

// StageBetaScales writes set into batch at its scenario path.
func (d *Interface) StageBetaScales(batch *fileutil.Batch, scenario string, set scaling.RecordSet) error {
	path, err := d.Forecast.Resolve(paths.Key{Kind: paths.KindBetaScaling, Scenario: scenario, Draw: set.Draw})
	if err != nil {
		return err
	}
	return batch.Stage(path, 0o644, csvio.Writer(scaling.Columns, set.Rows()))
}

// LoadBetaScales reads a persisted draw of beta scaling records.
func (d *Interface) LoadBetaScales(scenario string, draw int) (scaling.RecordSet, error) {
	path, err := d.Forecast.Resolve(paths.Key{Kind: paths.KindBetaScaling, Scenario: scenario, Draw: draw})
	if err != nil {
		return scaling.RecordSet{}, err
	}
	frame, err := csvio.ReadFile(path)
	if err != nil {
		return scaling.RecordSet{}, err
	}
	return scaling.ParseRecordSet(frame, draw)
}

// LoadOutputs reads one draw's forecast outputs sorted by location and date.
func (d *Interface) LoadOutputs(scenario string, draw int) ([]OutputRow, error) {
	path, err := d.Forecast.Resolve(paths.Key{Kind: paths.KindOutputs, Scenario: scenario, Draw: draw})
	if err != nil {
		return nil, err
	}
	frame, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cols := make([]int, 5)
	for i, name := range []string{"location_id", "date", "deaths", "infections", "r_effective"} {
		if cols[i], err = frame.Column(name); err != nil {
			return nil, err
		}
	}
	rows := make([]OutputRow, 0, frame.Len())
	for row := 0; row < frame.Len(); row++ {
		var r OutputRow
		if r.Location, err = frame.Int(row, cols[0]); err != nil {
			return nil, err
		}
		if r.Date, err = frame.Date(row, cols[1]); err != nil {
			return nil, err
		}
		if r.Deaths, err = frame.Float(row, cols[2]); err != nil {
			return nil, err
		}
		if r.Infections, err = frame.Float(row, cols[3]); err != nil {
			return nil, err
		}
		if r.REffective, err = frame.Float(row, cols[4]); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	slices.SortStableFunc(rows, func(a, b OutputRow) int {
		if a.Location != b.Location {
			return a.Location - b.Location
		}
		return a.Date.Compare(b.Date)
	})
	return rows, nil
}

// StageMeasure writes a draw-wide measure table into batch.
func (d *Interface) StageMeasure(batch *fileutil.Batch, scenario, measure string, header []string, rows [][]string) error {
	if !slices.Contains(Measures, measure) {
		return fmt.Errorf("forecastdata: unknown measure %q", measure)
	}
	path, err := d.Forecast.Resolve(paths.Key{Kind: paths.KindMeasure, Scenario: scenario, Measure: measure})
	if err != nil {
		return err
	}
	return batch.Stage(path, 0o644, csvio.Writer(header, rows))
}

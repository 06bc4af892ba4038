package scaling

import (
	"fmt"
	"math"

	"seiir/internal/csvio"
	"seiir/internal/failure"
)

// Columns is the header of a persisted beta scaling file.
var Columns = []string{
	"location_id",
	"deaths",
	"window_size",
	"fit_final",
	"pred_start",
	"scale_init",
	"history_days_start",
	"history_days_end",
	"log_beta_residual_mean",
	"draw",
	"log_beta_residual_mean_offset",
	"log_beta_residual_mean_adjusted",
	"scale_final",
}

// Rows renders the set with one row per record. Adjustment columns are left
// empty on records that were never adjusted.
func (s RecordSet) Rows() [][]string {
	rows := make([][]string, 0, len(s.Records))
	for _, r := range s.Records {
		offset, adjusted, scale := math.NaN(), math.NaN(), math.NaN()
		if r.Adjusted {
			offset, adjusted, scale = r.Offset, r.AdjustedLogBetaResidualMean, r.ScaleFinal
		}
		rows = append(rows, []string{
			csvio.FormatInt(r.Location),
			csvio.FormatFloat(r.Deaths),
			csvio.FormatInt(r.WindowSize),
			csvio.FormatFloat(r.FitFinal),
			csvio.FormatFloat(r.PredStart),
			csvio.FormatFloat(r.ScaleInit),
			csvio.FormatInt(r.HistoryDaysStart),
			csvio.FormatInt(r.HistoryDaysEnd),
			csvio.FormatFloat(r.LogBetaResidualMean),
			csvio.FormatInt(r.Draw),
			csvio.FormatFloat(offset),
			csvio.FormatFloat(adjusted),
			csvio.FormatFloat(scale),
		})
	}
	return rows
}

// ParseRecordSet reads a beta scaling frame back into records. All rows must
// belong to draw.
func ParseRecordSet(frame *csvio.Frame, draw int) (RecordSet, error) {
	cols := make(map[string]int, len(Columns))
	for _, name := range Columns {
		idx, err := frame.Column(name)
		if err != nil {
			return RecordSet{}, err
		}
		cols[name] = idx
	}

	set := RecordSet{Draw: draw, Records: make([]Record, 0, frame.Len())}
	for row := 0; row < frame.Len(); row++ {
		var err error
		intAt := func(name string) int {
			if err != nil {
				return 0
			}
			var v int
			v, err = frame.Int(row, cols[name])
			return v
		}
		floatAt := func(name string) float64 {
			if err != nil {
				return 0
			}
			var v float64
			v, err = frame.Float(row, cols[name])
			return v
		}

		r := Record{
			Location:            intAt("location_id"),
			Deaths:              floatAt("deaths"),
			WindowSize:          intAt("window_size"),
			FitFinal:            floatAt("fit_final"),
			PredStart:           floatAt("pred_start"),
			ScaleInit:           floatAt("scale_init"),
			HistoryDaysStart:    intAt("history_days_start"),
			HistoryDaysEnd:      intAt("history_days_end"),
			LogBetaResidualMean: floatAt("log_beta_residual_mean"),
			Draw:                intAt("draw"),
		}
		offset := floatAt("log_beta_residual_mean_offset")
		adjusted := floatAt("log_beta_residual_mean_adjusted")
		scale := floatAt("scale_final")
		if err != nil {
			return RecordSet{}, err
		}
		if r.Draw != draw {
			return RecordSet{}, failure.Wrap(failure.ErrConsistency, "scaling", "parse records",
				fmt.Sprintf("%s: row %d belongs to draw %d, expected %d", frame.Source, row+2, r.Draw, draw), nil)
		}
		if !math.IsNaN(offset) {
			r.Adjusted = true
			r.Offset = offset
			r.AdjustedLogBetaResidualMean = adjusted
			r.ScaleFinal = scale
		}
		set.Records = append(set.Records, r)
	}
	return set, nil
}

package postprocess

import (
	"fmt"
	"math"
	"slices"
	"time"

	"seiir/internal/csvio"
	"seiir/internal/failure"
	"seiir/internal/forecastdata"
)

// Key identifies one row of a measure table.
type Key struct {
	Location int
	Date     time.Time
}

func compareKeys(a, b Key) int {
	if a.Location != b.Location {
		return a.Location - b.Location
	}
	return a.Date.Compare(b.Date)
}

// Table is one measure across all draws. Values[i][draw] is NaN where a draw
// has no row for Keys[i].
type Table struct {
	Measure string
	Draws   int
	Keys    []Key
	Values  [][]float64
}

// Header returns the CSV header: location_id, date, draw_0..draw_{N-1}.
func (t Table) Header() []string {
	header := make([]string, 0, t.Draws+2)
	header = append(header, "location_id", "date")
	for draw := 0; draw < t.Draws; draw++ {
		header = append(header, fmt.Sprintf("draw_%d", draw))
	}
	return header
}

// Rows renders the table for csvio.
func (t Table) Rows() [][]string {
	rows := make([][]string, len(t.Keys))
	for i, key := range t.Keys {
		row := make([]string, 0, len(t.Values[i])+2)
		row = append(row, csvio.FormatInt(key.Location), csvio.FormatDate(key.Date))
		for _, value := range t.Values[i] {
			row = append(row, csvio.FormatFloat(value))
		}
		rows[i] = row
	}
	return rows
}

// Concat joins every draw's series of measure on (location, date). Keys
// present in only some draws are kept with NaN in the others.
func Concat(measure string, draws [][]forecastdata.OutputRow) (Table, error) {
	seen := make(map[Key]int)
	var keys []Key
	for _, rows := range draws {
		for _, row := range rows {
			key := Key{Location: row.Location, Date: row.Date}
			if _, ok := seen[key]; !ok {
				seen[key] = 0
				keys = append(keys, key)
			}
		}
	}
	slices.SortFunc(keys, compareKeys)
	for i, key := range keys {
		seen[key] = i
	}

	values := make([][]float64, len(keys))
	for i := range values {
		values[i] = make([]float64, len(draws))
		for draw := range values[i] {
			values[i][draw] = math.NaN()
		}
	}
	for draw, rows := range draws {
		filled := make(map[int]bool, len(rows))
		for _, row := range rows {
			value, ok := row.Value(measure)
			if !ok {
				return Table{}, failure.Wrap(failure.ErrValidation, "postprocess", "concat",
					fmt.Sprintf("unknown measure %q", measure), nil)
			}
			i := seen[Key{Location: row.Location, Date: row.Date}]
			if filled[i] {
				return Table{}, failure.Wrap(failure.ErrConsistency, "postprocess", "concat",
					fmt.Sprintf("draw %d has duplicate row for location %d on %s",
						draw, row.Location, csvio.FormatDate(row.Date)), nil)
			}
			filled[i] = true
			values[i][draw] = value
		}
	}
	return Table{Measure: measure, Draws: len(draws), Keys: keys, Values: values}, nil
}

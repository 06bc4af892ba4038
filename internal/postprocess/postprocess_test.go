package postprocess_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seiir/internal/csvio"
	"seiir/internal/failure"
	"seiir/internal/forecastdata"
	"seiir/internal/logging"
	"seiir/internal/paths"
	"seiir/internal/postprocess"
	"seiir/internal/testsupport"
)

func day(n int) time.Time {
	return testsupport.FixtureStart.AddDate(0, 0, n)
}

func TestConcatOuterJoinsDraws(t *testing.T) {
	draws := [][]forecastdata.OutputRow{
		{
			{Location: 2, Date: day(0), Deaths: 1},
			{Location: 1, Date: day(1), Deaths: 2},
		},
		{
			{Location: 1, Date: day(1), Deaths: 3},
			{Location: 1, Date: day(0), Deaths: 4},
		},
	}
	table, err := postprocess.Concat("deaths", draws)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	wantKeys := []postprocess.Key{
		{Location: 1, Date: day(0)},
		{Location: 1, Date: day(1)},
		{Location: 2, Date: day(0)},
	}
	if diff := cmp.Diff(wantKeys, table.Keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if table.Draws != 2 {
		t.Fatalf("Draws = %d, want 2", table.Draws)
	}
	wantRows := [][]string{
		{"1", "2020-03-01", "", "4"},
		{"1", "2020-03-02", "2", "3"},
		{"2", "2020-03-01", "1", ""},
	}
	if diff := cmp.Diff(wantRows, table.Rows()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if !math.IsNaN(table.Values[0][0]) {
		t.Fatalf("expected NaN for missing row, got %v", table.Values[0][0])
	}
	if diff := cmp.Diff([]string{"location_id", "date", "draw_0", "draw_1"}, table.Header()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestConcatRejectsBadInput(t *testing.T) {
	duplicate := [][]forecastdata.OutputRow{{
		{Location: 1, Date: day(0)},
		{Location: 1, Date: day(0)},
	}}
	if _, err := postprocess.Concat("deaths", duplicate); !errors.Is(err, failure.ErrConsistency) {
		t.Fatalf("expected consistency error for duplicate row, got %v", err)
	}
	if got := failure.Kind(mustConcatErr(t, "deaths", duplicate)); got != failure.Kind(failure.ErrConsistency) {
		t.Fatalf("duplicate row classified as %q", got)
	}
	if _, err := postprocess.Concat("hospitalizations", [][]forecastdata.OutputRow{{{Location: 1, Date: day(0)}}}); !errors.Is(err, failure.ErrValidation) {
		t.Fatalf("expected validation error for unknown measure, got %v", err)
	}
}

func mustConcatErr(t *testing.T, measure string, draws [][]forecastdata.OutputRow) error {
	t.Helper()
	_, err := postprocess.Concat(measure, draws)
	if err == nil {
		t.Fatal("expected Concat to fail")
	}
	return err
}

func TestRunWritesMeasureTables(t *testing.T) {
	const days = 4
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	for _, scenario := range f.ScenarioNames() {
		f.WriteOutputs(t, scenario, days)
	}
	data, err := forecastdata.FromSpecification(f.Spec)
	if err != nil {
		t.Fatalf("FromSpecification: %v", err)
	}
	store := testsupport.MustOpenLedger(t, testsupport.NewConfig(t))

	result, err := postprocess.Run(context.Background(), postprocess.Options{
		Data:           data,
		OutputWorkers:  2,
		MeasureWorkers: 3,
		Logger:         logging.NewNop(),
		Ledger:         store,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Scenarios) != 2 || result.Scenarios[0].Scenario != "reference" || result.Scenarios[1].Scenario != "worse" {
		t.Fatalf("unexpected scenarios: %#v", result.Scenarios)
	}
	if got := result.Scenarios[0].Rows["r_effective"]; got != len(f.Locations)*days {
		t.Fatalf("r_effective rows = %d, want %d", got, len(f.Locations)*days)
	}

	for _, scenario := range f.ScenarioNames() {
		frame, err := csvio.ReadFile(filepath.Join(f.ForecastDir, scenario, "postprocessing", "deaths.csv"))
		if err != nil {
			t.Fatalf("read deaths table: %v", err)
		}
		if diff := cmp.Diff([]string{"location_id", "date", "draw_0", "draw_1", "draw_2"}, frame.Header); diff != "" {
			t.Fatalf("header mismatch (-want +got):\n%s", diff)
		}
		if frame.Len() != len(f.Locations)*days {
			t.Fatalf("rows = %d, want %d", frame.Len(), len(f.Locations)*days)
		}
		// Rows are sorted by location then date.
		row := 0
		for _, location := range []int{102, 523} {
			for d := 0; d < days; d++ {
				gotLocation, err := frame.Int(row, 0)
				if err != nil || gotLocation != location {
					t.Fatalf("row %d location = %d (%v), want %d", row, gotLocation, err, location)
				}
				for draw := 0; draw < f.Draws; draw++ {
					want, _, _ := testsupport.OutputValues(location, draw, d)
					got, err := frame.Float(row, 2+draw)
					if err != nil || got != want {
						t.Fatalf("row %d draw %d = %v (%v), want %v", row, draw, got, err, want)
					}
				}
				row++
			}
		}
	}

	recorded, err := store.Get(context.Background(), result.RunID)
	if err != nil || recorded == nil {
		t.Fatalf("Get: %v", err)
	}
	if recorded.Command != postprocess.CommandName || recorded.Draws != f.Draws {
		t.Fatalf("unexpected ledger run: %#v", recorded)
	}
}

func TestRunMissingDrawFails(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	f.WriteOutputs(t, "reference", 2)
	if err := os.Remove(filepath.Join(f.ForecastDir, "reference", "outputs", paths.DrawFile(1))); err != nil {
		t.Fatalf("remove: %v", err)
	}
	data, err := forecastdata.FromSpecification(f.Spec)
	if err != nil {
		t.Fatalf("FromSpecification: %v", err)
	}
	_, err = postprocess.Run(context.Background(), postprocess.Options{
		Data:           data,
		OutputWorkers:  2,
		MeasureWorkers: 1,
	})
	if !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.ForecastDir, "reference", "postprocessing", "deaths.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no measure table, stat err=%v", err)
	}
}

func TestRunSelectsScenarios(t *testing.T) {
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	f.WriteOutputs(t, "worse", 1)
	data, err := forecastdata.FromSpecification(f.Spec)
	if err != nil {
		t.Fatalf("FromSpecification: %v", err)
	}
	result, err := postprocess.Run(context.Background(), postprocess.Options{
		Data:           data,
		Scenarios:      []string{"worse"},
		OutputWorkers:  1,
		MeasureWorkers: 1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Scenarios) != 1 || result.Scenarios[0].Scenario != "worse" {
		t.Fatalf("unexpected scenarios: %#v", result.Scenarios)
	}
	if _, err := postprocess.Run(context.Background(), postprocess.Options{
		Data:           data,
		Scenarios:      []string{"better"},
		OutputWorkers:  1,
		MeasureWorkers: 1,
	}); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected not found for unknown scenario, got %v", err)
	}
}

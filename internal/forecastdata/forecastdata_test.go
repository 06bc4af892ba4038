package forecastdata_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seiir/internal/failure"
	"seiir/internal/fileutil"
	"seiir/internal/forecastdata"
	"seiir/internal/scaling"
	"seiir/internal/testsupport"
)

func openFixture(t *testing.T, f *testsupport.Fixture) *forecastdata.Interface {
	t.Helper()
	data, err := forecastdata.FromSpecification(f.Spec)
	if err != nil {
		t.Fatalf("FromSpecification: %v", err)
	}
	return data
}

func TestRegressionInputs(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	data := openFixture(t, f)

	if data.DrawCount() != 3 {
		t.Fatalf("expected 3 draws, got %d", data.DrawCount())
	}
	locations, err := data.LocationIDs()
	if err != nil {
		t.Fatalf("LocationIDs: %v", err)
	}
	if diff := cmp.Diff(f.Locations, locations); diff != "" {
		t.Fatalf("locations (-want +got):\n%s", diff)
	}

	dates, err := data.TransitionDates(1)
	if err != nil {
		t.Fatalf("TransitionDates: %v", err)
	}
	want := testsupport.FixtureStart.AddDate(0, 0, f.TransitionIndex(1))
	for _, location := range f.Locations {
		if !dates[location].Equal(want) {
			t.Fatalf("location %d transition %v, want %v", location, dates[location], want)
		}
	}

	beta, err := data.BetaRegression(1)
	if err != nil {
		t.Fatalf("BetaRegression: %v", err)
	}
	if got, want := len(beta), len(f.Locations)*(f.TransitionIndex(1)+11); got != want {
		t.Fatalf("expected %d beta rows, got %d", want, got)
	}
}

func TestTotalDeathsCountsObservedRows(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	data := openFixture(t, f)

	totals, err := data.TotalDeaths(f.Locations)
	if err != nil {
		t.Fatalf("TotalDeaths: %v", err)
	}
	if diff := cmp.Diff(f.Deaths, totals); diff != "" {
		t.Fatalf("totals (-want +got):\n%s", diff)
	}

	if _, err := data.TotalDeaths([]int{999}); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected unknown location to be not found, got %v", err)
	}
}

func TestTotalDeathsAmbiguousLocationDirectory(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	if err := os.MkdirAll(filepath.Join(f.InfectionDir, "Duplicate_523"), 0o755); err != nil {
		t.Fatal(err)
	}
	data := openFixture(t, f)
	if _, err := data.TotalDeaths([]int{523}); !errors.Is(err, failure.ErrAmbiguous) {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestOpenVersionUsesStoredSpecification(t *testing.T) {
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	f.WriteForecastSpecification(t)

	data, err := forecastdata.OpenVersion(f.ForecastDir)
	if err != nil {
		t.Fatalf("OpenVersion: %v", err)
	}
	if diff := cmp.Diff([]string{"reference", "worse"}, data.Forecast.Scenarios()); diff != "" {
		t.Fatalf("scenarios (-want +got):\n%s", diff)
	}
	if _, _, err := data.Scenario("best"); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected unknown scenario to be not found, got %v", err)
	}
	if _, err := forecastdata.OpenVersion(t.TempDir()); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected missing specification to be not found, got %v", err)
	}
}

func TestMakeDirsAndDumpSpecification(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	data := openFixture(t, f)
	if err := data.MakeDirs(); err != nil {
		t.Fatalf("MakeDirs: %v", err)
	}
	if err := data.DumpSpecification(); err != nil {
		t.Fatalf("DumpSpecification: %v", err)
	}
	for _, dir := range []string{"beta_scaling", "component_draws", "outputs", "postprocessing"} {
		if info, err := os.Stat(filepath.Join(f.ForecastDir, "reference", dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.ForecastDir, forecastdata.SpecificationFile)); err != nil {
		t.Fatalf("expected dumped specification: %v", err)
	}
}

func TestBetaScalesRoundTrip(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	data := openFixture(t, f)

	set := scaling.RecordSet{Draw: 1, Records: []scaling.Record{
		{Location: 102, Deaths: 500, WindowSize: 42, FitFinal: 0.3, PredStart: 0.25, ScaleInit: 1.2,
			HistoryDaysStart: 2, HistoryDaysEnd: 11, LogBetaResidualMean: 0.125, Draw: 1,
			Adjusted: true, Offset: 0, AdjustedLogBetaResidualMean: 0.125, ScaleFinal: math.Exp(0.125)},
	}}
	var batch fileutil.Batch
	if err := data.StageBetaScales(&batch, "reference", set); err != nil {
		t.Fatalf("StageBetaScales: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := data.LoadBetaScales("reference", 1)
	if err != nil {
		t.Fatalf("LoadBetaScales: %v", err)
	}
	if diff := cmp.Diff(set, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
	if _, err := data.LoadBetaScales("reference", 2); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected missing draw to be not found, got %v", err)
	}
}

func TestLoadOutputsSortsRows(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	f.WriteOutputs(t, "reference", 4)
	data := openFixture(t, f)

	rows, err := data.LoadOutputs("reference", 2)
	if err != nil {
		t.Fatalf("LoadOutputs: %v", err)
	}
	if len(rows) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(rows))
	}
	if rows[0].Location != 102 || rows[4].Location != 523 || !rows[1].Date.After(rows[0].Date) {
		t.Fatalf("rows not sorted by location and date: %+v", rows[:2])
	}
	deaths, infections, r := testsupport.OutputValues(523, 2, 3)
	last := rows[7]
	if last.Deaths != deaths || last.Infections != infections || last.REffective != r {
		t.Fatalf("unexpected values %+v", last)
	}
}

func TestCheckCovariates(t *testing.T) {
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	data := openFixture(t, f)
	if err := data.CheckCovariates(); err != nil {
		t.Fatalf("CheckCovariates: %v", err)
	}

	f.Spec.Scenarios[1].Covariates["mobility"] = "best"
	if err := data.CheckCovariates(); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected missing covariate scenario to be not found, got %v", err)
	}

	f.Spec.Scenarios[1].Covariates = map[string]string{"testing": "worse"}
	if err := data.CheckCovariates(); !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected missing covariate directory to be not found, got %v", err)
	}
}

func TestLoadCovariateSplitsAtTransition(t *testing.T) {
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	data := openFixture(t, f)

	set, err := data.LoadCovariate("mobility", []int{523}, 0, false)
	if err != nil {
		t.Fatalf("LoadCovariate: %v", err)
	}
	// Fixture rows span the cutoff by two days on each side.
	if len(set.Regression) != 3 {
		t.Fatalf("expected 3 regression rows, got %d", len(set.Regression))
	}
	for _, scenario := range []string{"reference", "worse"} {
		if got := len(set.Scenarios[scenario]); got != 3 {
			t.Fatalf("%s: expected 3 forward rows, got %d", scenario, got)
		}
	}
	for _, row := range set.Regression {
		if row.Location != 523 {
			t.Fatalf("location filter ignored: %+v", row)
		}
	}
}

func TestLoadCovariateRejectsDivergentRegressionData(t *testing.T) {
	f := testsupport.NewForecastFixture(t, testsupport.WithScenarios("reference", "worse"))
	testsupport.WriteText(t, filepath.Join(f.CovariateDir, "mobility", "worse_scenario.csv"),
		"location_id,mobility_worse\n102,0.5\n523,0.7\n")
	testsupport.WriteText(t, filepath.Join(f.CovariateDir, "mobility", "reference_scenario.csv"),
		"location_id,mobility_reference\n102,0.5\n523,0.6\n")
	data := openFixture(t, f)

	if _, err := data.LoadCovariate("mobility", f.Locations, 0, false); !errors.Is(err, failure.ErrConsistency) {
		t.Fatalf("expected consistency error, got %v", err)
	}
}

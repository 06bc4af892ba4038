package testsupport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seiir/internal/paths"
	"seiir/internal/specification"
)

// FixtureStart is the first date of every synthetic series.
var FixtureStart = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

// Fixture is a complete set of upstream roots plus a forecast version root.
type Fixture struct {
	Root          string
	RegressionDir string
	InfectionDir  string
	CovariateDir  string
	ForecastDir   string

	Locations []int
	Draws     int
	// Deaths is the observed death total per location.
	Deaths map[int]float64
	// HistoryDays is the number of fitted days before the transition date of draw 0.
	HistoryDays int
	Spec        *specification.Forecast
}

// FixtureOption customizes a Fixture before files are written.
type FixtureOption func(*Fixture)

// WithLocations sets the location set and each location's observed deaths.
func WithLocations(deaths map[int]float64, order ...int) FixtureOption {
	return func(f *Fixture) {
		f.Locations = order
		f.Deaths = deaths
	}
}

// WithDraws sets the number of draws.
func WithDraws(n int) FixtureOption {
	return func(f *Fixture) { f.Draws = n }
}

// WithBetaScaling sets the beta scaling block of every scenario.
func WithBetaScaling(b specification.BetaScaling) FixtureOption {
	return func(f *Fixture) {
		for i := range f.Spec.Scenarios {
			f.Spec.Scenarios[i].BetaScaling = b
		}
	}
}

// WithScenarios replaces the scenario list. Each scenario reads the mobility
// covariate scenario of the same name.
func WithScenarios(names ...string) FixtureOption {
	return func(f *Fixture) {
		scaling := f.Spec.Scenarios[0].BetaScaling
		f.Spec.Scenarios = nil
		for _, name := range names {
			f.Spec.Scenarios = append(f.Spec.Scenarios, specification.Scenario{
				Name:        name,
				Covariates:  map[string]string{"mobility": name},
				BetaScaling: scaling,
			})
		}
	}
}

// NewForecastFixture writes regression, infection and covariate roots and a
// forecast specification into a temp directory. The forecast root itself is
// not created.
func NewForecastFixture(t testing.TB, opts ...FixtureOption) *Fixture {
	t.Helper()

	root := t.TempDir()
	f := &Fixture{
		Root:          root,
		RegressionDir: filepath.Join(root, "regression"),
		InfectionDir:  filepath.Join(root, "infections"),
		CovariateDir:  filepath.Join(root, "covariates"),
		ForecastDir:   filepath.Join(root, "forecast"),
		Locations:     []int{102, 523},
		Draws:         3,
		Deaths:        map[int]float64{102: 500, 523: 50},
		HistoryDays:   60,
	}
	f.Spec = &specification.Forecast{
		Data: specification.ForecastData{
			RegressionVersion: f.RegressionDir,
			CovariateVersion:  f.CovariateDir,
			OutputRoot:        f.ForecastDir,
		},
		Scenarios: specification.Scenarios{{
			Name:       "reference",
			Covariates: map[string]string{"mobility": "reference"},
			BetaScaling: specification.BetaScaling{
				WindowSize:        42,
				AverageOverMin:    7,
				AverageOverMax:    42,
				OffsetDeathsLower: 20,
				OffsetDeathsUpper: 100,
			},
		}},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.writeRegression(t)
	f.writeInfections(t)
	f.writeCovariates(t)
	return f
}

// TransitionIndex is the day index of location's transition date in draw.
// It varies with the draw the way upstream lag sampling does.
func (f *Fixture) TransitionIndex(draw int) int {
	return f.HistoryDays - 1 + draw%3
}

// LogResidual is the constant log(beta/beta_pred) of location in draw.
func (f *Fixture) LogResidual(location, draw int) float64 {
	for i, l := range f.Locations {
		if l == location {
			return 0.1*float64(i+1) - 0.02*float64(draw)
		}
	}
	return 0
}

// ScenarioNames returns the fixture's scenario names.
func (f *Fixture) ScenarioNames() []string {
	return f.Spec.Scenarios.Names()
}

// WriteForecastSpecification stores the specification in the forecast root.
func (f *Fixture) WriteForecastSpecification(t testing.TB) string {
	t.Helper()
	path := filepath.Join(f.ForecastDir, "forecast_specification.yaml")
	if err := f.Spec.Dump(path); err != nil {
		t.Fatalf("dump forecast specification: %v", err)
	}
	return path
}

// WriteOutputs writes outputs/draw_N.csv for every draw of scenario. Values
// encode location, draw and day so concatenations can be checked exactly.
func (f *Fixture) WriteOutputs(t testing.TB, scenario string, days int) {
	t.Helper()
	for draw := 0; draw < f.Draws; draw++ {
		var b strings.Builder
		b.WriteString("location_id,date,deaths,infections,r_effective\n")
		// Reverse location order to check that readers sort.
		for i := len(f.Locations) - 1; i >= 0; i-- {
			location := f.Locations[i]
			for day := 0; day < days; day++ {
				d, inf, r := OutputValues(location, draw, day)
				fmt.Fprintf(&b, "%d,%s,%v,%v,%v\n", location, FixtureStart.AddDate(0, 0, day).Format("2006-01-02"), d, inf, r)
			}
		}
		path := filepath.Join(f.ForecastDir, scenario, "outputs", paths.DrawFile(draw))
		WriteText(t, path, b.String())
	}
}

// OutputValues returns the synthetic deaths, infections and R effective.
func OutputValues(location, draw, day int) (deaths, infections, rEffective float64) {
	base := float64(location*1000 + day)
	return base + float64(draw), base*10 + float64(draw), 1 + float64(draw)/10
}

func (f *Fixture) writeRegression(t testing.TB) {
	t.Helper()
	var locations strings.Builder
	for _, location := range f.Locations {
		fmt.Fprintf(&locations, "- %d\n", location)
	}
	WriteText(t, filepath.Join(f.RegressionDir, "locations.yaml"), locations.String())
	WriteText(t, filepath.Join(f.RegressionDir, "regression_specification.yaml"), fmt.Sprintf(
		"data:\n  infection_version: %s\n  covariate_version: %s\n  output_root: %s\nparameters:\n  n_draws: %d\n",
		f.InfectionDir, f.CovariateDir, f.RegressionDir, f.Draws))

	for draw := 0; draw < f.Draws; draw++ {
		transition := f.TransitionIndex(draw)
		var dates, beta strings.Builder
		dates.WriteString("loc_id,end_date\n")
		beta.WriteString("location_id,date,beta,beta_pred\n")
		for _, location := range f.Locations {
			fmt.Fprintf(&dates, "%d,%s\n", location, FixtureStart.AddDate(0, 0, transition).Format("2006-01-02"))
			ratio := math.Exp(f.LogResidual(location, draw))
			// Forecast days past the transition carry a different ratio.
			for day := 0; day <= transition+10; day++ {
				pred := 0.25
				value := pred * ratio
				if day > transition {
					value = pred * 3
				}
				fmt.Fprintf(&beta, "%d,%s,%v,%v\n", location, FixtureStart.AddDate(0, 0, day).Format("2006-01-02"), value, pred)
			}
		}
		WriteText(t, filepath.Join(f.RegressionDir, "dates", paths.DrawFile(draw)), dates.String())
		WriteText(t, filepath.Join(f.RegressionDir, "beta", paths.DrawFile(draw)), beta.String())
	}
}

func (f *Fixture) writeInfections(t testing.TB) {
	t.Helper()
	for _, location := range f.Locations {
		dir := filepath.Join(f.InfectionDir, fmt.Sprintf("Location %d_%d", location, location))
		var b strings.Builder
		b.WriteString("location_id,date,deaths,obs_deaths\n")
		total := f.Deaths[location]
		// Two observed rows summing to the total plus one unobserved row.
		fmt.Fprintf(&b, "%d,2020-03-01,%v,1\n", location, total/4)
		fmt.Fprintf(&b, "%d,2020-03-02,%v,1\n", location, total-total/4)
		fmt.Fprintf(&b, "%d,2020-03-03,%v,0\n", location, 1e6)
		WriteText(t, filepath.Join(dir, paths.InfectionFile(0)), b.String())
	}
}

func (f *Fixture) writeCovariates(t testing.TB) {
	t.Helper()
	dir := filepath.Join(f.CovariateDir, "mobility")
	cutoff := f.TransitionIndex(0)
	for _, scenario := range f.ScenarioNames() {
		var b strings.Builder
		fmt.Fprintf(&b, "location_id,date,mobility_%s\n", scenario)
		for _, location := range f.Locations {
			for day := cutoff - 2; day <= cutoff+2; day++ {
				value := float64(location) + float64(day)/100
				if day > cutoff {
					value += float64(len(scenario))
				}
				fmt.Fprintf(&b, "%d,%s,%v\n", location, FixtureStart.AddDate(0, 0, day).Format("2006-01-02"), value)
			}
		}
		WriteText(t, filepath.Join(dir, paths.CovariateScenarioFile(scenario)), b.String())
	}
	WriteText(t, filepath.Join(dir, "mobility_info.csv"), "location_id,source\n102,google\n")
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

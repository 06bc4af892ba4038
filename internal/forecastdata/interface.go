package forecastdata

import (
	"fmt"
	"path/filepath"
	"strings"

	"seiir/internal/failure"
	"seiir/internal/paths"
	"seiir/internal/specification"
)

// SpecificationFile is the forecast specification's name inside a forecast
// version root.
const SpecificationFile = "forecast_specification.yaml"

// Interface reads and writes forecast artifacts.
type Interface struct {
	Spec           *specification.Forecast
	RegressionSpec *specification.Regression
	Regression     *paths.RegressionPaths
	Covariates     *paths.CovariatePaths
	Infections     *paths.InfectionPaths
	Forecast       *paths.ForecastPaths
}

// FromSpecification opens every root named by spec.
func FromSpecification(spec *specification.Forecast) (*Interface, error) {
	if spec == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "forecastdata", "open", "forecast specification is required", nil)
	}
	regression := paths.NewRegressionPaths(spec.Data.RegressionVersion, true)
	regressionSpec, err := specification.LoadRegression(regression.SpecificationFile())
	if err != nil {
		return nil, fmt.Errorf("forecastdata: load regression specification: %w", err)
	}
	if regressionSpec.Data.InfectionVersion == "" {
		return nil, failure.Wrap(failure.ErrConfiguration, "forecastdata", "open",
			fmt.Sprintf("%s: data.infection_version is empty", regression.SpecificationFile()), nil)
	}
	infections, err := paths.NewInfectionPaths(regressionSpec.Data.InfectionVersion, true)
	if err != nil {
		return nil, err
	}
	var covariates *paths.CovariatePaths
	if spec.Data.CovariateVersion != "" {
		covariates, err = paths.NewCovariatePaths(spec.Data.CovariateVersion, true)
		if err != nil {
			return nil, err
		}
	}
	forecast, err := paths.NewForecastPaths(spec.Data.OutputRoot, false, spec.Scenarios.Names()...)
	if err != nil {
		return nil, err
	}
	return &Interface{
		Spec:           spec,
		RegressionSpec: regressionSpec,
		Regression:     regression,
		Covariates:     covariates,
		Infections:     infections,
		Forecast:       forecast,
	}, nil
}

// OpenVersion loads the specification stored in a forecast version root and
// opens its data roots. The forecast root is dir itself.
func OpenVersion(dir string) (*Interface, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, failure.Wrap(failure.ErrConfiguration, "forecastdata", "open", "forecast version is required", nil)
	}
	spec, err := specification.LoadForecast(filepath.Join(dir, SpecificationFile))
	if err != nil {
		return nil, err
	}
	spec.Data.OutputRoot = dir
	return FromSpecification(spec)
}

// DrawCount returns the number of draws fitted by the regression.
func (d *Interface) DrawCount() int {
	return d.RegressionSpec.Parameters.NDraws
}

// LocationIDs returns the regression's location set.
func (d *Interface) LocationIDs() ([]int, error) {
	return specification.LoadLocations(d.Regression.LocationMetadataFile())
}

// Scenario returns the named scenario's specification and directory layout.
func (d *Interface) Scenario(name string) (specification.Scenario, *paths.ScenarioPaths, error) {
	scenario, err := d.Spec.Scenarios.Lookup(name)
	if err != nil {
		return specification.Scenario{}, nil, err
	}
	layout, err := d.Forecast.Scenario(name)
	if err != nil {
		return specification.Scenario{}, nil, err
	}
	return scenario, layout, nil
}

// MakeDirs creates the forecast root's scenario directories.
func (d *Interface) MakeDirs() error {
	return d.Forecast.MakeDirs()
}

// DumpSpecification writes the forecast specification into the forecast root.
func (d *Interface) DumpSpecification() error {
	return d.Spec.Dump(d.Forecast.SpecificationFile())
}

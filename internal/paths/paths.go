package paths

import (
	"fmt"
	"os"
	"strings"

	"seiir/internal/failure"
)

// Role identifies which kind of data root a Layout describes.
type Role string

const (
	RoleRegression Role = "regression"
	RoleCovariate  Role = "covariate"
	RoleForecast   Role = "forecast"
	RoleScenario   Role = "scenario"
	RoleInfection  Role = "infection"
)

// Kind names an artifact family within a root.
type Kind string

const (
	KindBetaScaling             Kind = "beta_scaling"
	KindComponents              Kind = "components"
	KindOutputs                 Kind = "outputs"
	KindMeasure                 Kind = "measure"
	KindBetaParameters          Kind = "beta_parameters"
	KindDates                   Kind = "dates"
	KindBetaRegression          Kind = "beta_regression"
	KindCoefficients            Kind = "coefficients"
	KindRegressionData          Kind = "regression_data"
	KindLocationMetadata        Kind = "location_metadata"
	KindRegressionSpecification Kind = "regression_specification"
	KindForecastSpecification   Kind = "forecast_specification"
	KindInfection               Kind = "infection"
	KindCovariateScenario       Kind = "covariate_scenario"
)

const (
	drawFileTemplate      = "draw_%d.csv"
	infectionFileTemplate = "draw%04d_prepped_deaths_and_cases_all_age.csv"
	scenarioFileSuffix    = "_scenario.csv"
	measureFileTemplate   = "%s.csv"
)

// Key addresses one artifact. Only the fields relevant to Kind are read.
type Key struct {
	Kind      Kind
	Draw      int
	Location  int
	Scenario  string
	Covariate string
	Measure   string
}

// Layout is the capability shared by every data root.
type Layout interface {
	Role() Role
	Root() string
	ReadOnly() bool
	// Directories returns every directory the layout owns, in creation order.
	Directories() []string
	// Resolve maps a key to its file path.
	Resolve(Key) (string, error)
	// MakeDirs creates Directories. It fails with failure.ErrConfiguration on
	// read-only roots.
	MakeDirs() error
}

// Open builds the Layout for role rooted at dir.
func Open(role Role, dir string, readOnly bool, scenarios ...string) (Layout, error) {
	switch role {
	case RoleRegression:
		return NewRegressionPaths(dir, readOnly), nil
	case RoleCovariate:
		return NewCovariatePaths(dir, readOnly)
	case RoleForecast:
		return NewForecastPaths(dir, readOnly, scenarios...)
	case RoleScenario:
		return NewScenarioPaths(dir, readOnly), nil
	case RoleInfection:
		return NewInfectionPaths(dir, readOnly)
	default:
		return nil, failure.Wrap(failure.ErrConfiguration, "paths", "open", fmt.Sprintf("unknown root role %q", role), nil)
	}
}

// DrawFile returns the per-draw file name shared by every draw-keyed artifact.
func DrawFile(draw int) string {
	return fmt.Sprintf(drawFileTemplate, draw)
}

// InfectionFile returns the per-draw infection file name.
func InfectionFile(draw int) string {
	return fmt.Sprintf(infectionFileTemplate, draw)
}

// CovariateScenarioFile returns the file name of a covariate scenario.
func CovariateScenarioFile(scenario string) string {
	return scenario + scenarioFileSuffix
}

type base struct {
	root     string
	readOnly bool
}

func (b base) Root() string { return b.root }
func (b base) ReadOnly() bool { return b.readOnly }

func makeDirs(role Role, b base, dirs []string) error {
	if b.readOnly {
		return failure.Wrap(failure.ErrConfiguration, "paths", "make dirs",
			fmt.Sprintf("%s root %s is read-only", role, b.root), nil)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("paths: create %s directory %q: %w", role, dir, err)
		}
	}
	return nil
}

func requireDraw(role Role, key Key) error {
	if key.Draw < 0 {
		return failure.Wrap(failure.ErrValidation, "paths", "resolve",
			fmt.Sprintf("%s %s: negative draw %d", role, key.Kind, key.Draw), nil)
	}
	return nil
}

func requireName(role Role, key Key, field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return failure.Wrap(failure.ErrValidation, "paths", "resolve",
			fmt.Sprintf("%s %s: invalid %s %q", role, key.Kind, field, value), nil)
	}
	return nil
}

func unsupported(role Role, key Key) error {
	return failure.Wrap(failure.ErrValidation, "paths", "resolve",
		fmt.Sprintf("%s root has no artifact kind %q", role, key.Kind), nil)
}

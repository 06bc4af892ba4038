// Package specification reads the YAML documents that describe a forecast run
// and the regression it builds on.
package specification

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"seiir/internal/failure"
	"seiir/internal/fileutil"
	"seiir/internal/scaling"
)

// Default beta scaling values applied to fields a scenario leaves out.
const (
	DefaultWindowSize        = 42
	DefaultAverageOverMin    = 7
	DefaultAverageOverMax    = 42
	DefaultOffsetDeathsLower = 150
	DefaultOffsetDeathsUpper = 300
)

// Forecast is the forecast specification.
type Forecast struct {
	Data      ForecastData `yaml:"data"`
	Scenarios Scenarios    `yaml:"scenarios"`
}

// ForecastData locates the upstream roots and the output root.
type ForecastData struct {
	RegressionVersion string `yaml:"regression_version"`
	CovariateVersion  string `yaml:"covariate_version"`
	OutputRoot        string `yaml:"output_root"`
}

// Scenario is one named forecast branch.
type Scenario struct {
	Name        string            `yaml:"-"`
	Algorithm   string            `yaml:"algorithm,omitempty"`
	Covariates  map[string]string `yaml:"covariates,omitempty"`
	BetaScaling BetaScaling       `yaml:"beta_scaling"`
}

// BetaScaling holds one scenario's scaling parameters.
type BetaScaling struct {
	WindowSize        int     `yaml:"window_size"`
	AverageOverMin    int     `yaml:"average_over_min"`
	AverageOverMax    int     `yaml:"average_over_max"`
	OffsetDeathsLower float64 `yaml:"offset_deaths_lower"`
	OffsetDeathsUpper float64 `yaml:"offset_deaths_upper"`
}

// Params converts the YAML fields into computation parameters.
func (b BetaScaling) Params() scaling.Params {
	return scaling.Params{
		WindowSize:        b.WindowSize,
		AverageOverMin:    b.AverageOverMin,
		AverageOverMax:    b.AverageOverMax,
		OffsetDeathsLower: b.OffsetDeathsLower,
		OffsetDeathsUpper: b.OffsetDeathsUpper,
	}
}

// Scenarios keeps scenarios in the order they appear in the document.
type Scenarios []Scenario

// UnmarshalYAML decodes a mapping of scenario name to scenario.
func (s *Scenarios) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: scenarios must be a mapping", node.Line)
	}
	out := make(Scenarios, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var scenario Scenario
		if err := node.Content[i+1].Decode(&scenario); err != nil {
			return fmt.Errorf("scenario %q: %w", node.Content[i].Value, err)
		}
		scenario.Name = node.Content[i].Value
		out = append(out, scenario)
	}
	*s = out
	return nil
}

// MarshalYAML encodes the scenarios as a mapping in declaration order.
func (s Scenarios) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, scenario := range s {
		value := &yaml.Node{}
		if err := value.Encode(scenario); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: scenario.Name}, value)
	}
	return node, nil
}

// Names returns the scenario names in declaration order.
func (s Scenarios) Names() []string {
	names := make([]string, len(s))
	for i, scenario := range s {
		names[i] = scenario.Name
	}
	return names
}

// Lookup returns the named scenario.
func (s Scenarios) Lookup(name string) (Scenario, error) {
	for _, scenario := range s {
		if scenario.Name == name {
			return scenario, nil
		}
	}
	return Scenario{}, failure.Wrap(failure.ErrNotFound, "specification", "scenario",
		fmt.Sprintf("scenario %q (known: %s)", name, strings.Join(s.Names(), ", ")), nil)
}

// LoadForecast reads, defaults and validates a forecast specification.
func LoadForecast(path string) (*Forecast, error) {
	var spec Forecast
	if err := decodeFile(path, &spec); err != nil {
		return nil, err
	}
	spec.normalize()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &spec, nil
}

func (f *Forecast) normalize() {
	f.Data.RegressionVersion = strings.TrimSpace(f.Data.RegressionVersion)
	f.Data.CovariateVersion = strings.TrimSpace(f.Data.CovariateVersion)
	f.Data.OutputRoot = strings.TrimSpace(f.Data.OutputRoot)
	for i := range f.Scenarios {
		b := &f.Scenarios[i].BetaScaling
		if b.WindowSize == 0 {
			b.WindowSize = DefaultWindowSize
		}
		if b.AverageOverMin == 0 {
			b.AverageOverMin = DefaultAverageOverMin
		}
		if b.AverageOverMax == 0 {
			b.AverageOverMax = DefaultAverageOverMax
		}
		if b.OffsetDeathsLower == 0 && b.OffsetDeathsUpper == 0 {
			b.OffsetDeathsLower = DefaultOffsetDeathsLower
			b.OffsetDeathsUpper = DefaultOffsetDeathsUpper
		}
	}
}

// Validate reports missing roots, duplicate scenarios and unusable scaling
// parameters.
func (f *Forecast) Validate() error {
	if f.Data.RegressionVersion == "" {
		return invalid("data.regression_version is required")
	}
	if f.Data.OutputRoot == "" {
		return invalid("data.output_root is required")
	}
	if len(f.Scenarios) == 0 {
		return invalid("at least one scenario is required")
	}
	seen := make(map[string]struct{}, len(f.Scenarios))
	for _, scenario := range f.Scenarios {
		if strings.TrimSpace(scenario.Name) == "" || strings.ContainsAny(scenario.Name, `/\`) {
			return invalid(fmt.Sprintf("invalid scenario name %q", scenario.Name))
		}
		if _, dup := seen[scenario.Name]; dup {
			return invalid(fmt.Sprintf("duplicate scenario %q", scenario.Name))
		}
		seen[scenario.Name] = struct{}{}
		if len(scenario.Covariates) > 0 && f.Data.CovariateVersion == "" {
			return invalid(fmt.Sprintf("scenario %q names covariates but data.covariate_version is empty", scenario.Name))
		}
		if err := scenario.BetaScaling.Params().Validate(); err != nil {
			return fmt.Errorf("scenario %q beta_scaling: %w", scenario.Name, err)
		}
	}
	return nil
}

// Dump writes the specification atomically to path.
func (f *Forecast) Dump(path string) error {
	return dumpFile(path, f)
}

// Regression is the subset of the regression specification a forecast needs.
type Regression struct {
	Data       RegressionData       `yaml:"data"`
	Parameters RegressionParameters `yaml:"parameters"`
}

// RegressionData locates the regression's own upstream roots.
type RegressionData struct {
	InfectionVersion string `yaml:"infection_version"`
	CovariateVersion string `yaml:"covariate_version"`
	OutputRoot       string `yaml:"output_root"`
}

// RegressionParameters carries the fit parameters.
type RegressionParameters struct {
	NDraws int `yaml:"n_draws"`
}

// LoadRegression reads and validates a regression specification.
func LoadRegression(path string) (*Regression, error) {
	var spec Regression
	if err := decodeFile(path, &spec); err != nil {
		return nil, err
	}
	spec.Data.InfectionVersion = strings.TrimSpace(spec.Data.InfectionVersion)
	if spec.Parameters.NDraws < 1 {
		return nil, fmt.Errorf("%s: %w", path, invalid(fmt.Sprintf("parameters.n_draws must be at least 1, got %d", spec.Parameters.NDraws)))
	}
	return &spec, nil
}

// LoadLocations reads a YAML list of location ids.
func LoadLocations(path string) ([]int, error) {
	var locations []int
	if err := decodeFile(path, &locations); err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("%s: %w", path, invalid("location list is empty"))
	}
	seen := make(map[int]struct{}, len(locations))
	for _, location := range locations {
		if _, dup := seen[location]; dup {
			return nil, fmt.Errorf("%s: %w", path, invalid(fmt.Sprintf("duplicate location %d", location)))
		}
		seen[location] = struct{}{}
	}
	return locations, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure.Wrap(failure.ErrNotFound, "specification", "read", path, err)
		}
		return fmt.Errorf("specification: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return failure.Wrap(failure.ErrValidation, "specification", "parse", path, err)
	}
	return nil
}

func dumpFile(path string, in any) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(in); err != nil {
		return fmt.Errorf("specification: encode %q: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("specification: encode %q: %w", path, err)
	}
	return fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func invalid(message string) error {
	return failure.Wrap(failure.ErrValidation, "specification", "validate", message, nil)
}

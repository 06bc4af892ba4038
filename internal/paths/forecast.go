package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"seiir/internal/failure"
)

// ForecastPaths is a forecast version root composed of one ScenarioPaths per
// scenario. Scenario keys are forwarded to the matching child.
type ForecastPaths struct {
	base
	order     []string
	scenarios map[string]*ScenarioPaths
}

// NewForecastPaths builds the forecast root and its scenario children.
func NewForecastPaths(dir string, readOnly bool, scenarios ...string) (*ForecastPaths, error) {
	p := &ForecastPaths{
		base:      base{root: dir, readOnly: readOnly},
		order:     make([]string, 0, len(scenarios)),
		scenarios: make(map[string]*ScenarioPaths, len(scenarios)),
	}
	for _, name := range scenarios {
		name = strings.TrimSpace(name)
		if err := requireName(RoleForecast, Key{Kind: "scenario"}, "scenario", name); err != nil {
			return nil, err
		}
		if _, dup := p.scenarios[name]; dup {
			return nil, failure.Wrap(failure.ErrValidation, "paths", "open",
				fmt.Sprintf("duplicate scenario %q", name), nil)
		}
		p.order = append(p.order, name)
		p.scenarios[name] = NewScenarioPaths(filepath.Join(dir, name), readOnly)
	}
	return p, nil
}

func (p *ForecastPaths) Role() Role { return RoleForecast }

// SpecificationFile is the forecast specification dumped at run start.
func (p *ForecastPaths) SpecificationFile() string {
	return filepath.Join(p.root, "forecast_specification.yaml")
}

// Scenarios returns the scenario names in declaration order.
func (p *ForecastPaths) Scenarios() []string {
	return append([]string(nil), p.order...)
}

// Scenario returns the child layout for name.
func (p *ForecastPaths) Scenario(name string) (*ScenarioPaths, error) {
	child, ok := p.scenarios[name]
	if !ok {
		return nil, failure.Wrap(failure.ErrNotFound, "paths", "scenario",
			fmt.Sprintf("scenario %q is not part of forecast root %s", name, p.root), nil)
	}
	return child, nil
}

func (p *ForecastPaths) Directories() []string {
	var dirs []string
	for _, name := range p.order {
		dirs = append(dirs, p.scenarios[name].Directories()...)
	}
	return dirs
}

func (p *ForecastPaths) Resolve(key Key) (string, error) {
	if key.Kind == KindForecastSpecification {
		return p.SpecificationFile(), nil
	}
	child, err := p.Scenario(key.Scenario)
	if err != nil {
		return "", err
	}
	return child.Resolve(key)
}

func (p *ForecastPaths) MakeDirs() error {
	if p.readOnly {
		return makeDirs(RoleForecast, p.base, nil)
	}
	for _, name := range p.order {
		if err := p.scenarios[name].MakeDirs(); err != nil {
			return err
		}
	}
	return nil
}

package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"seiir/internal/failure"
)

// CovariatePaths is a read-only root with one directory per covariate holding
// one "<scenario>_scenario.csv" file per scenario plus optional info files.
type CovariatePaths struct {
	base
}

// NewCovariatePaths describes the covariate root at dir. Covariate roots are
// always read-only.
func NewCovariatePaths(dir string, readOnly bool) (*CovariatePaths, error) {
	if !readOnly {
		return nil, failure.Wrap(failure.ErrConfiguration, "paths", "open",
			fmt.Sprintf("covariate root %s must be opened read-only", dir), nil)
	}
	return &CovariatePaths{base: base{root: dir, readOnly: true}}, nil
}

func (p *CovariatePaths) Role() Role { return RoleCovariate }

func (p *CovariatePaths) Directories() []string { return nil }

func (p *CovariatePaths) MakeDirs() error {
	return makeDirs(RoleCovariate, p.base, nil)
}

func (p *CovariatePaths) CovariateDir(covariate string) string {
	return filepath.Join(p.root, covariate)
}

func (p *CovariatePaths) Resolve(key Key) (string, error) {
	if key.Kind != KindCovariateScenario {
		return "", unsupported(RoleCovariate, key)
	}
	if err := requireName(RoleCovariate, key, "covariate", key.Covariate); err != nil {
		return "", err
	}
	if err := requireName(RoleCovariate, key, "scenario", key.Scenario); err != nil {
		return "", err
	}
	return filepath.Join(p.CovariateDir(key.Covariate), CovariateScenarioFile(key.Scenario)), nil
}

// ScenarioFiles maps each scenario name recovered from a file name to its path.
func (p *CovariatePaths) ScenarioFiles(covariate string) (map[string]string, error) {
	matches, err := Discover(p.CovariateDir(covariate), "*"+scenarioFileSuffix, FileEntry)
	if err != nil {
		return nil, err
	}
	mapping := make(map[string]string, len(matches))
	for _, match := range matches {
		scenario := strings.TrimSuffix(filepath.Base(match), scenarioFileSuffix)
		if scenario == "" {
			continue
		}
		mapping[scenario] = match
	}
	return mapping, nil
}

// InfoFiles lists the "*info.csv" metadata files of a covariate.
func (p *CovariatePaths) InfoFiles(covariate string) ([]string, error) {
	return Discover(p.CovariateDir(covariate), "*info.csv", FileEntry)
}

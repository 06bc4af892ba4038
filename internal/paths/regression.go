package paths

import "path/filepath"

// RegressionPaths is the directory structure of a fitted regression root.
type RegressionPaths struct {
	base
}

// NewRegressionPaths describes the regression root at dir.
func NewRegressionPaths(dir string, readOnly bool) *RegressionPaths {
	return &RegressionPaths{base: base{root: dir, readOnly: readOnly}}
}

func (p *RegressionPaths) Role() Role { return RoleRegression }

func (p *RegressionPaths) LocationMetadataFile() string {
	return filepath.Join(p.root, "locations.yaml")
}

func (p *RegressionPaths) SpecificationFile() string {
	return filepath.Join(p.root, "regression_specification.yaml")
}

func (p *RegressionPaths) ParametersDir() string { return filepath.Join(p.root, "parameters") }
func (p *RegressionPaths) DatesDir() string { return filepath.Join(p.root, "dates") }
func (p *RegressionPaths) BetaRegressionDir() string { return filepath.Join(p.root, "beta") }
func (p *RegressionPaths) CoefficientsDir() string { return filepath.Join(p.root, "coefficients") }
func (p *RegressionPaths) DataDir() string { return filepath.Join(p.root, "data") }

func (p *RegressionPaths) Directories() []string {
	return []string{p.ParametersDir(), p.DatesDir(), p.BetaRegressionDir(), p.CoefficientsDir(), p.DataDir()}
}

func (p *RegressionPaths) Resolve(key Key) (string, error) {
	var dir string
	switch key.Kind {
	case KindLocationMetadata:
		return p.LocationMetadataFile(), nil
	case KindRegressionSpecification:
		return p.SpecificationFile(), nil
	case KindBetaParameters:
		dir = p.ParametersDir()
	case KindDates:
		dir = p.DatesDir()
	case KindBetaRegression:
		dir = p.BetaRegressionDir()
	case KindCoefficients:
		dir = p.CoefficientsDir()
	case KindRegressionData:
		dir = p.DataDir()
	default:
		return "", unsupported(RoleRegression, key)
	}
	if err := requireDraw(RoleRegression, key); err != nil {
		return "", err
	}
	return filepath.Join(dir, DrawFile(key.Draw)), nil
}

func (p *RegressionPaths) MakeDirs() error {
	return makeDirs(RoleRegression, p.base, p.Directories())
}

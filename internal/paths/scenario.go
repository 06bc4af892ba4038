package paths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"seiir/internal/failure"
)

const scenarioLockFile = ".lock"

// ScenarioPaths is the directory structure of one forecast scenario.
type ScenarioPaths struct {
	base
}

// NewScenarioPaths describes the scenario rooted at dir.
func NewScenarioPaths(dir string, readOnly bool) *ScenarioPaths {
	return &ScenarioPaths{base: base{root: dir, readOnly: readOnly}}
}

func (p *ScenarioPaths) Role() Role { return RoleScenario }

// BetaScalingDir holds scaling factors used to align past and forecast betas.
func (p *ScenarioPaths) BetaScalingDir() string { return filepath.Join(p.root, "beta_scaling") }

// ComponentsDir holds SEIIR compartment draws.
func (p *ScenarioPaths) ComponentsDir() string { return filepath.Join(p.root, "component_draws") }

// OutputsDir holds per-draw cases, deaths and effective R.
func (p *ScenarioPaths) OutputsDir() string { return filepath.Join(p.root, "outputs") }

// PostprocessingDir holds draw-wide measure tables.
func (p *ScenarioPaths) PostprocessingDir() string { return filepath.Join(p.root, "postprocessing") }

func (p *ScenarioPaths) Directories() []string {
	return []string{p.BetaScalingDir(), p.ComponentsDir(), p.OutputsDir(), p.PostprocessingDir()}
}

func (p *ScenarioPaths) Resolve(key Key) (string, error) {
	switch key.Kind {
	case KindBetaScaling, KindComponents, KindOutputs:
		if err := requireDraw(RoleScenario, key); err != nil {
			return "", err
		}
		dir := map[Kind]string{
			KindBetaScaling: p.BetaScalingDir(),
			KindComponents:  p.ComponentsDir(),
			KindOutputs:     p.OutputsDir(),
		}[key.Kind]
		return filepath.Join(dir, DrawFile(key.Draw)), nil
	case KindMeasure:
		if err := requireName(RoleScenario, key, "measure", key.Measure); err != nil {
			return "", err
		}
		return filepath.Join(p.PostprocessingDir(), fmt.Sprintf(measureFileTemplate, key.Measure)), nil
	default:
		return "", unsupported(RoleScenario, key)
	}
}

func (p *ScenarioPaths) MakeDirs() error {
	return makeDirs(RoleScenario, p.base, p.Directories())
}

// Lock takes the scenario's exclusive write lock without blocking. The
// returned function releases it. A lock held by another producer is reported
// as failure.ErrConfiguration.
func (p *ScenarioPaths) Lock(ctx context.Context) (func() error, error) {
	if p.readOnly {
		return nil, failure.Wrap(failure.ErrConfiguration, "paths", "lock",
			fmt.Sprintf("scenario root %s is read-only", p.root), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return nil, fmt.Errorf("paths: create scenario root %q: %w", p.root, err)
	}
	lock := flock.New(filepath.Join(p.root, scenarioLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("paths: lock scenario %q: %w", p.root, err)
	}
	if !locked {
		return nil, failure.Wrap(failure.ErrConfiguration, "paths", "lock",
			fmt.Sprintf("scenario %s is locked by another producer", p.root), nil)
	}
	return lock.Unlock, nil
}

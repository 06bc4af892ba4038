package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"seiir/internal/failure"
	"seiir/internal/forecastdata"
	"seiir/internal/paths"
)

// Access is the permission a check requires.
type Access int

const (
	// AccessRead requires a listable, readable directory.
	AccessRead Access = iota
	// AccessWrite additionally requires write permission.
	AccessWrite
)

func (a Access) mode() uint32 {
	if a == AccessWrite {
		return unix.R_OK | unix.W_OK | unix.X_OK
	}
	return unix.R_OK | unix.X_OK
}

func (a Access) label() string {
	if a == AccessWrite {
		return "read/write ok"
	}
	return "read ok"
}

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, access.mode()); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, access.label())}
}

// CheckCreatableDirectory passes when path is a writable directory or can be
// created inside its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path, AccessWrite)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		parent = next
	}
	check := CheckDirectoryAccess(name, parent, AccessWrite)
	if !check.Passed {
		return check
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckRegressionDraws verifies that every draw has a transition date file
// and a beta regression file.
func CheckRegressionDraws(data *forecastdata.Interface) Result {
	const name = "Regression draws"

	draws := data.DrawCount()
	if draws < 1 {
		return Result{Name: name, Detail: fmt.Sprintf("n_draws is %d", draws)}
	}
	var missing []string
	for draw := 0; draw < draws; draw++ {
		for _, kind := range []paths.Kind{paths.KindDates, paths.KindBetaRegression} {
			path, err := data.Regression.Resolve(paths.Key{Kind: kind, Draw: draw})
			if err != nil {
				return Result{Name: name, Detail: err.Error()}
			}
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d files missing, first %s", len(missing), missing[0])}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d draws", draws)}
}

// CheckInfections verifies that every regression location resolves to
// exactly one infection directory holding a draw 0 file.
func CheckInfections(data *forecastdata.Interface) Result {
	const name = "Infection inputs"

	locations, err := data.LocationIDs()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	var problems []error
	for _, location := range locations {
		path, err := data.Infections.Resolve(paths.Key{Kind: paths.KindInfection, Location: location, Draw: 0})
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) > 0 {
		ambiguous := 0
		for _, problem := range problems {
			if errors.Is(problem, failure.ErrAmbiguous) {
				ambiguous++
			}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%d of %d locations unresolved (%d ambiguous): %v",
			len(problems), len(locations), ambiguous, problems[0])}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d locations", len(locations))}
}

// CheckCovariates verifies every covariate scenario file named by the
// forecast scenarios.
func CheckCovariates(data *forecastdata.Interface) Result {
	const name = "Covariates"

	if err := data.CheckCovariates(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if data.Covariates == nil {
		return Result{Name: name, Passed: true, Detail: "not used"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d scenarios", len(data.Spec.Scenarios))}
}

package paths

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"seiir/internal/failure"
)

// InfectionPaths is a read-only root holding one directory per location, named
// "<anything>_<location_id>", each containing one file per draw.
type InfectionPaths struct {
	base
}

// NewInfectionPaths describes the infection root at dir. Infection roots are
// always read-only.
func NewInfectionPaths(dir string, readOnly bool) (*InfectionPaths, error) {
	if !readOnly {
		return nil, failure.Wrap(failure.ErrConfiguration, "paths", "open",
			fmt.Sprintf("infection root %s must be opened read-only", dir), nil)
	}
	return &InfectionPaths{base: base{root: dir, readOnly: true}}, nil
}

func (p *InfectionPaths) Role() Role { return RoleInfection }

func (p *InfectionPaths) Directories() []string { return nil }

func (p *InfectionPaths) MakeDirs() error {
	return makeDirs(RoleInfection, p.base, nil)
}

// LocationDir finds the single directory whose name ends in "_<location>".
func (p *InfectionPaths) LocationDir(location int) (string, error) {
	return DiscoverOne(p.root, fmt.Sprintf("*_%d", location), DirEntry,
		fmt.Sprintf("location directory for %d", location))
}

// ModelledLocations parses the location id suffix of every directory in the root.
func (p *InfectionPaths) ModelledLocations() ([]int, error) {
	dirs, err := Discover(p.root, "*", DirEntry)
	if err != nil {
		return nil, err
	}
	locations := make([]int, 0, len(dirs))
	for _, dir := range dirs {
		name := filepath.Base(dir)
		idx := strings.LastIndex(name, "_")
		if idx < 0 {
			return nil, failure.Wrap(failure.ErrValidation, "paths", "modelled locations",
				fmt.Sprintf("directory %q has no location id suffix", name), nil)
		}
		id, err := strconv.Atoi(name[idx+1:])
		if err != nil {
			return nil, failure.Wrap(failure.ErrValidation, "paths", "modelled locations",
				fmt.Sprintf("directory %q has no location id suffix", name), err)
		}
		locations = append(locations, id)
	}
	sort.Ints(locations)
	return locations, nil
}

func (p *InfectionPaths) Resolve(key Key) (string, error) {
	if key.Kind != KindInfection {
		return "", unsupported(RoleInfection, key)
	}
	if err := requireDraw(RoleInfection, key); err != nil {
		return "", err
	}
	dir, err := p.LocationDir(key.Location)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, InfectionFile(key.Draw)), nil
}

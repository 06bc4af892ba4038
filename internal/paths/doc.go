// Package paths maps logical artifact keys onto the versioned directory trees
// that seiir reads and writes.
//
// Every data root has a role (regression, covariate, forecast, scenario,
// infection) and a Layout implementation for that role. A Layout resolves a
// Key to exactly one path, lists the directories it owns, and creates them when
// the root is writable. Resolution is a pure function of the key, with one
// exception: infection roots store one directory per location whose name only
// ends in the location id, so those keys are resolved by discovery.
//
// # Discovery
//
// Discover and DiscoverOne enumerate a directory by glob pattern. A key that the
// domain guarantees to be unique never silently picks the first match: zero
// matches report failure.ErrNotFound and several report failure.ErrAmbiguous.
//
// # Write ownership
//
// Writers take ScenarioPaths.Lock before replacing scenario artifacts so two
// producers never write the same scenario at once.
package paths

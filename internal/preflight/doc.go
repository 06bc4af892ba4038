// Package preflight verifies that a forecast version can run before any
// stage starts.
//
// Checks cover directory access on every data root, the local log and ledger
// directories, per-draw regression inputs, infection directories for every
// modelled location, and covariate scenario files. Each check returns a
// Result rather than an error so callers can report all problems at once.
package preflight

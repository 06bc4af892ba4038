// Package betascale runs the beta residual mean computation for one forecast
// scenario.
//
// A run loads the regression's location set and observed deaths, computes a
// scaling record set for every draw in a bounded worker pool, blends each
// location's cross-draw residual toward zero according to its death count,
// and persists every draw's records together. Persistence holds the
// scenario's write lock and commits all draws as one batch, so a failed run
// leaves the previous artifacts in place.
package betascale

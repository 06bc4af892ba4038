// Package scaling computes the beta scaling parameters that align a fitted
// transmission rate series with its forward projection.
//
// ComputeDraw is a pure function of one draw's inputs and returns one Record
// per location. Across draws, AverageResidual reduces the mean log residuals
// to one value per location, Offsets derives a death-count dependent blending
// offset from that average, and Apply produces corrected copies of every
// draw's records. Apply never modifies its inputs.
package scaling

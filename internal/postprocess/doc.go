// Package postprocess concatenates each scenario's per-draw forecast outputs
// into draw-wide measure tables under the scenario's postprocessing
// directory.
package postprocess

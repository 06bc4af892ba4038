// Package forecastdata binds a forecast specification to the data roots it
// names and reads and writes the artifacts of a forecast run.
//
// Upstream roots (regression, covariate, infection) are always opened
// read-only. The forecast root is writable and owns one directory tree per
// scenario.
package forecastdata

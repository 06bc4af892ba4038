// Package logs reads the seiir log file for the CLI.
//
// Tail returns the last matching lines with bounded memory and reports the
// byte offset reached, so follow mode can poll for lines appended by a run
// still in progress.
package logs

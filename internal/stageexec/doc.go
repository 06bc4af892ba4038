// Package stageexec runs the named stages of a seiir command with uniform
// lifecycle logging and run ledger bookkeeping.
package stageexec

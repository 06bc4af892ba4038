// Package ledger records every seiir run in a SQLite database.
//
// A run is opened with Begin, advanced through named stages with
// StartStage/FinishStage, and closed with Finish, which stores the failure
// kind and message when the run failed. List returns recent runs for the CLI.
// The ledger is an audit trail only: runs never read it to decide what to do.
package ledger

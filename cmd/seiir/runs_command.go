package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"seiir/internal/ledger"
)

type runJSON struct {
	ID              string     `json:"id"`
	Command         string     `json:"command"`
	ForecastVersion string     `json:"forecast_version"`
	Scenario        string     `json:"scenario,omitempty"`
	Draws           int        `json:"draws"`
	Stage           string     `json:"stage,omitempty"`
	Status          string     `json:"status"`
	FailureKind     string     `json:"failure_kind,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded beta scaling and postprocessing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no run ledger configured (set paths.ledger_path)")
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]runJSON, 0, len(runs))
				for _, r := range runs {
					out = append(out, runJSON{
						ID:              r.ID,
						Command:         r.Command,
						ForecastVersion: r.ForecastVersion,
						Scenario:        r.Scenario,
						Draws:           r.Draws,
						Stage:           r.Stage,
						Status:          string(r.Status),
						FailureKind:     r.FailureKind,
						ErrorMessage:    r.ErrorMessage,
						StartedAt:       r.StartedAt,
						FinishedAt:      r.FinishedAt,
					})
				}
				return writeJSON(cmd, out)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output runs as JSON")
	return cmd
}

func renderRuns(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		scenario := r.Scenario
		if scenario == "" {
			scenario = "-"
		}
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Command,
			scenario,
			string(r.Status),
			r.Stage,
			fmt.Sprintf("%d", r.Draws),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			r.FailureKind,
		})
	}
	return renderTable(
		[]string{"Run", "Command", "Scenario", "Status", "Stage", "Draws", "Started", "Duration", "Failure"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seiir/internal/betascale"
	"seiir/internal/csvio"
	"seiir/internal/logging"
	"seiir/internal/scaling"
)

func newBetaScalingCommand(ctx *commandContext) *cobra.Command {
	var forecastVersion string
	var scenario string
	var workers int
	var showSummary bool

	cmd := &cobra.Command{
		Use:   "beta-scaling",
		Short: "Compute beta residual mean scaling for every draw of a scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			data, err := openForecastVersion(forecastVersion)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			opts := betascale.Options{
				Data:     data,
				Scenario: scenario,
				Workers:  workerCount(workers, cfg.Workers.Scaling),
				Logger:   logger,
			}
			if store != nil {
				defer store.Close()
				opts.Ledger = store
			}

			result, err := betascale.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("beta scaling %s: %w", scenario, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario %s: %d draws, %d locations\n", result.Scenario, result.Draws, len(result.Locations))
			if result.RunID != "" {
				fmt.Fprintf(out, "Run %s recorded\n", result.RunID)
			}
			if showSummary {
				fmt.Fprintln(out, renderLocationSummary(result.Summary))
			}
			logger.Debug("beta scaling command finished", logging.String(logging.FieldScenario, result.Scenario))
			return nil
		},
	}

	cmd.Flags().StringVar(&forecastVersion, "forecast-version", "", "Forecast version root directory")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Scenario name from the forecast specification")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (defaults to workers.scaling)")
	cmd.Flags().BoolVar(&showSummary, "summary", false, "Print the per-location offset table")
	_ = cmd.MarkFlagRequired("forecast-version")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func renderLocationSummary(summary []scaling.LocationSummary) string {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []string{
			csvio.FormatInt(s.Location),
			csvio.FormatFloat(s.Deaths),
			string(s.Regime),
			formatResidual(s.Average),
			formatResidual(s.Offset),
			formatResidual(s.Corrected),
		})
	}
	return renderTable(
		[]string{"Location", "Deaths", "Regime", "Mean residual", "Offset", "Corrected"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight},
	)
}

func formatResidual(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

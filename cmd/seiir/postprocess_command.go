package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seiir/internal/forecastdata"
	"seiir/internal/postprocess"
)

func newPostprocessCommand(ctx *commandContext) *cobra.Command {
	var forecastVersion string
	var scenarios []string
	var outputWorkers int
	var measureWorkers int

	cmd := &cobra.Command{
		Use:   "postprocess",
		Short: "Concatenate per-draw forecast outputs into measure tables",
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
			opts := postprocess.Options{
				Data:           data,
				Scenarios:      scenarios,
				OutputWorkers:  workerCount(outputWorkers, cfg.Workers.Outputs),
				MeasureWorkers: workerCount(measureWorkers, cfg.Workers.Measures),
				Logger:         logger,
			}
			if store != nil {
				defer store.Close()
				opts.Ledger = store
			}

			result, err := postprocess.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("postprocess: %w", err)
			}

			rows := make([][]string, 0, len(result.Scenarios))
			for _, s := range result.Scenarios {
				row := []string{s.Scenario, fmt.Sprintf("%d", s.Draws)}
				for _, measure := range forecastdata.Measures {
					row = append(row, fmt.Sprintf("%d", s.Rows[measure]))
				}
				rows = append(rows, row)
			}
			headers := append([]string{"Scenario", "Draws"}, forecastdata.Measures...)
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVar(&forecastVersion, "forecast-version", "", "Forecast version root directory")
	cmd.Flags().StringSliceVar(&scenarios, "scenario", nil, "Limit to the named scenarios (repeatable)")
	cmd.Flags().IntVar(&outputWorkers, "output-workers", 0, "Output load pool size (defaults to workers.outputs)")
	cmd.Flags().IntVar(&measureWorkers, "measure-workers", 0, "Measure concat pool size (defaults to workers.measures)")
	_ = cmd.MarkFlagRequired("forecast-version")
	return cmd
}

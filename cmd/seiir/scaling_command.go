package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seiir/internal/csvio"
	"seiir/internal/scaling"
)

type scalingRecordJSON struct {
	Location                    int      `json:"location_id"`
	Draw                        int      `json:"draw"`
	Deaths                      float64  `json:"deaths"`
	WindowSize                  int      `json:"window_size"`
	FitFinal                    float64  `json:"fit_final"`
	PredStart                   float64  `json:"pred_start"`
	ScaleInit                   float64  `json:"scale_init"`
	HistoryDaysStart            int      `json:"history_days_start"`
	HistoryDaysEnd              int      `json:"history_days_end"`
	LogBetaResidualMean         float64  `json:"log_beta_residual_mean"`
	Offset                      *float64 `json:"log_beta_residual_mean_offset,omitempty"`
	AdjustedLogBetaResidualMean *float64 `json:"log_beta_residual_mean_adjusted,omitempty"`
	ScaleFinal                  *float64 `json:"scale_final,omitempty"`
}

func newScalingCommand(ctx *commandContext) *cobra.Command {
	scalingCmd := &cobra.Command{
		Use:   "scaling",
		Short: "Inspect persisted beta scaling records",
	}
	scalingCmd.AddCommand(newScalingShowCommand(ctx))
	return scalingCmd
}

func newScalingShowCommand(_ *commandContext) *cobra.Command {
	var forecastVersion string
	var scenario string
	var draw int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one draw's beta scaling records",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := openForecastVersion(forecastVersion)
			if err != nil {
				return err
			}
			set, err := data.LoadBetaScales(scenario, draw)
			if err != nil {
				return err
			}
			if asJSON {
				records := make([]scalingRecordJSON, 0, len(set.Records))
				for _, r := range set.Records {
					records = append(records, toScalingJSON(r))
				}
				return writeJSON(cmd, records)
			}

			rows := make([][]string, 0, len(set.Records))
			for _, r := range set.Records {
				offset, scale := "-", "-"
				if r.Adjusted {
					offset = formatResidual(r.Offset)
					scale = formatResidual(r.ScaleFinal)
				}
				rows = append(rows, []string{
					csvio.FormatInt(r.Location),
					csvio.FormatFloat(r.Deaths),
					fmt.Sprintf("%d-%d", r.HistoryDaysStart, r.HistoryDaysEnd),
					formatResidual(r.LogBetaResidualMean),
					offset,
					scale,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Location", "Deaths", "History", "Mean residual", "Offset", "Scale"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&forecastVersion, "forecast-version", "", "Forecast version root directory")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Scenario name")
	cmd.Flags().IntVar(&draw, "draw", 0, "Draw id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output records as JSON")
	_ = cmd.MarkFlagRequired("forecast-version")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func toScalingJSON(r scaling.Record) scalingRecordJSON {
	out := scalingRecordJSON{
		Location:            r.Location,
		Draw:                r.Draw,
		Deaths:              r.Deaths,
		WindowSize:          r.WindowSize,
		FitFinal:            r.FitFinal,
		PredStart:           r.PredStart,
		ScaleInit:           r.ScaleInit,
		HistoryDaysStart:    r.HistoryDaysStart,
		HistoryDaysEnd:      r.HistoryDaysEnd,
		LogBetaResidualMean: r.LogBetaResidualMean,
	}
	if r.Adjusted {
		offset, adjusted, scale := r.Offset, r.AdjustedLogBetaResidualMean, r.ScaleFinal
		out.Offset = &offset
		out.AdjustedLogBetaResidualMean = &adjusted
		out.ScaleFinal = &scale
	}
	return out
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"seiir/internal/forecastdata"
	"seiir/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var forecastVersion string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and forecast inputs before running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var data *forecastdata.Interface
			if strings.TrimSpace(forecastVersion) != "" {
				data, err = openForecastVersion(forecastVersion)
				if err != nil {
					return err
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, data)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if data == nil {
				fmt.Fprintln(out, renderStatusLine("Forecast version", statusWarn, "not given; input checks skipped", colorize))
			}
			if preflight.Failed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&forecastVersion, "forecast-version", "", "Forecast version root directory")
	return cmd
}

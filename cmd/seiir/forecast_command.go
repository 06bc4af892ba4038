package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"seiir/internal/config"
	"seiir/internal/forecastdata"
	"seiir/internal/logging"
	"seiir/internal/specification"
)

func newForecastCommand(ctx *commandContext) *cobra.Command {
	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast version utilities",
	}
	forecastCmd.AddCommand(newForecastPrepareCommand(ctx))
	return forecastCmd
}

func newForecastPrepareCommand(ctx *commandContext) *cobra.Command {
	var specPath string
	var outputRoot string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Create a forecast version root from a forecast specification",
		Long: "Validate covariate inputs, create the scenario directories and store the " +
			"specification in the forecast root so later commands can open it by path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(strings.TrimSpace(specPath))
			if err != nil {
				return fmt.Errorf("resolve specification path: %w", err)
			}
			spec, err := specification.LoadForecast(path)
			if err != nil {
				return err
			}
			if root := strings.TrimSpace(outputRoot); root != "" {
				expanded, err := config.ExpandPath(root)
				if err != nil {
					return fmt.Errorf("resolve output root: %w", err)
				}
				spec.Data.OutputRoot = expanded
			}

			data, err := forecastdata.FromSpecification(spec)
			if err != nil {
				return err
			}
			if err := data.CheckCovariates(); err != nil {
				return fmt.Errorf("check covariates: %w", err)
			}
			if err := data.MakeDirs(); err != nil {
				return err
			}
			if err := data.DumpSpecification(); err != nil {
				return fmt.Errorf("store specification: %w", err)
			}

			logger.Info("forecast version prepared",
				logging.String("forecast_version", data.Forecast.Root()),
				logging.Int("scenarios", len(spec.Scenarios)),
			)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prepared forecast version %s\n", data.Forecast.Root())
			fmt.Fprintf(out, "Scenarios: %s\n", strings.Join(spec.Scenarios.Names(), ", "))
			fmt.Fprintf(out, "Draws: %d\n", data.DrawCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&specPath, "specification", "s", "", "Forecast specification YAML file")
	cmd.Flags().StringVar(&outputRoot, "output-root", "", "Override data.output_root from the specification")
	_ = cmd.MarkFlagRequired("specification")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"seiir/internal/forecastdata"
	"seiir/internal/paths"
)

type layoutEntry struct {
	Role   string `json:"role"`
	Key    string `json:"key"`
	Path   string `json:"path,omitempty"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

func newLayoutCommand(_ *commandContext) *cobra.Command {
	var forecastVersion string
	var draw int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show where each artifact of a forecast version resolves",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := openForecastVersion(forecastVersion)
			if err != nil {
				return err
			}
			entries, err := collectLayout(data, draw)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				path := e.Path
				if e.Error != "" {
					path = e.Error
				}
				rows = append(rows, []string{e.Role, e.Key, path, yesNo(e.Exists)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Role", "Key", "Path", "Exists"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&forecastVersion, "forecast-version", "", "Forecast version root directory")
	cmd.Flags().IntVar(&draw, "draw", 0, "Draw id used for draw-keyed artifacts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output entries as JSON")
	_ = cmd.MarkFlagRequired("forecast-version")
	return cmd
}

func collectLayout(data *forecastdata.Interface, draw int) ([]layoutEntry, error) {
	var entries []layoutEntry
	add := func(layout paths.Layout, key paths.Key, label string) {
		entry := layoutEntry{Role: string(layout.Role()), Key: label}
		path, err := layout.Resolve(key)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Path = path
			_, statErr := os.Stat(path)
			entry.Exists = statErr == nil
		}
		entries = append(entries, entry)
	}

	for _, kind := range []paths.Kind{paths.KindRegressionSpecification, paths.KindLocationMetadata} {
		add(data.Regression, paths.Key{Kind: kind}, string(kind))
	}
	for _, kind := range []paths.Kind{paths.KindDates, paths.KindBetaRegression, paths.KindBetaParameters, paths.KindCoefficients, paths.KindRegressionData} {
		add(data.Regression, paths.Key{Kind: kind, Draw: draw}, fmt.Sprintf("%s[draw=%d]", kind, draw))
	}

	locations, err := data.LocationIDs()
	if err != nil {
		return nil, err
	}
	for _, location := range locations {
		add(data.Infections, paths.Key{Kind: paths.KindInfection, Location: location, Draw: draw},
			fmt.Sprintf("%s[location=%d,draw=%d]", paths.KindInfection, location, draw))
	}

	if data.Covariates != nil {
		seen := map[string]bool{}
		var keys []paths.Key
		for _, scenario := range data.Spec.Scenarios {
			for covariate, covScenario := range scenario.Covariates {
				id := covariate + "/" + covScenario
				if seen[id] {
					continue
				}
				seen[id] = true
				keys = append(keys, paths.Key{Kind: paths.KindCovariateScenario, Covariate: covariate, Scenario: covScenario})
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Covariate != keys[j].Covariate {
				return keys[i].Covariate < keys[j].Covariate
			}
			return keys[i].Scenario < keys[j].Scenario
		})
		for _, key := range keys {
			add(data.Covariates, key, fmt.Sprintf("%s[covariate=%s,scenario=%s]", key.Kind, key.Covariate, key.Scenario))
		}
	}

	add(data.Forecast, paths.Key{Kind: paths.KindForecastSpecification}, string(paths.KindForecastSpecification))
	for _, scenario := range data.Spec.Scenarios.Names() {
		for _, kind := range []paths.Kind{paths.KindBetaScaling, paths.KindComponents, paths.KindOutputs} {
			add(data.Forecast, paths.Key{Kind: kind, Scenario: scenario, Draw: draw},
				fmt.Sprintf("%s[scenario=%s,draw=%d]", kind, scenario, draw))
		}
		for _, measure := range forecastdata.Measures {
			add(data.Forecast, paths.Key{Kind: paths.KindMeasure, Scenario: scenario, Measure: measure},
				fmt.Sprintf("%s[scenario=%s,measure=%s]", paths.KindMeasure, scenario, measure))
		}
	}
	return entries, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

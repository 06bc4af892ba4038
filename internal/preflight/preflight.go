package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"seiir/internal/config"
	"seiir/internal/forecastdata"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check. A nil cfg skips the local
// directory checks; a nil data skips the forecast checks. Checks stop early
// when ctx is cancelled.
func RunAll(ctx context.Context, cfg *config.Config, data *forecastdata.Interface) []Result {
	var checks []func() Result

	if cfg != nil {
		checks = append(checks, func() Result {
			return CheckCreatableDirectory("Log directory", cfg.Paths.LogDir)
		})
		if strings.TrimSpace(cfg.Paths.LedgerPath) != "" {
			checks = append(checks, func() Result {
				return CheckCreatableDirectory("Ledger directory", filepath.Dir(cfg.Paths.LedgerPath))
			})
		}
	}

	if data != nil {
		checks = append(checks,
			func() Result { return CheckDirectoryAccess("Regression root", data.Regression.Root(), AccessRead) },
			func() Result { return CheckDirectoryAccess("Infection root", data.Infections.Root(), AccessRead) },
		)
		// Covariate root
		if data.Covariates != nil {
			checks = append(checks, func() Result {
				return CheckDirectoryAccess("Covariate root", data.Covariates.Root(), AccessRead)
			})
		}
		checks = append(checks,
			func() Result { return CheckCreatableDirectory("Forecast root", data.Forecast.Root()) },
			func() Result { return CheckRegressionDraws(data) },
			func() Result { return CheckInfections(data) },
			func() Result { return CheckCovariates(data) },
		)
	}

	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, check())
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

package postprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"seiir/internal/executor"
	"seiir/internal/failure"
	"seiir/internal/fileutil"
	"seiir/internal/forecastdata"
	"seiir/internal/logging"
	"seiir/internal/stageexec"
)

// CommandName is recorded in the run ledger.
const CommandName = "postprocess"

// Ledger records run and stage transitions. *ledger.Store satisfies it.
type Ledger interface {
	stageexec.Recorder
	Begin(ctx context.Context, command, forecastVersion, scenario string) (string, error)
	SetDraws(ctx context.Context, id string, draws int) error
	Finish(ctx context.Context, id string, runErr error) error
}

// Options configures a run.
type Options struct {
	Data *forecastdata.Interface
	// Scenarios limits the run to the named scenarios. Empty means every
	// scenario in the specification.
	Scenarios      []string
	OutputWorkers  int
	MeasureWorkers int
	Logger         *slog.Logger
	Ledger         Ledger
}

// ScenarioResult summarizes one scenario's measure tables.
type ScenarioResult struct {
	Scenario string
	Draws    int
	Rows     map[string]int
}

// Result describes a completed run.
type Result struct {
	RunID     string
	Scenarios []ScenarioResult
}

// Run builds and writes the measure tables of every selected scenario.
// Scenarios are processed in specification order; the first failure stops
// the run and leaves that scenario's existing tables in place.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Data == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "postprocess", "run", "forecast data interface is required", nil)
	}
	if opts.OutputWorkers < 1 || opts.MeasureWorkers < 1 {
		return nil, failure.Wrap(failure.ErrConfiguration, "postprocess", "run",
			fmt.Sprintf("worker counts must be positive, got outputs=%d measures=%d", opts.OutputWorkers, opts.MeasureWorkers), nil)
	}
	scenarios := opts.Scenarios
	if len(scenarios) == 0 {
		scenarios = opts.Data.Spec.Scenarios.Names()
	}
	for _, name := range scenarios {
		if _, _, err := opts.Data.Scenario(name); err != nil {
			return nil, err
		}
	}

	logger := logging.NewComponentLogger(opts.Logger, "postprocess")
	runCtx := ctx
	runID := ""
	if opts.Ledger != nil {
		id, err := opts.Ledger.Begin(ctx, CommandName, opts.Data.Forecast.Root(), "")
		if err != nil {
			return nil, fmt.Errorf("postprocess: record run: %w", err)
		}
		runID = id
		runCtx = logging.WithRunID(ctx, runID)
		if err := opts.Ledger.SetDraws(runCtx, runID, opts.Data.DrawCount()); err != nil {
			logger.Warn("failed to record draw count", logging.Error(err))
		}
	}

	result := &Result{RunID: runID}
	var runErr error
	for _, name := range scenarios {
		scenarioCtx := logging.WithScenario(runCtx, name)
		var summary ScenarioResult
		runErr = stageexec.Run(scenarioCtx, stageexec.Options{
			Logger:   logger,
			Recorder: opts.Ledger,
			RunID:    runID,
			Stage:    name,
		}, func(ctx context.Context, logger *slog.Logger) error {
			var err error
			summary, err = processScenario(ctx, opts, name, logger)
			return err
		})
		if runErr != nil {
			break
		}
		result.Scenarios = append(result.Scenarios, summary)
	}

	if opts.Ledger != nil {
		if err := opts.Ledger.Finish(context.WithoutCancel(runCtx), runID, runErr); err != nil {
			logger.Warn("failed to record run result", logging.Error(err))
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func processScenario(ctx context.Context, opts Options, scenario string, logger *slog.Logger) (ScenarioResult, error) {
	draws := opts.Data.DrawCount()
	outputs, err := executor.Map(ctx, opts.OutputWorkers, executor.Range(draws),
		func(_ context.Context, draw int) ([]forecastdata.OutputRow, error) {
			return opts.Data.LoadOutputs(scenario, draw)
		})
	if err != nil {
		return ScenarioResult{}, err
	}
	logger.Info("outputs loaded", logging.Int("draws", len(outputs)))

	tables, err := executor.Map(ctx, opts.MeasureWorkers, executor.Range(len(forecastdata.Measures)),
		func(_ context.Context, i int) (Table, error) {
			return Concat(forecastdata.Measures[i], outputs)
		})
	if err != nil {
		return ScenarioResult{}, err
	}

	if err := persist(ctx, opts.Data, scenario, tables); err != nil {
		return ScenarioResult{}, err
	}

	summary := ScenarioResult{Scenario: scenario, Draws: draws, Rows: make(map[string]int, len(tables))}
	for _, table := range tables {
		summary.Rows[table.Measure] = len(table.Keys)
	}
	logger.Info("measures written", logging.Int("measures", len(tables)), logging.Int("draws", draws))
	return summary, nil
}

func persist(ctx context.Context, data *forecastdata.Interface, scenario string, tables []Table) (err error) {
	_, layout, err := data.Scenario(scenario)
	if err != nil {
		return err
	}
	unlock, err := layout.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			err = errors.Join(err, fmt.Errorf("postprocess: release scenario lock: %w", unlockErr))
		}
	}()
	if err := layout.MakeDirs(); err != nil {
		return err
	}

	batch := &fileutil.Batch{}
	for _, table := range tables {
		if err := data.StageMeasure(batch, scenario, table.Measure, table.Header(), table.Rows()); err != nil {
			return errors.Join(fmt.Errorf("postprocess: stage %s: %w", table.Measure, err), batch.Abort())
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("postprocess: replace measure tables: %w", err)
	}
	return nil
}

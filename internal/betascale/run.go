package betascale

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
	"seiir/internal/paths"
	"seiir/internal/scaling"
	"seiir/internal/stageexec"
)

// Stage names in execution order.
const (
	StageLoad      = "load"
	StageCompute   = "compute"
	StageAggregate = "aggregate"
	StagePersist   = "persist"
)

// CommandName is recorded in the run ledger.
const CommandName = "beta-scaling"

// Ledger records run and stage transitions. *ledger.Store satisfies it.
type Ledger interface {
	stageexec.Recorder
	Begin(ctx context.Context, command, forecastVersion, scenario string) (string, error)
	SetDraws(ctx context.Context, id string, draws int) error
	Finish(ctx context.Context, id string, runErr error) error
}

// Options configures a run.
type Options struct {
	Data     *forecastdata.Interface
	Scenario string
	Workers  int
	Logger   *slog.Logger
	Ledger   Ledger
}

// Result describes a completed run.
type Result struct {
	RunID     string
	Scenario  string
	Draws     int
	Locations []int
	Sets      []scaling.RecordSet
	Summary   []scaling.LocationSummary
}

type runState struct {
	params    scaling.Params
	locations []int
	deaths    map[int]float64
	raw       []scaling.RecordSet
	adjusted  []scaling.RecordSet
	summary   []scaling.LocationSummary
}

// Run computes and persists beta scaling records for every draw of the
// scenario. Any failure aborts the run before artifacts are replaced.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Data == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "betascale", "run", "forecast data interface is required", nil)
	}
	if opts.Workers < 1 {
		return nil, failure.Wrap(failure.ErrConfiguration, "betascale", "run",
			fmt.Sprintf("worker count must be positive, got %d", opts.Workers), nil)
	}
	scenario, layout, err := opts.Data.Scenario(opts.Scenario)
	if err != nil {
		return nil, err
	}

	runCtx := logging.WithScenario(ctx, scenario.Name)
	runID := ""
	if opts.Ledger != nil {
		runID, err = opts.Ledger.Begin(runCtx, CommandName, opts.Data.Forecast.Root(), scenario.Name)
		if err != nil {
			return nil, fmt.Errorf("betascale: record run: %w", err)
		}
		runCtx = logging.WithRunID(runCtx, runID)
	}
	base := logging.NewComponentLogger(opts.Logger, "betascale")
	logger := logging.WithContext(runCtx, base)

	state := &runState{params: scenario.BetaScaling.Params()}
	stages := []struct {
		name string
		fn   stageexec.Func
	}{
		{StageLoad, state.load(opts)},
		{StageCompute, state.compute(opts)},
		{StageAggregate, state.aggregate()},
		{StagePersist, state.persist(opts, scenario.Name, layout)},
	}

	var runErr error
	for _, stage := range stages {
		runErr = stageexec.Run(runCtx, stageexec.Options{
			Logger:   base,
			Recorder: opts.Ledger,
			RunID:    runID,
			Stage:    stage.name,
		}, stage.fn)
		if runErr != nil {
			break
		}
	}

	if opts.Ledger != nil {
		if err := opts.Ledger.Finish(context.WithoutCancel(runCtx), runID, runErr); err != nil {
			logger.Warn("failed to record run result", logging.Error(err))
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	logger.Info("beta scaling complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("draws", len(state.adjusted)),
		logging.Int("locations", len(state.locations)),
	)
	return &Result{
		RunID:     runID,
		Scenario:  scenario.Name,
		Draws:     len(state.adjusted),
		Locations: state.locations,
		Sets:      state.adjusted,
		Summary:   state.summary,
	}, nil
}

func (s *runState) load(opts Options) stageexec.Func {
	return func(ctx context.Context, logger *slog.Logger) error {
		if err := s.params.Validate(); err != nil {
			return err
		}
		locations, err := opts.Data.LocationIDs()
		if err != nil {
			return err
		}
		deaths, err := opts.Data.TotalDeaths(locations)
		if err != nil {
			return err
		}
		draws := opts.Data.DrawCount()
		if draws < 1 {
			return failure.Wrap(failure.ErrConfiguration, StageLoad, "draw count",
				fmt.Sprintf("regression reports %d draws", draws), nil)
		}
		if opts.Ledger != nil {
			if runID, ok := logging.RunIDFromContext(ctx); ok {
				if err := opts.Ledger.SetDraws(ctx, runID, draws); err != nil {
					logger.Warn("failed to record draw count", logging.Error(err))
				}
			}
		}
		s.locations = locations
		s.deaths = deaths
		logger.Info("inputs loaded",
			logging.Int("locations", len(locations)),
			logging.Int("draws", draws),
			logging.Float64("deaths_lower", s.params.OffsetDeathsLower),
			logging.Float64("deaths_upper", s.params.OffsetDeathsUpper),
		)
		return nil
	}
}

func (s *runState) compute(opts Options) stageexec.Func {
	return func(ctx context.Context, logger *slog.Logger) error {
		ids := executor.Range(opts.Data.DrawCount())
		sets, err := executor.Map(ctx, opts.Workers, ids, func(ctx context.Context, draw int) (scaling.RecordSet, error) {
			if err := ctx.Err(); err != nil {
				return scaling.RecordSet{}, err
			}
			input, err := opts.Data.DrawInput(draw, s.locations, s.deaths)
			if err != nil {
				return scaling.RecordSet{}, err
			}
			set, err := scaling.ComputeDraw(input, s.params)
			if err != nil {
				return scaling.RecordSet{}, err
			}
			logger.Debug("draw computed",
				logging.Int(logging.FieldDraw, draw),
				logging.Int("locations", len(set.Records)),
			)
			return set, nil
		})
		if err != nil {
			return err
		}
		s.raw = sets
		logger.Info("draws computed", logging.Int("draws", len(sets)), logging.Int("workers", opts.Workers))
		return nil
	}
}

func (s *runState) aggregate() stageexec.Func {
	return func(_ context.Context, logger *slog.Logger) error {
		averages, err := scaling.AverageResidual(s.raw)
		if err != nil {
			return err
		}
		offsets, err := scaling.Offsets(s.locations, s.deaths, averages, s.params)
		if err != nil {
			return err
		}
		adjusted, err := scaling.Apply(s.raw, offsets)
		if err != nil {
			return err
		}
		s.adjusted = adjusted
		s.summary = scaling.Summarize(s.locations, s.deaths, averages, offsets, s.params)

		counts := make(map[scaling.Regime]int)
		for _, summary := range s.summary {
			counts[summary.Regime]++
			logger.Debug("location offset",
				logging.Int("location_id", summary.Location),
				logging.Float64("deaths", summary.Deaths),
				logging.Float64("average", summary.Average),
				logging.Float64("offset", summary.Offset),
				logging.String("regime", string(summary.Regime)),
			)
		}
		logger.Info("offsets applied",
			logging.Int("locations_unadjusted", counts[scaling.RegimeNone]),
			logging.Int("locations_interpolated", counts[scaling.RegimeInterpolated]),
			logging.Int("locations_full", counts[scaling.RegimeFull]),
		)
		return nil
	}
}

func (s *runState) persist(opts Options, scenario string, layout *paths.ScenarioPaths) stageexec.Func {
	return func(ctx context.Context, logger *slog.Logger) (err error) {
		unlock, err := layout.Lock(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if unlockErr := unlock(); unlockErr != nil {
				err = errors.Join(err, fmt.Errorf("betascale: release scenario lock: %w", unlockErr))
			}
		}()

		if err := layout.MakeDirs(); err != nil {
			return err
		}

		batch := &fileutil.Batch{}
		for _, set := range s.adjusted {
			if err := ctx.Err(); err != nil {
				return errors.Join(err, batch.Abort())
			}
			if err := opts.Data.StageBetaScales(batch, scenario, set); err != nil {
				return errors.Join(fmt.Errorf("betascale: stage draw %d: %w", set.Draw, err), batch.Abort())
			}
		}
		if err := batch.Commit(); err != nil {
			return fmt.Errorf("betascale: replace beta scaling files: %w", err)
		}
		logger.Info("beta scaling persisted", logging.Int("files", len(s.adjusted)))
		return nil
	}
}

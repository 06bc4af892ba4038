package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"seiir/internal/failure"
	"seiir/internal/logging"
)

// Recorder persists stage transitions. *ledger.Store satisfies it.
type Recorder interface {
	StartStage(ctx context.Context, runID, stage string) error
	FinishStage(ctx context.Context, runID, stage string, stageErr error) error
}

// Func is the body of a stage. It receives a context carrying the stage name
// and a logger already scoped to it.
type Func func(ctx context.Context, logger *slog.Logger) error

// Options controls stage execution and ledger persistence.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder
	RunID    string
	Stage    string
}

// Run executes fn as the named stage, logging its lifecycle and recording the
// transitions when a recorder is configured. A stage error is returned
// prefixed with the stage name. Recorder failures are logged and never
// replace the stage's own result.
func Run(ctx context.Context, opts Options, fn Func) error {
	name := strings.TrimSpace(opts.Stage)
	if name == "" {
		return errors.New("stage name is required")
	}
	if fn == nil {
		return fmt.Errorf("stage function unavailable: %s", name)
	}

	stageCtx := logging.WithStage(ctx, name)
	if opts.RunID != "" {
		stageCtx = logging.WithRunID(stageCtx, opts.RunID)
	}
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", Label(name)),
	)
	if opts.Recorder != nil && opts.RunID != "" {
		if err := opts.Recorder.StartStage(stageCtx, opts.RunID, name); err != nil {
			stageLogger.Warn("failed to record stage start", logging.Error(err))
		}
	}

	start := time.Now()
	err := fn(stageCtx, stageLogger)
	elapsed := time.Since(start)

	if opts.Recorder != nil && opts.RunID != "" {
		// The stage context may already be cancelled.
		recordCtx := context.WithoutCancel(stageCtx)
		if recErr := opts.Recorder.FinishStage(recordCtx, opts.RunID, name, err); recErr != nil {
			stageLogger.Warn("failed to record stage result", logging.Error(recErr))
		}
	}

	if err != nil {
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String("failure_kind", failure.Kind(err)),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return fmt.Errorf("stage %s: %w", name, err)
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

// Label turns a stage identifier such as "beta_scaling" into "Beta Scaling".
func Label(stage string) string {
	fields := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stage))
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(strings.Join(fields, " ")))
}

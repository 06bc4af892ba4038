package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for run stage names.
	FieldStage = "stage"
	// FieldScenario is the standardized structured logging key for forecast scenarios.
	FieldScenario = "scenario"
	// FieldDraw is the standardized structured logging key for draw identifiers.
	FieldDraw = "draw"
	// FieldRunID is the standardized structured logging key for ledger run identifiers.
	FieldRunID = "run_id"
	// FieldEventType classifies lifecycle events such as stage_start.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step when an error is logged.
	FieldErrorHint = "error_hint"
)

type contextKey string

const (
	stageKey    contextKey = "stage"
	scenarioKey contextKey = "scenario"
	runIDKey    contextKey = "run_id"
)

// WithStage annotates context with the run stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithScenario annotates context with the forecast scenario name.
func WithScenario(ctx context.Context, scenario string) context.Context {
	if scenario == "" {
		return ctx
	}
	return context.WithValue(ctx, scenarioKey, scenario)
}

// ScenarioFromContext returns the scenario name if present.
func ScenarioFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scenarioKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the ledger run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the ledger run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if scenario, ok := ScenarioFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldScenario, scenario))
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

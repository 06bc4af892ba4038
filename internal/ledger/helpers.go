package ledger

import (
	"database/sql"
	"time"
)

const runColumns = `id, command, forecast_version, scenario, draws, stage, status,
    failure_kind, error_message, started_at, updated_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                            Run
		scenario, stage, kind, message sql.NullString
		status, started, updated       string
		finished                       sql.NullString
	)
	if err := row.Scan(
		&run.ID, &run.Command, &run.ForecastVersion, &scenario, &run.Draws, &stage, &status,
		&kind, &message, &started, &updated, &finished,
	); err != nil {
		return nil, err
	}
	run.Scenario = scenario.String
	run.Stage = stage.String
	run.Status = Status(status)
	run.FailureKind = kind.String
	run.ErrorMessage = message.String
	run.StartedAt = parseTimestamp(started)
	run.UpdatedAt = parseTimestamp(updated)
	run.FinishedAt = parseNullableTimestamp(finished)
	return &run, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullableTimestamp(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTimestamp(value.String)
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

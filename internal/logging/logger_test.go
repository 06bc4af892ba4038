package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seiir/internal/config"
)

func TestPrettyHandlerFormatsSubject(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := WithScenario(WithStage(context.Background(), "compute"), "reference")
	WithContext(ctx, NewComponentLogger(logger, "betascale")).Info("draw computed",
		Int(FieldDraw, 7),
		Float64("log_beta_residual_mean", 0.25),
	)

	line := buf.String()
	for _, want := range []string{"INFO", "betascale: ", "[reference · draw 7 · compute]", "draw computed", "log_beta_residual_mean=0.25"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix, got %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Info("stage completed", String(FieldStage, "persist"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload[FieldStage] != "persist" {
		t.Fatalf("expected stage attr, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Warn("written to file")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "seiir.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestContextFieldsOmitEmptyValues(t *testing.T) {
	ctx := WithRunID(WithScenario(context.Background(), ""), "run-1")
	fields := ContextFields(ctx)
	if len(fields) != 1 || fields[0].Key != FieldRunID {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seiir/internal/paths"
	"seiir/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	fixture    *testsupport.Fixture
	specPath   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	testsupport.WriteText(t, configPath, encoded)

	f := testsupport.NewForecastFixture(t)
	specPath := filepath.Join(f.Root, "forecast.yaml")
	if err := f.Spec.Dump(specPath); err != nil {
		t.Fatalf("dump specification: %v", err)
	}
	return &cliTestEnv{configPath: configPath, fixture: f, specPath: specPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("seiir %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestForecastWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)
	version := env.fixture.ForecastDir

	out := env.mustRun(t, "forecast", "prepare", "--specification", env.specPath)
	if !strings.Contains(out, "Prepared forecast version "+version) || !strings.Contains(out, "Draws: 3") {
		t.Fatalf("unexpected prepare output:\n%s", out)
	}

	out = env.mustRun(t, "check", "--forecast-version", version)
	if strings.Contains(out, "[ERROR]") || !strings.Contains(out, "Regression draws") {
		t.Fatalf("unexpected check output:\n%s", out)
	}

	out = env.mustRun(t, "beta-scaling", "--forecast-version", version, "--scenario", "reference", "--summary")
	if !strings.Contains(out, "Scenario reference: 3 draws, 2 locations") || !strings.Contains(out, "interpolated") {
		t.Fatalf("unexpected beta-scaling output:\n%s", out)
	}

	out = env.mustRun(t, "scaling", "show", "--forecast-version", version, "--scenario", "reference", "--draw", "1", "--json")
	var records []scalingRecordJSON
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode scaling json: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Draw != 1 || r.Offset == nil || r.ScaleFinal == nil {
			t.Fatalf("unexpected record: %+v", r)
		}
		if r.Location == 102 && *r.Offset != 0 {
			t.Fatalf("location 102 is above the upper threshold, offset %v", *r.Offset)
		}
	}

	out = env.mustRun(t, "scaling", "show", "--forecast-version", version, "--scenario", "reference")
	if !strings.Contains(out, "MEAN RESIDUAL") || !strings.Contains(out, "523") {
		t.Fatalf("unexpected scaling table:\n%s", out)
	}

	env.fixture.WriteOutputs(t, "reference", 3)
	out = env.mustRun(t, "postprocess", "--forecast-version", version)
	if !strings.Contains(out, "reference") || !strings.Contains(out, "R_EFFECTIVE") {
		t.Fatalf("unexpected postprocess output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(version, "reference", "postprocessing", "infections.csv")); err != nil {
		t.Fatalf("expected infections table: %v", err)
	}

	out = env.mustRun(t, "runs", "--json")
	var runs []runJSON
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs json: %v\n%s", err, out)
	}
	if len(runs) != 2 || runs[0].Command != "postprocess" || runs[1].Command != "beta-scaling" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	for _, r := range runs {
		if r.Status != "succeeded" {
			t.Fatalf("expected succeeded run, got %+v", r)
		}
	}

	out = env.mustRun(t, "runs")
	if !strings.Contains(out, "beta-scaling") {
		t.Fatalf("unexpected runs table:\n%s", out)
	}

	out = env.mustRun(t, "layout", "--forecast-version", version, "--json")
	var entries []layoutEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode layout json: %v\n%s", err, out)
	}
	want := filepath.Join(version, "reference", "beta_scaling", paths.DrawFile(0))
	found := false
	for _, e := range entries {
		if e.Path == want {
			found = e.Exists
		}
	}
	if !found {
		t.Fatalf("layout did not report existing %s", want)
	}
}

func TestBetaScalingFailureNamesStage(t *testing.T) {
	env := setupCLITestEnv(t)
	version := env.fixture.ForecastDir
	env.mustRun(t, "forecast", "prepare", "--specification", env.specPath)

	if err := os.Remove(filepath.Join(env.fixture.RegressionDir, "beta", paths.DrawFile(1))); err != nil {
		t.Fatalf("remove beta file: %v", err)
	}
	_, err := env.run(t, "beta-scaling", "--forecast-version", version, "--scenario", "reference")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "stage compute") {
		t.Fatalf("expected stage in error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(version, "reference", "beta_scaling", paths.DrawFile(0))); !os.IsNotExist(statErr) {
		t.Fatalf("expected no partial output, stat err=%v", statErr)
	}

	out := env.mustRun(t, "runs", "--json")
	var runs []runJSON
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs json: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "failed" || runs[0].Stage != "compute" || runs[0].FailureKind != "not found" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out = env.mustRun(t, "logs", "--run", runs[0].ID)
	if !strings.Contains(out, "stage failed") || !strings.Contains(out, runs[0].ID) {
		t.Fatalf("expected stage failure in run log:\n%s", out)
	}
}

func TestBetaScalingRequiresFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "beta-scaling", "--scenario", "reference"); err == nil {
		t.Fatal("expected missing --forecast-version error")
	}
	if _, err := env.run(t, "beta-scaling", "--forecast-version", env.fixture.ForecastDir, "--scenario", "reference"); err == nil {
		t.Fatal("expected error for unprepared forecast version")
	}
}

func TestCheckReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	version := env.fixture.ForecastDir
	env.mustRun(t, "forecast", "prepare", "--specification", env.specPath)
	if err := os.Remove(filepath.Join(env.fixture.RegressionDir, "dates", paths.DrawFile(2))); err != nil {
		t.Fatalf("remove dates file: %v", err)
	}
	out, err := env.run(t, "check", "--forecast-version", version)
	if err == nil {
		t.Fatalf("expected check failure:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected error line:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "seiir", "config.toml")

	out := env.mustRun(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output:\n%s", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")

	out = env.mustRun(t, "config", "show")
	if !strings.Contains(out, "[workers]") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected show output:\n%s", out)
	}
	out = env.mustRun(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
}

func TestLogLevelOverrideValidated(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "--log-level", "chatty", "config", "show"); err == nil {
		t.Fatal("expected invalid log level error")
	}
}

package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seiir/internal/forecastdata"
	"seiir/internal/paths"
	"seiir/internal/testsupport"
)

func openFixture(t *testing.T, f *testsupport.Fixture) *forecastdata.Interface {
	t.Helper()
	data, err := forecastdata.FromSpecification(f.Spec)
	if err != nil {
		t.Fatalf("FromSpecification: %v", err)
	}
	return data
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	for _, access := range []Access{AccessRead, AccessWrite} {
		result := CheckDirectoryAccess("test", dir, access)
		if !result.Passed {
			t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
		}
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), AccessRead)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, AccessRead)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if result := CheckDirectoryAccess("test", dir, AccessRead); !result.Passed {
		t.Fatalf("expected read pass, got: %s", result.Detail)
	}
	if result := CheckDirectoryAccess("test", dir, AccessWrite); result.Passed {
		t.Fatal("expected write failure for read-only dir")
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	root := t.TempDir()
	result := CheckCreatableDirectory("forecast", filepath.Join(root, "a", "b"))
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable pass, got: %+v", result)
	}
	if result := CheckCreatableDirectory("forecast", root); !result.Passed {
		t.Fatalf("expected pass for existing dir, got: %s", result.Detail)
	}
}

func TestRunAll_Fixture(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg, openFixture(t, f))
	if len(results) != 9 {
		t.Fatalf("expected 9 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_NilInputs(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestRunAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if results := RunAll(ctx, testsupport.NewConfig(t), nil); len(results) != 0 {
		t.Fatalf("expected no results after cancel, got %+v", results)
	}
}

func TestCheckRegressionDraws_Missing(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	if err := os.Remove(filepath.Join(f.RegressionDir, "beta", paths.DrawFile(1))); err != nil {
		t.Fatal(err)
	}
	result := CheckRegressionDraws(openFixture(t, f))
	if result.Passed || !strings.Contains(result.Detail, "1 files missing") {
		t.Fatalf("expected missing file failure, got: %+v", result)
	}
}

func TestCheckInfections_Ambiguous(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	if err := os.MkdirAll(filepath.Join(f.InfectionDir, "Other_102"), 0o755); err != nil {
		t.Fatal(err)
	}
	result := CheckInfections(openFixture(t, f))
	if result.Passed || !strings.Contains(result.Detail, "1 ambiguous") {
		t.Fatalf("expected ambiguous failure, got: %+v", result)
	}
}

func TestCheckCovariates_MissingScenarioFile(t *testing.T) {
	f := testsupport.NewForecastFixture(t)
	f.Spec.Scenarios[0].Covariates["mobility"] = "worse"
	result := CheckCovariates(openFixture(t, f))
	if result.Passed {
		t.Fatal("expected failure for missing covariate scenario file")
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"seiir/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "seiir", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.LedgerPath != filepath.Join(tempHome, ".local", "share", "seiir", "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Workers.Scaling != 30 || cfg.Workers.Outputs != 30 || cfg.Workers.Measures != 3 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Workers)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "seiir.toml")

	type payload struct {
		Paths struct {
			LogDir     string `toml:"log_dir"`
			LedgerPath string `toml:"ledger_path"`
		} `toml:"paths"`
		Workers struct {
			Scaling int `toml:"scaling"`
		} `toml:"workers"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Paths.LedgerPath = ""
	custom.Workers.Scaling = 4
	custom.Logging.Format = " JSON "
	custom.Logging.Level = "DEBUG"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Workers.Scaling != 4 {
		t.Fatalf("unexpected scaling workers: %d", cfg.Workers.Scaling)
	}
	if cfg.Workers.Measures != 3 {
		t.Fatalf("expected unset measures workers to keep default, got %d", cfg.Workers.Measures)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging settings, got %+v", cfg.Logging)
	}
	if cfg.Paths.LedgerPath != "" {
		t.Fatalf("expected ledger to be disabled, got %q", cfg.Paths.LedgerPath)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative scaling", func(c *config.Config) { c.Workers.Scaling = -1 }, "workers.scaling"},
		{"negative measures", func(c *config.Config) { c.Workers.Measures = -2 }, "workers.measures"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "seiir.toml")
	if err := os.WriteFile(configPath, []byte("[workers]\nthreads = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Workers.Scaling != 30 {
		t.Fatalf("unexpected sample scaling workers: %d", cfg.Workers.Scaling)
	}
}

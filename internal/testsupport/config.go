package testsupport

import (
	"path/filepath"
	"testing"

	"seiir/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Worker pools default to small sizes so tests exercise real fan-out.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfgVal.Workers = config.Workers{Scaling: 2, Outputs: 2, Measures: 2}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides every pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers = config.Workers{Scaling: n, Outputs: n, Measures: n}
	}
}

// WithoutLedger disables the run ledger.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LedgerPath = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

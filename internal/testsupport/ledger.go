package testsupport

import (
	"context"
	"testing"

	"seiir/internal/config"
	"seiir/internal/ledger"
)

// MustOpenLedger opens the run ledger configured in cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(context.Background(), cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

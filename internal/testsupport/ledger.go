package testsupport

import (
	"context"
	"testing"

	"dubber/internal/jobs"
)

// MustOpenLedger opens an in-memory job ledger and registers cleanup.
func MustOpenLedger(t testing.TB) *jobs.Ledger {
	t.Helper()

	ledger, err := jobs.Open(context.Background())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = ledger.Close()
	})
	return ledger
}

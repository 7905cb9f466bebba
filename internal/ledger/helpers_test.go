package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestLedger opens a ledger in a temp directory for testing.
func createTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func passAt(runID, tc, profile, req string, elapsed time.Duration) Assertion {
	return Assertion{
		RunID:         runID,
		TestCaseID:    tc,
		AssertionID:   tc + "-" + profile,
		Message:       "call returned",
		ProfileID:     profile,
		RequirementID: req,
		Outcome:       OutcomePass,
		Timed:         true,
		Elapsed:       elapsed,
		Method:        "addEntity",
	}
}

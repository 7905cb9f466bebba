package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/ledger"
)

// seedLedger writes assertions to a fresh ledger file and returns its path.
func seedLedger(t *testing.T, assertions ...ledger.Assertion) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.db")
	led, err := ledger.Open(path)
	require.NoError(t, err)
	for _, a := range assertions {
		_, err := led.Append(context.Background(), a)
		require.NoError(t, err)
	}
	require.NoError(t, led.Close())
	return path
}

func assertion(runID, tc string, outcome ledger.Outcome) ledger.Assertion {
	return ledger.Assertion{
		RunID:       runID,
		TestCaseID:  tc,
		AssertionID: tc + "-repository-service",
		Message:     "call returned",
		ProfileID:   "repository-service",
		Outcome:     outcome,
		Timed:       true,
		Elapsed:     3 * time.Millisecond,
		Method:      "addEntity",
	}
}

func TestReport_AfterProbe(t *testing.T) {
	ledgerPath := filepath.Join(t.TempDir(), "probe.db")
	_, _, err := execute(t, "probe",
		"--types", typedefsDir,
		"--config", probeConfig,
		"--ledger", ledgerPath,
		"--supported", supportedTypes,
	)
	require.NoError(t, err)

	out, _, err := execute(t, "report", "--ledger", ledgerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run cli-run:")
	assert.Contains(t, out, "result: CONFORMANT")
}

func TestReport_DefaultsToMostRecentRun(t *testing.T) {
	path := seedLedger(t,
		assertion("first", "entity-create-DataFile", ledger.OutcomeFail),
		assertion("second", "entity-create-DataFile", ledger.OutcomePass),
		assertion("second", "entity-update-DataFile", ledger.OutcomeNotSupported),
	)

	out, _, err := execute(t, "--format", "json", "report", "--ledger", path)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ledger.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "second", resp.Data.RunID)
	assert.Equal(t, ledger.Counts{Pass: 1, NotSupported: 1}, resp.Data.Totals)
}

func TestReport_FailingRunExitsOne(t *testing.T) {
	path := seedLedger(t,
		assertion("first", "entity-create-DataFile", ledger.OutcomeFail),
		assertion("second", "entity-create-DataFile", ledger.OutcomePass),
	)

	out, _, err := execute(t, "report", "--ledger", path, "--run", "first")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 failure(s)")
	assert.Contains(t, out, "result: NOT CONFORMANT")
}

func TestReport_ListRuns(t *testing.T) {
	path := seedLedger(t,
		assertion("first", "entity-create-DataFile", ledger.OutcomeFail),
		assertion("second", "entity-create-DataFile", ledger.OutcomePass),
		assertion("second", "entity-delete-DataFile", ledger.OutcomePass),
	)

	out, _, err := execute(t, "--format", "json", "report", "--ledger", path, "--list")
	require.NoError(t, err)

	var resp struct {
		Data []ledger.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []ledger.Run{
		{ID: "first", Assertions: 1, Failures: 1},
		{ID: "second", Assertions: 2, Failures: 0},
	}, resp.Data)

	text, _, err := execute(t, "report", "--ledger", path, "--list")
	require.NoError(t, err)
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "1 failure(s)")
}

func TestReport_ListEmptyLedger(t *testing.T) {
	out, _, err := execute(t, "report", "--ledger", seedLedger(t), "--list")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded\n", out)
}

func TestReport_Errors(t *testing.T) {
	populated := seedLedger(t, assertion("only", "entity-create-DataFile", ledger.OutcomePass))

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantText string
	}{
		{
			name:     "missing ledger",
			args:     []string{"--ledger", filepath.Join(t.TempDir(), "absent.db")},
			wantCode: ErrCodeNotFound,
			wantText: "ledger not found",
		},
		{
			name:     "unknown run",
			args:     []string{"--ledger", populated, "--run", "nightly"},
			wantCode: ErrCodeNotFound,
			wantText: `run "nightly" not found`,
		},
		{
			name:     "empty ledger",
			args:     []string{"--ledger", seedLedger(t)},
			wantCode: ErrCodeLedger,
			wantText: "ledger holds no runs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"report"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantCode)
			assert.Contains(t, out, tt.wantText)
		})
	}
}

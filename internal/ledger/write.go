package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/cohort/internal/instance"
)

// Append records an assertion and returns its sequence number.
func (l *Ledger) Append(ctx context.Context, a Assertion) (int64, error) {
	if _, err := ParseOutcome(string(a.Outcome)); err != nil {
		return 0, fmt.Errorf("append assertion: %w", err)
	}
	if a.RunID == "" || a.TestCaseID == "" || a.ProfileID == "" {
		return 0, fmt.Errorf("append assertion: run id, test case id and profile id are required")
	}

	discovered, err := marshalObject(a.Discovered)
	if err != nil {
		return 0, fmt.Errorf("append assertion %s: %w", a.AssertionID, err)
	}
	var elapsed sql.NullInt64
	if a.Timed {
		elapsed = sql.NullInt64{Int64: a.Elapsed.Microseconds(), Valid: true}
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO assertions
		(run_id, test_case_id, assertion_id, message, profile_id, requirement_id, outcome, elapsed_us, method, discovered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.RunID,
		a.TestCaseID,
		a.AssertionID,
		a.Message,
		a.ProfileID,
		a.RequirementID,
		string(a.Outcome),
		elapsed,
		a.Method,
		discovered,
	)
	if err != nil {
		return 0, fmt.Errorf("append assertion: %w", err)
	}
	return res.LastInsertId()
}

// Discover records a discovered property for a test case.
func (l *Ledger) Discover(ctx context.Context, runID, testCaseID, key string, value any) error {
	data, err := instance.MarshalCanonical(value)
	if err != nil {
		return fmt.Errorf("discover %s: %w", key, err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO discovered_properties (run_id, test_case_id, key, value)
		VALUES (?, ?, ?, ?)
	`, runID, testCaseID, key, string(data))
	if err != nil {
		return fmt.Errorf("discover %s: %w", key, err)
	}
	return nil
}

// RecordTestCase inserts or updates a test case row. The first insert fixes
// its position in TestCases.
func (l *Ledger) RecordTestCase(ctx context.Context, tc TestCase) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO test_cases (run_id, test_case_id, type_name, status, profile_id, requirement_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, test_case_id) DO UPDATE SET
			type_name = excluded.type_name,
			status = excluded.status,
			profile_id = excluded.profile_id,
			requirement_id = excluded.requirement_id
	`, tc.RunID, tc.ID, tc.TypeName, tc.Status, tc.ProfileID, tc.RequirementID)
	if err != nil {
		return fmt.Errorf("record test case %s: %w", tc.ID, err)
	}
	return nil
}

func marshalObject(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := instance.MarshalCanonical(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Assertions returns the assertions of a run matching f, in append order.
// Returns an empty slice (not nil) when nothing matches.
func (l *Ledger) Assertions(ctx context.Context, runID string, f Filter) ([]Assertion, error) {
	where := []string{"run_id = ?"}
	params := []any{runID}
	if f.TestCaseID != "" {
		where = append(where, "test_case_id = ?")
		params = append(params, f.TestCaseID)
	}
	if f.ProfileID != "" {
		where = append(where, "profile_id = ?")
		params = append(params, f.ProfileID)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		params = append(params, string(f.Outcome))
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, run_id, test_case_id, assertion_id, message, profile_id, requirement_id,
		       outcome, elapsed_us, method, discovered
		FROM assertions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY seq ASC
	`, params...)
	if err != nil {
		return nil, fmt.Errorf("query assertions: %w", err)
	}
	defer rows.Close()

	out := []Assertion{}
	for rows.Next() {
		a, err := scanAssertion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assertions: %w", err)
	}
	return out, nil
}

func scanAssertion(rows *sql.Rows) (Assertion, error) {
	var (
		a          Assertion
		outcome    string
		elapsed    sql.NullInt64
		discovered string
	)
	if err := rows.Scan(&a.Seq, &a.RunID, &a.TestCaseID, &a.AssertionID, &a.Message, &a.ProfileID,
		&a.RequirementID, &outcome, &elapsed, &a.Method, &discovered); err != nil {
		return Assertion{}, fmt.Errorf("scan assertion: %w", err)
	}
	a.Outcome = Outcome(outcome)
	if elapsed.Valid {
		a.Timed = true
		a.Elapsed = time.Duration(elapsed.Int64) * time.Microsecond
	}
	m, err := unmarshalValue(discovered)
	if err != nil {
		return Assertion{}, fmt.Errorf("assertion %d discovered: %w", a.Seq, err)
	}
	if obj, ok := m.(map[string]any); ok && len(obj) > 0 {
		a.Discovered = obj
	}
	return a, nil
}

// Discovered returns the discovered properties of a run in append order.
func (l *Ledger) Discovered(ctx context.Context, runID string) ([]Property, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, run_id, test_case_id, key, value
		FROM discovered_properties
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query discovered properties: %w", err)
	}
	defer rows.Close()

	out := []Property{}
	for rows.Next() {
		var (
			p   Property
			raw string
		)
		if err := rows.Scan(&p.Seq, &p.RunID, &p.TestCaseID, &p.Key, &raw); err != nil {
			return nil, fmt.Errorf("scan discovered property: %w", err)
		}
		if p.Value, err = unmarshalValue(raw); err != nil {
			return nil, fmt.Errorf("discovered property %s: %w", p.Key, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discovered properties: %w", err)
	}
	return out, nil
}

// TestCases returns the test cases of a run in first-recorded order.
func (l *Ledger) TestCases(ctx context.Context, runID string) ([]TestCase, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, run_id, test_case_id, type_name, status, profile_id, requirement_id
		FROM test_cases
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query test cases: %w", err)
	}
	defer rows.Close()

	out := []TestCase{}
	for rows.Next() {
		var tc TestCase
		if err := rows.Scan(&tc.Seq, &tc.RunID, &tc.ID, &tc.TypeName, &tc.Status, &tc.ProfileID, &tc.RequirementID); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test cases: %w", err)
	}
	return out, nil
}

// Runs lists every run in the ledger, oldest first.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), SUM(CASE WHEN outcome = 'fail' THEN 1 ELSE 0 END)
		FROM assertions
		GROUP BY run_id
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Assertions, &r.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// unmarshalValue decodes stored JSON. Integral numbers come back as int64
// and others as float64, so counters survive a round trip unchanged.
func unmarshalValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i, elem := range val {
			val[i] = normalizeNumbers(elem)
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeNumbers(elem)
		}
		return val
	default:
		return v
	}
}

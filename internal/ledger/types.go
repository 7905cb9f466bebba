package ledger

import (
	"fmt"
	"time"
)

// Outcome is the result class of one assertion.
type Outcome string

const (
	OutcomePass         Outcome = "pass"
	OutcomeFail         Outcome = "fail"
	OutcomeNotSupported Outcome = "not_supported"
)

// ParseOutcome accepts the stored outcome names.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomePass, OutcomeFail, OutcomeNotSupported:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Assertion is one recorded probe outcome. Immutable once appended.
type Assertion struct {
	Seq           int64 // assigned by the ledger
	RunID         string
	TestCaseID    string
	AssertionID   string
	Message       string
	ProfileID     string
	RequirementID string // optional
	Outcome       Outcome
	Timed         bool
	Elapsed       time.Duration // meaningful when Timed
	Method        string
	Discovered    map[string]any
}

// TestCase tracks one probe test case through its status machine.
type TestCase struct {
	Seq           int64
	RunID         string
	ID            string
	TypeName      string
	Status        string
	ProfileID     string
	RequirementID string
}

// Property is a free-form discovered property reported by a test case.
type Property struct {
	Seq        int64  `json:"seq"`
	RunID      string `json:"run_id"`
	TestCaseID string `json:"test_case_id"`
	Key        string `json:"key"`
	Value      any    `json:"value"`
}

// Run summarizes one probe run held in the ledger.
type Run struct {
	ID         string `json:"id"`
	Assertions int    `json:"assertions"`
	Failures   int    `json:"failures"`
}

// Filter narrows Assertions. Zero fields match everything.
type Filter struct {
	TestCaseID string
	ProfileID  string
	Outcome    Outcome
}

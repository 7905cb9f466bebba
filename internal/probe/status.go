package probe

import "fmt"

// Status is the state of a test case.
type Status int

const (
	StatusNotRun Status = iota
	StatusRunning
	StatusPassed
	StatusFailed
	StatusNotSupported
)

var statusNames = []string{
	StatusNotRun:       "NOT_RUN",
	StatusRunning:      "RUNNING",
	StatusPassed:       "PASSED",
	StatusFailed:       "FAILED",
	StatusNotSupported: "NOT_SUPPORTED",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusNotSupported
}

// validTransitions lists the allowed target states per state.
var validTransitions = map[Status][]Status{
	StatusNotRun:  {StatusRunning},
	StatusRunning: {StatusPassed, StatusFailed, StatusNotSupported},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves *s to next or returns an error naming the illegal move.
func transition(s *Status, next Status) error {
	if !CanTransition(*s, next) {
		return fmt.Errorf("illegal test case transition %s -> %s", *s, next)
	}
	*s = next
	return nil
}

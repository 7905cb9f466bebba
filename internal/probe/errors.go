package probe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/cohort/internal/repository"
)

// ProbeError is a failed remote call or verification, with enough context
// to reproduce it.
type ProbeError struct {
	TestCaseID string
	Method     repository.Operation
	Operation  string // human-readable description of the step
	Params     map[string]any
	Elapsed    time.Duration
	Timed      bool
	Attribution
	Err error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s failed", e.TestCaseID, e.Operation)
	if e.Method != "" {
		fmt.Fprintf(&b, " (%s)", e.Method)
	}
	if len(e.Params) > 0 {
		keys := make([]string, 0, len(e.Params))
		for k := range e.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Params[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// IsProbeError reports whether err wraps a *ProbeError.
func IsProbeError(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe)
}

// notSupportedStop ends a case after its not-supported assertion has been
// recorded.
type notSupportedStop struct {
	method repository.Operation
	err    error
}

func (e *notSupportedStop) Error() string {
	return fmt.Sprintf("%s not supported: %v", e.method, e.err)
}

func (e *notSupportedStop) Unwrap() error { return e.err }

// IsNotSupported reports whether err stopped a case because the repository
// declined an operation.
func IsNotSupported(err error) bool {
	var ns *notSupportedStop
	return errors.As(err, &ns)
}

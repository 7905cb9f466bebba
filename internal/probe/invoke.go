package probe

import (
	"context"
	"time"

	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository"
)

// CallOutcome tags the result of one remote call.
type CallOutcome int

const (
	CallPass CallOutcome = iota + 1
	CallNotSupported
	CallFail
)

func (o CallOutcome) String() string {
	switch o {
	case CallPass:
		return "pass"
	case CallNotSupported:
		return "not_supported"
	case CallFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Call describes a remote call for attribution and error context.
type Call struct {
	Method      repository.Operation
	Description string
	Params      map[string]any
	Attribution
}

// CallResult is the tagged result of invoke.
type CallResult[T any] struct {
	Value   T
	Outcome CallOutcome
	Elapsed time.Duration
	Err     error
}

// OK reports whether the call passed.
func (c CallResult[T]) OK() bool { return c.Outcome == CallPass }

// Stop returns the error a workload returns to end its case: a
// not-supported stop or the *ProbeError. Nil for a passing call.
func (c CallResult[T]) Stop() error {
	return c.Err
}

// invoke makes one timed remote call and records its assertion. Pass and
// not-supported outcomes are recorded here; a fail is returned as a
// *ProbeError for the runner to record.
//
// The call runs under a context that ignores cancellation so that a started
// call always completes and is recorded.
func invoke[T any](ctx context.Context, r *Run, c Call, fn func(context.Context) (T, error)) CallResult[T] {
	start := r.clock.Now()
	v, err := fn(context.WithoutCancel(ctx))
	elapsed := r.clock.Now().Sub(start)

	res := CallResult[T]{Value: v, Elapsed: elapsed}
	switch {
	case err == nil:
		res.Outcome = CallPass
		r.count(c.Method, true)
		r.record(ctx, ledger.Assertion{
			Message:       c.Description + " returned",
			ProfileID:     c.ProfileID,
			RequirementID: c.RequirementID,
			Outcome:       ledger.OutcomePass,
			Timed:         true,
			Elapsed:       elapsed,
			Method:        string(c.Method),
		})
	case repository.IsNotSupported(err):
		res.Outcome = CallNotSupported
		res.Err = &notSupportedStop{method: c.Method, err: err}
		r.record(ctx, ledger.Assertion{
			Message:       c.Description + " is not supported",
			ProfileID:     c.ProfileID,
			RequirementID: c.RequirementID,
			Outcome:       ledger.OutcomeNotSupported,
			Timed:         true,
			Elapsed:       elapsed,
			Method:        string(c.Method),
		})
	default:
		res.Outcome = CallFail
		r.count(c.Method, false)
		res.Err = &ProbeError{
			TestCaseID:  r.Case.ID(),
			Method:      c.Method,
			Operation:   c.Description,
			Params:      c.Params,
			Elapsed:     elapsed,
			Timed:       true,
			Attribution: c.Attribution,
			Err:         err,
		}
	}
	r.observer.ObserveCall(string(c.Method), res.Outcome.String(), elapsed)
	return res
}

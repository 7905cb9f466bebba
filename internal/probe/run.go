package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/synth"
)

// Attribution names the conformance dimension an assertion counts toward.
type Attribution struct {
	ProfileID     string
	RequirementID string
}

// TestCase is one unit of probe work against one type.
type TestCase interface {
	ID() string
	// TypeName is the type the case exercises. Cases with the same type
	// never run concurrently.
	TypeName() string
	// Defaults attributes failures that escape the case, panics included.
	Defaults() Attribution
	Run(ctx context.Context, r *Run) error
}

// Related is implemented by cases that also create or mutate instances of
// types other than TypeName. The runner serializes them with those types.
type Related interface {
	RelatedTypes() []string
}

// Sink receives assertions and discovered properties. *ledger.Ledger
// implements it.
type Sink interface {
	Append(ctx context.Context, a ledger.Assertion) (int64, error)
	Discover(ctx context.Context, runID, testCaseID, key string, value any) error
	RecordTestCase(ctx context.Context, tc ledger.TestCase) error
}

// Observer receives one observation per timed call.
type Observer interface {
	ObserveCall(method string, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, string, time.Duration) {}

// Clock measures call durations.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Run is the context handed to one executing test case.
type Run struct {
	ID        string
	Case      TestCase
	Repo      repository.MetadataCollection
	Types     *lattice.Lattice
	Synth     *synth.Synthesizer
	Supported lattice.NameSet
	GUIDs     instance.GUIDGenerator

	// Instances is how many instances batched workloads touch.
	Instances int

	// Classification is the classification type the classify workload
	// attaches. Empty skips it.
	Classification string

	// Events, when set, receives the repository's published events so
	// workloads can check them.
	Events *event.Recorder

	sink     Sink
	clock    Clock
	logger   *slog.Logger
	observer Observer

	mu       sync.Mutex
	seq      int
	counters map[repository.Operation]*counter
	sinkErr  error
}

type counter struct {
	successes int
	failures  int
}

func (r *Run) count(method repository.Operation, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counters == nil {
		r.counters = map[repository.Operation]*counter{}
	}
	c := r.counters[method]
	if c == nil {
		c = &counter{}
		r.counters[method] = c
	}
	if ok {
		c.successes++
	} else {
		c.failures++
	}
}

// record appends a to the sink. Sink failures are kept and reported by the
// runner; the case carries on.
func (r *Run) record(ctx context.Context, a ledger.Assertion) {
	r.mu.Lock()
	r.seq++
	a.RunID = r.ID
	a.TestCaseID = r.Case.ID()
	a.AssertionID = fmt.Sprintf("%s-%04d", r.Case.ID(), r.seq)
	r.mu.Unlock()

	if a.ProfileID == "" {
		d := r.Case.Defaults()
		a.ProfileID, a.RequirementID = d.ProfileID, d.RequirementID
	}
	if _, err := r.sink.Append(context.WithoutCancel(ctx), a); err != nil {
		r.logger.Error("append assertion failed", "test_case", a.TestCaseID, "assertion", a.AssertionID, "error", err)
		r.mu.Lock()
		if r.sinkErr == nil {
			r.sinkErr = err
		}
		r.mu.Unlock()
	}
}

// Discover records a free-form discovered property for the case.
func (r *Run) Discover(ctx context.Context, key string, value any) {
	if err := r.sink.Discover(context.WithoutCancel(ctx), r.ID, r.Case.ID(), key, value); err != nil {
		r.logger.Error("record discovered property failed", "test_case", r.Case.ID(), "key", key, "error", err)
		r.mu.Lock()
		if r.sinkErr == nil {
			r.sinkErr = err
		}
		r.mu.Unlock()
	}
}

// Pass records an untimed pass assertion for a verification step.
func (r *Run) Pass(ctx context.Context, at Attribution, method repository.Operation, message string) {
	r.record(ctx, ledger.Assertion{
		Message:       message,
		ProfileID:     at.ProfileID,
		RequirementID: at.RequirementID,
		Outcome:       ledger.OutcomePass,
		Method:        string(method),
	})
}

// Verify returns a *ProbeError when ok is false.
func (r *Run) Verify(ok bool, at Attribution, method repository.Operation, params map[string]any, format string, args ...any) error {
	if ok {
		return nil
	}
	r.count(method, false)
	return &ProbeError{
		TestCaseID:  r.Case.ID(),
		Method:      method,
		Operation:   "verify " + string(method),
		Params:      params,
		Attribution: at,
		Err:         fmt.Errorf(format, args...),
	}
}

// flushCounters writes the per-method success/failure counters as
// discovered properties.
func (r *Run) flushCounters(ctx context.Context) {
	r.mu.Lock()
	methods := make([]string, 0, len(r.counters))
	for m := range r.counters {
		methods = append(methods, string(m))
	}
	counters := r.counters
	r.mu.Unlock()

	sort.Strings(methods)
	for _, m := range methods {
		c := counters[repository.Operation(m)]
		r.Discover(ctx, m+".successes", c.successes)
		r.Discover(ctx, m+".failures", c.failures)
	}
}

// Counters returns the success and failure counts recorded for method.
func (r *Run) Counters(method repository.Operation) (successes, failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.counters[method]; c != nil {
		return c.successes, c.failures
	}
	return 0, 0
}

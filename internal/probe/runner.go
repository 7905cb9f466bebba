package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/synth"
)

// CaseResult is the final state of one test case.
type CaseResult struct {
	ID       string `json:"id"`
	TypeName string `json:"type"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Summary covers every case handed to the runner, including those never
// started because the run was cancelled.
type Summary struct {
	RunID        string       `json:"run_id"`
	Cases        []CaseResult `json:"cases"`
	Passed       int          `json:"passed"`
	Failed       int          `json:"failed"`
	NotSupported int          `json:"not_supported"`
	NotRun       int          `json:"not_run"`
}

// OK reports whether no case failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Runner executes test cases against one repository.
//
// Thread-safety: a Runner may be reused for several runs but not for two
// at once.
type Runner struct {
	repo     repository.MetadataCollection
	types    *lattice.Lattice
	sink     Sink
	cfg      *Config
	synth    *synth.Synthesizer
	clock    Clock
	logger   *slog.Logger
	observer Observer
	events   *event.Recorder
	guids    instance.GUIDGenerator

	supported lattice.NameSet

	mu      sync.Mutex
	sinkErr []error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock used to time calls.
func WithClock(c Clock) RunnerOption {
	return func(rn *Runner) {
		rn.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(rn *Runner) {
		rn.logger = l
	}
}

// WithObserver receives one observation per timed call.
func WithObserver(o Observer) RunnerOption {
	return func(rn *Runner) {
		rn.observer = o
	}
}

// WithEvents attaches the recorder the repository publishes into, enabling
// the event checks of the create workloads.
func WithEvents(rec *event.Recorder) RunnerOption {
	return func(rn *Runner) {
		rn.events = rec
	}
}

// WithGUIDGenerator sets the source of GUIDs for reidentify.
func WithGUIDGenerator(g instance.GUIDGenerator) RunnerOption {
	return func(rn *Runner) {
		rn.guids = g
	}
}

// WithSynthesizer replaces the default synthesizer.
func WithSynthesizer(s *synth.Synthesizer) RunnerOption {
	return func(rn *Runner) {
		rn.synth = s
	}
}

// NewRunner returns a runner for cfg, which must already be validated.
func NewRunner(repo repository.MetadataCollection, types *lattice.Lattice, sink Sink, cfg *Config, opts ...RunnerOption) *Runner {
	rn := &Runner{
		repo:     repo,
		types:    types,
		sink:     sink,
		cfg:      cfg,
		clock:    systemClock{},
		logger:   slog.Default(),
		observer: nopObserver{},
		guids:    instance.RandomGUIDs{},
	}
	for _, opt := range opts {
		opt(rn)
	}
	if rn.synth == nil {
		rn.synth = synth.New(types)
	}
	return rn
}

// Plan builds the cases for the runner's configuration.
func (rn *Runner) Plan(ctx context.Context) ([]TestCase, error) {
	cases, supported, err := Plan(ctx, rn.types, rn.repo, rn.cfg)
	if err != nil {
		return nil, err
	}
	rn.supported = supported
	return cases, nil
}

// Run plans and executes the configured cases.
func (rn *Runner) Run(ctx context.Context) (Summary, error) {
	cases, err := rn.Plan(ctx)
	if err != nil {
		return Summary{RunID: rn.cfg.RunID, Cases: []CaseResult{}}, err
	}
	return rn.RunCases(ctx, cases)
}

// RunCases executes cases. Cases with the same type run one after another
// in the given order; different types run concurrently. Cancelling ctx
// stops new cases from starting. The returned error reports ledger write
// failures only; the summary is complete either way.
func (rn *Runner) RunCases(ctx context.Context, cases []TestCase) (Summary, error) {
	rn.sinkErr = nil
	if rn.supported == nil {
		names, err := rn.repo.SupportedTypes(context.WithoutCancel(ctx))
		if err != nil {
			rn.logger.Warn("supported types unavailable", "error", err)
		}
		rn.supported = lattice.NewNameSet(names...)
	}

	results := make([]CaseResult, len(cases))
	for i, c := range cases {
		results[i] = CaseResult{ID: c.ID(), TypeName: c.TypeName(), Status: StatusNotRun}
	}
	order, groups := serialGroups(cases)

	rn.logger.Info("probe run started", "run", rn.cfg.RunID, "cases", len(cases), "groups", len(order))

	var g errgroup.Group
	g.SetLimit(max(rn.cfg.Concurrency, 1))
	for _, key := range order {
		idxs := groups[key]
		g.Go(func() error {
			for _, i := range idxs {
				if ctx.Err() != nil {
					return nil
				}
				results[i] = rn.runCase(ctx, cases[i])
			}
			return nil
		})
	}
	_ = g.Wait() // case goroutines never return errors

	s := Summary{RunID: rn.cfg.RunID, Cases: results}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusNotSupported:
			s.NotSupported++
		default:
			s.NotRun++
		}
	}
	rn.logger.Info("probe run finished",
		"run", rn.cfg.RunID,
		"passed", s.Passed,
		"failed", s.Failed,
		"not_supported", s.NotSupported,
		"not_run", s.NotRun,
	)

	rn.mu.Lock()
	defer rn.mu.Unlock()
	return s, errors.Join(rn.sinkErr...)
}

func (rn *Runner) runCase(ctx context.Context, c TestCase) CaseResult {
	run := &Run{
		ID:             rn.cfg.RunID,
		Case:           c,
		Repo:           rn.repo,
		Types:          rn.types,
		Synth:          rn.synth,
		Supported:      rn.supported,
		GUIDs:          rn.guids,
		Instances:      rn.cfg.InstancesPerType,
		Classification: rn.cfg.Classification,
		Events:         rn.events,
		sink:           rn.sink,
		clock:          rn.clock,
		logger:         rn.logger.With("test_case", c.ID()),
		observer:       rn.observer,
	}
	result := CaseResult{ID: c.ID(), TypeName: c.TypeName(), Status: StatusNotRun}

	status := StatusNotRun
	_ = transition(&status, StatusRunning)
	rn.recordCase(ctx, c, status)
	run.logger.Debug("test case started", "type", c.TypeName())

	err := execute(ctx, c, run)
	switch {
	case err == nil:
		_ = transition(&status, StatusPassed)
	case IsNotSupported(err):
		_ = transition(&status, StatusNotSupported)
		run.logger.Info("test case stopped: not supported", "reason", err)
	default:
		_ = transition(&status, StatusFailed)
		rn.recordFailure(ctx, run, err)
		result.Error = err.Error()
		run.logger.Warn("test case failed", "error", err)
	}

	run.flushCounters(ctx)
	rn.recordCase(ctx, c, status)
	if run.sinkErr != nil {
		rn.addSinkErr(run.sinkErr)
	}

	result.Status = status
	return result
}

// execute runs the case, converting a panic into an error.
func execute(ctx context.Context, c TestCase, run *Run) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("test case %s panicked: %v", c.ID(), p)
		}
	}()
	return c.Run(ctx, run)
}

func (rn *Runner) recordFailure(ctx context.Context, run *Run, err error) {
	a := ledger.Assertion{
		Message: err.Error(),
		Outcome: ledger.OutcomeFail,
	}
	var pe *ProbeError
	if errors.As(err, &pe) {
		a.ProfileID = pe.ProfileID
		a.RequirementID = pe.RequirementID
		a.Method = string(pe.Method)
		a.Timed = pe.Timed
		a.Elapsed = pe.Elapsed
	}
	run.record(ctx, a)
}

func (rn *Runner) recordCase(ctx context.Context, c TestCase, status Status) {
	d := c.Defaults()
	err := rn.sink.RecordTestCase(context.WithoutCancel(ctx), ledger.TestCase{
		RunID:         rn.cfg.RunID,
		ID:            c.ID(),
		TypeName:      c.TypeName(),
		Status:        status.String(),
		ProfileID:     d.ProfileID,
		RequirementID: d.RequirementID,
	})
	if err != nil {
		rn.logger.Error("record test case failed", "test_case", c.ID(), "error", err)
		rn.addSinkErr(err)
	}
}

func (rn *Runner) addSinkErr(err error) {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.sinkErr = append(rn.sinkErr, err)
}

// serialGroups partitions cases into groups that must run one after
// another: cases sharing a type, directly or through RelatedTypes, land in
// the same group. Groups and the cases within them keep input order.
func serialGroups(cases []TestCase) ([]string, map[string][]int) {
	parent := map[string]string{}
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, c := range cases {
		find(c.TypeName())
		if rel, ok := c.(Related); ok {
			for _, t := range rel.RelatedTypes() {
				union(c.TypeName(), t)
			}
		}
	}

	var order []string
	groups := map[string][]int{}
	for i, c := range cases {
		key := find(c.TypeName())
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	return order, groups
}

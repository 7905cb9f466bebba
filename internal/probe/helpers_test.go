package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository/memory"
	"github.com/roach88/cohort/internal/testutil"
)

var ctx = context.Background()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	types  *lattice.Lattice
	repo   *memory.Repository
	events *event.Recorder
	ledger *ledger.Ledger
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	types := testutil.FixtureLattice(t)
	rec := event.NewRecorder()
	base := []memory.Option{
		memory.WithPublisher(rec),
		memory.WithGUIDGenerator(testutil.NewSequentialGUIDs()),
		memory.WithClock(testutil.NewStepClock(time.Second)),
		memory.WithLogger(discardLogger()),
	}
	repo := memory.New("tut-1", types, append(base, opts...)...)

	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return &fixture{types: types, repo: repo, events: rec, ledger: l}
}

func (f *fixture) runner(cfg *Config, opts ...RunnerOption) *Runner {
	base := []RunnerOption{
		WithClock(testutil.NewStepClock(time.Millisecond)),
		WithLogger(discardLogger()),
		WithEvents(f.events),
	}
	return NewRunner(f.repo, f.types, f.ledger, cfg, append(base, opts...)...)
}

// seed adds n entities of typeName directly to the repository.
func (f *fixture) seed(t *testing.T, typeName string, n int) []string {
	t.Helper()
	var guids []string
	for i := 0; i < n; i++ {
		props := instance.Properties{"qualifiedName": instance.StringValue(fmt.Sprintf("seed-%s-%d", typeName, i))}
		e, err := f.repo.AddEntity(ctx, typeName, props, nil)
		require.NoError(t, err)
		guids = append(guids, e.GUID)
	}
	return guids
}

func config(workloads ...Workload) *Config {
	cfg := &Config{
		RunID:            "run-1",
		InstancesPerType: 5,
		Concurrency:      1,
		EntityTypes:      []string{testutil.TypeDataFile},
		TUT:              TUTConfig{CollectionID: "tut-1"},
	}
	for _, w := range workloads {
		cfg.Workloads = append(cfg.Workloads, string(w))
	}
	return cfg
}

func countBy(as []ledger.Assertion, keep func(ledger.Assertion) bool) int {
	n := 0
	for _, a := range as {
		if keep(a) {
			n++
		}
	}
	return n
}

// stubCase runs fn as its body.
type stubCase struct {
	id, typeName string
	related      []string
	fn           func(ctx context.Context, r *Run) error
}

func (c *stubCase) ID() string             { return c.id }
func (c *stubCase) TypeName() string       { return c.typeName }
func (c *stubCase) Defaults() Attribution  { return Attribution{ProfileID: "stub", RequirementID: "stub-default"} }
func (c *stubCase) RelatedTypes() []string { return c.related }
func (c *stubCase) Run(ctx context.Context, r *Run) error {
	return c.fn(ctx, r)
}

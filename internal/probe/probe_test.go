package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/repository/memory"
	"github.com/roach88/cohort/internal/testutil"
)

func TestUpdate_NotSupportedRecordsOneAssertionAndNoFailure(t *testing.T) {
	f := newFixture(t, memory.WithUnsupported(repository.OpUpdateEntityProperties))
	f.seed(t, testutil.TypeDataFile, 5)

	summary, err := f.runner(config(WorkloadUpdate)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, StatusNotSupported, summary.Cases[0].Status)
	assert.Equal(t, 0, summary.Failed)

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{ProfileID: WorkloadUpdate.Profile()})
	require.NoError(t, err)
	notSupported := countBy(as, func(a ledger.Assertion) bool { return a.Outcome == ledger.OutcomeNotSupported })
	failed := countBy(as, func(a ledger.Assertion) bool { return a.Outcome == ledger.OutcomeFail })
	assert.Equal(t, 1, notSupported)
	assert.Equal(t, 0, failed)
}

func TestUpdate_FiveInstancesFiveTimedPasses(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.TypeDataFile, 5)

	summary, err := f.runner(config(WorkloadUpdate)).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Equal(t, 1, summary.Passed)

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{})
	require.NoError(t, err)
	var updates []ledger.Assertion
	for _, a := range as {
		if a.Method == string(repository.OpUpdateEntityProperties) {
			updates = append(updates, a)
		}
	}
	require.Len(t, updates, 5)
	for _, a := range updates {
		assert.Equal(t, ledger.OutcomePass, a.Outcome)
		assert.True(t, a.Timed)
		assert.Equal(t, time.Millisecond, a.Elapsed)
		assert.Equal(t, "entity-update", a.ProfileID)
		assert.Equal(t, "update-properties", a.RequirementID)
	}

	props, err := f.ledger.Discovered(ctx, "run-1")
	require.NoError(t, err)
	found := map[string]any{}
	for _, p := range props {
		found[p.Key] = p.Value
	}
	assert.Equal(t, int64(5), found["updateEntityProperties.successes"])
	assert.Equal(t, int64(0), found["updateEntityProperties.failures"])
	assert.Equal(t, int64(5), found["updated"])
}

func TestBatchedWorkloads_ExerciseEmptyRepository(t *testing.T) {
	tests := []struct {
		workload    Workload
		method      repository.Operation
		requirement string
	}{
		{WorkloadSearch, repository.OpFindEntities, "find-by-property"},
		{WorkloadUpdate, repository.OpUpdateEntityProperties, "update-properties"},
		{WorkloadUndo, repository.OpUndoEntityUpdate, "undo-update"},
		{WorkloadDelete, repository.OpDeleteEntity, "soft-delete"},
		{WorkloadRestore, repository.OpRestoreEntity, "restore"},
		{WorkloadPurge, repository.OpPurgeEntity, "purge"},
	}

	for _, tt := range tests {
		t.Run(string(tt.workload), func(t *testing.T) {
			f := newFixture(t)

			summary, err := f.runner(config(tt.workload)).Run(ctx)
			require.NoError(t, err)
			require.Len(t, summary.Cases, 1)
			assert.Equal(t, StatusPassed, summary.Cases[0].Status, summary.Cases[0].Error)

			as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{})
			require.NoError(t, err)
			exercised := countBy(as, func(a ledger.Assertion) bool {
				return a.Method == string(tt.method) && a.RequirementID == tt.requirement && a.Outcome == ledger.OutcomePass
			})
			assert.Equal(t, 5, exercised)
		})
	}
}

func TestUpdate_TopsUpPartialPopulation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, testutil.TypeDataFile, 2)

	summary, err := f.runner(config(WorkloadUpdate)).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.OK())

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{})
	require.NoError(t, err)
	adds := countBy(as, func(a ledger.Assertion) bool { return a.Method == string(repository.OpAddEntity) })
	updates := countBy(as, func(a ledger.Assertion) bool { return a.RequirementID == "update-properties" })
	assert.Equal(t, 3, adds)
	assert.Equal(t, 5, updates)
}

func TestFullRun_AbstractTypesResolveAndPass(t *testing.T) {
	f := newFixture(t, memory.WithSupportedTypes(
		testutil.TypeDataFile,
		testutil.TypeDatabase,
		testutil.TypeDataContent,
		testutil.TypeConfidentiality,
	))
	cfg := &Config{
		RunID:             "run-full",
		InstancesPerType:  3,
		Concurrency:       2,
		EntityTypes:       []string{testutil.TypeAsset},
		RelationshipTypes: []string{testutil.TypeDataContent},
		Classification:    testutil.TypeConfidentiality,
		TUT:               TUTConfig{CollectionID: "tut-1"},
	}
	require.NoError(t, cfg.Validate())

	summary, err := f.runner(cfg).Run(ctx)
	require.NoError(t, err)

	for _, c := range summary.Cases {
		assert.Equal(t, StatusPassed, c.Status, "%s: %s", c.ID, c.Error)
	}
	assert.Len(t, summary.Cases, len(EntityWorkloads)+1)
	assert.Equal(t, testutil.TypeDataFile, summary.Cases[0].TypeName)
	assert.Equal(t, "entity-create-DataFile", summary.Cases[0].ID)

	as, err := f.ledger.Assertions(ctx, "run-full", ledger.Filter{Outcome: ledger.OutcomeFail})
	require.NoError(t, err)
	assert.Empty(t, as)

	cases, err := f.ledger.TestCases(ctx, "run-full")
	require.NoError(t, err)
	require.Len(t, cases, len(summary.Cases))
	for _, tc := range cases {
		assert.Equal(t, "PASSED", tc.Status)
	}
}

func TestCreate_ChecksNewEntityEvents(t *testing.T) {
	f := newFixture(t)

	summary, err := f.runner(config(WorkloadCreate)).Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.OK())

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{})
	require.NoError(t, err)
	events := countBy(as, func(a ledger.Assertion) bool { return a.RequirementID == "new-entity-event" })
	adds := countBy(as, func(a ledger.Assertion) bool { return a.RequirementID == "add-entity" })
	assert.Equal(t, 1, events)
	assert.Equal(t, 5, adds)
}

func TestCreate_MissingEventsFail(t *testing.T) {
	f := newFixture(t)
	// A repository that never publishes.
	f.repo = memory.New("tut-1", f.types, memory.WithLogger(discardLogger()))

	summary, err := f.runner(config(WorkloadCreate)).Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, StatusFailed, summary.Cases[0].Status)

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{Outcome: ledger.OutcomeFail})
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, "new-entity-event", as[0].RequirementID)
}

func TestFailure_IsRecordedWithContextAndRunContinues(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")

	var ran []string
	var mu sync.Mutex
	note := func(id string) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, id)
	}

	cases := []TestCase{
		&stubCase{id: "failing", typeName: "A", fn: func(ctx context.Context, r *Run) error {
			note("failing")
			res := invoke(ctx, r, Call{
				Method:      repository.OpGetEntity,
				Description: "get entity",
				Params:      map[string]any{"guid": "g-1"},
				Attribution: Attribution{ProfileID: "entity-get", RequirementID: "get"},
			}, func(context.Context) (*instance.Entity, error) { return nil, boom })
			return res.Stop()
		}},
		&stubCase{id: "next", typeName: "A", fn: func(ctx context.Context, r *Run) error {
			note("next")
			return nil
		}},
	}

	summary, err := f.runner(config()).RunCases(ctx, cases)
	require.NoError(t, err)
	assert.Equal(t, []string{"failing", "next"}, ran)
	assert.Equal(t, StatusFailed, summary.Cases[0].Status)
	assert.Equal(t, StatusPassed, summary.Cases[1].Status)
	assert.Contains(t, summary.Cases[0].Error, "guid=g-1")
	assert.Contains(t, summary.Cases[0].Error, "connection reset")

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{TestCaseID: "failing"})
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, ledger.OutcomeFail, as[0].Outcome)
	assert.Equal(t, "entity-get", as[0].ProfileID)
	assert.Equal(t, string(repository.OpGetEntity), as[0].Method)
	assert.True(t, as[0].Timed)
}

func TestPanic_UsesDefaultAttribution(t *testing.T) {
	f := newFixture(t)
	cases := []TestCase{
		&stubCase{id: "panics", typeName: "A", fn: func(context.Context, *Run) error {
			panic("unexpected nil")
		}},
	}

	summary, err := f.runner(config()).RunCases(ctx, cases)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, summary.Cases[0].Status)

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, "stub", as[0].ProfileID)
	assert.Equal(t, "stub-default", as[0].RequirementID)
	assert.Contains(t, as[0].Message, "unexpected nil")
}

func TestCancellation_StopsBetweenCasesAndCompletesInFlightCall(t *testing.T) {
	f := newFixture(t)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var callCtxErr error
	cases := []TestCase{
		&stubCase{id: "first", typeName: "A", fn: func(ctx context.Context, r *Run) error {
			cancel()
			res := invoke(ctx, r, Call{Method: repository.OpGetEntity, Description: "get entity",
				Attribution: Attribution{ProfileID: "p"}},
				func(callCtx context.Context) (int, error) {
					callCtxErr = callCtx.Err()
					return 1, nil
				})
			return res.Stop()
		}},
		&stubCase{id: "second", typeName: "A", fn: func(context.Context, *Run) error { return nil }},
	}

	summary, err := f.runner(config()).RunCases(runCtx, cases)
	require.NoError(t, err)
	assert.NoError(t, callCtxErr)
	assert.Equal(t, StatusPassed, summary.Cases[0].Status)
	assert.Equal(t, StatusNotRun, summary.Cases[1].Status)
	assert.Equal(t, 1, summary.NotRun)

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{TestCaseID: "first"})
	require.NoError(t, err)
	assert.Len(t, as, 1)
}

func TestRunner_SerializesSameTypeAndRelatedTypes(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	active := map[string]int{}
	maxActive := map[string]int{}
	body := func(typeName string) func(context.Context, *Run) error {
		return func(context.Context, *Run) error {
			mu.Lock()
			active[typeName]++
			if active[typeName] > maxActive[typeName] {
				maxActive[typeName] = active[typeName]
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active[typeName]--
			mu.Unlock()
			return nil
		}
	}

	var cases []TestCase
	for _, id := range []string{"a1", "a2", "a3"} {
		cases = append(cases, &stubCase{id: id, typeName: "A", fn: body("A")})
	}
	// A relationship-like case touching A must not overlap A's cases.
	cases = append(cases, &stubCase{id: "r1", typeName: "R", related: []string{"A"}, fn: body("A")})
	cases = append(cases, &stubCase{id: "b1", typeName: "B", fn: body("B")})

	cfg := config()
	cfg.Concurrency = 4
	summary, err := f.runner(cfg).RunCases(ctx, cases)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Passed)
	assert.Equal(t, 1, maxActive["A"])
}

func TestSerialGroups(t *testing.T) {
	cases := []TestCase{
		&stubCase{id: "1", typeName: "A"},
		&stubCase{id: "2", typeName: "B"},
		&stubCase{id: "3", typeName: "R", related: []string{"C", "A"}},
		&stubCase{id: "4", typeName: "C"},
	}
	order, groups := serialGroups(cases)
	require.Len(t, order, 2)
	assert.Equal(t, []int{0, 2, 3}, groups[order[0]])
	assert.Equal(t, []int{1}, groups[order[1]])
}

func TestPlan_UnresolvedTypeRecordsNotSupported(t *testing.T) {
	f := newFixture(t, memory.WithSupportedTypes(testutil.TypeProcess))
	cfg := config(WorkloadCreate)
	cfg.EntityTypes = []string{testutil.TypeDataSet}

	summary, err := f.runner(cfg).Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, "type-selection-DataSet", summary.Cases[0].ID)
	assert.Equal(t, StatusNotSupported, summary.Cases[0].Status)
	assert.True(t, summary.OK())

	as, err := f.ledger.Assertions(ctx, "run-1", ledger.Filter{Outcome: ledger.OutcomeNotSupported})
	require.NoError(t, err)
	assert.Len(t, as, 1)
}

func TestPlan_RejectsWrongCategory(t *testing.T) {
	f := newFixture(t)
	cfg := config()
	cfg.EntityTypes = []string{testutil.TypeDataContent}

	_, _, err := Plan(ctx, f.types, f.repo, cfg)
	require.Error(t, err)
}

func TestPlan_RelationshipCaseCarriesEndTypes(t *testing.T) {
	f := newFixture(t, memory.WithSupportedTypes(testutil.TypeDatabase, testutil.TypeProcess, testutil.TypeDataContent))
	cfg := config(WorkloadRelationshipCreate)
	cfg.EntityTypes = nil
	cfg.RelationshipTypes = []string{testutil.TypeDataContent}

	cases, _, err := Plan(ctx, f.types, f.repo, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	rel, ok := cases[0].(Related)
	require.True(t, ok)
	// End1 (Asset): DataSet and Process are at depth 1; Process is supported.
	assert.Equal(t, []string{testutil.TypeProcess, testutil.TypeDatabase}, rel.RelatedTypes())
}

func TestSelectType(t *testing.T) {
	f := newFixture(t)
	supported := map[string]struct{}{testutil.TypeDataFile: {}, testutil.TypeDatabase: {}}

	got, ok := SelectType(f.types, testutil.TypeAsset, supported)
	require.True(t, ok)
	assert.Equal(t, testutil.TypeDataFile, got)

	again, _ := SelectType(f.types, testutil.TypeAsset, supported)
	assert.Equal(t, got, again)

	self, ok := SelectType(f.types, testutil.TypeDatabase, supported)
	require.True(t, ok)
	assert.Equal(t, testutil.TypeDatabase, self)
}

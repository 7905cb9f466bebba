package topic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/testutil"
)

var origin = event.Originator{SourceName: "topic-test", HomeCollectionID: "home-1"}

func entity(guid string, version int64) *instance.Entity {
	return &instance.Entity{
		Header: instance.Header{
			GUID:             guid,
			Type:             instance.TypeRef{GUID: "t-asset", Name: "Asset", Category: instance.CategoryEntity},
			Status:           instance.StatusActive,
			Version:          version,
			HomeCollectionID: "home-1",
			Provenance:       instance.ProvenanceLocal,
			CreateTime:       testutil.Epoch,
			UpdateTime:       testutil.Epoch,
		},
		Properties: instance.Properties{"qualifiedName": instance.StringValue(guid)},
	}
}

func created(guid string) event.Event {
	return event.MustNew(origin, event.NewEntity{Entity: entity(guid, 1)})
}

func updated(guid string, version int64) event.Event {
	return event.MustNew(origin, event.UpdatedEntity{Old: entity(guid, version-1), New: entity(guid, version)})
}

type delivery struct {
	subject string
	version int64
}

// collector records deliveries and fails the first failN attempts.
type collector struct {
	event.Decline

	mu    sync.Mutex
	got   []delivery
	failN int
}

func (c *collector) accept(e *instance.Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failN > 0 {
		c.failN--
		return errors.New("listener unavailable")
	}
	c.got = append(c.got, delivery{subject: e.GUID, version: e.Version})
	return nil
}

func (c *collector) OnNewEntity(_ context.Context, _ event.Originator, p event.NewEntity) error {
	return c.accept(p.Entity)
}

func (c *collector) OnUpdatedEntity(_ context.Context, _ event.Originator, p event.UpdatedEntity) error {
	return c.accept(p.New)
}

func (c *collector) deliveries() []delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivery(nil), c.got...)
}

func versionsOf(ds []delivery, subject string) []int64 {
	var out []int64
	for _, d := range ds {
		if d.subject == subject {
			out = append(out, d.version)
		}
	}
	return out
}

func TestPartition(t *testing.T) {
	guid := testutil.GUID(1)
	p := Partition(guid, 8)
	assert.GreaterOrEqual(t, p, 0)
	assert.Less(t, p, 8)
	assert.Equal(t, p, Partition(guid, 8), "partitioning is deterministic")
	assert.Equal(t, 0, Partition(guid, 1))
	assert.Equal(t, 0, Partition(guid, 0))
}

func TestPartition_Spreads(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 64; i++ {
		seen[Partition(testutil.GUID(int64(i)), 4)] = true
	}
	assert.Len(t, seen, 4)
}

func TestNew_MinimumOnePartition(t *testing.T) {
	assert.Equal(t, 1, New("t", 0).Partitions())
	assert.Equal(t, 4, New("t", 4).Partitions())
}

func TestPoll_PreservesPerSubjectOrder(t *testing.T) {
	ctx := context.Background()
	top := New("cohort", 4)
	c := &collector{}
	sub := top.Subscribe("test", c)

	a, b := testutil.GUID(1), testutil.GUID(2)
	require.NoError(t, top.Publish(ctx, created(a)))
	require.NoError(t, top.Publish(ctx, created(b)))
	for v := int64(2); v <= 4; v++ {
		require.NoError(t, top.Publish(ctx, updated(a, v)))
		require.NoError(t, top.Publish(ctx, updated(b, v)))
	}

	n, failed := sub.Poll(ctx)
	assert.Equal(t, 8, n)
	assert.False(t, failed)
	assert.Equal(t, 0, sub.Lag())

	got := c.deliveries()
	assert.Equal(t, []int64{1, 2, 3, 4}, versionsOf(got, a))
	assert.Equal(t, []int64{1, 2, 3, 4}, versionsOf(got, b))
}

func TestPoll_RedeliversAfterFailure(t *testing.T) {
	ctx := context.Background()
	logger := slogDiscard()
	top := New("cohort", 1, WithLogger(logger))
	c := &collector{failN: 1}
	sub := top.Subscribe("test", c)

	guid := testutil.GUID(7)
	require.NoError(t, top.Publish(ctx, created(guid)))
	require.NoError(t, top.Publish(ctx, updated(guid, 2)))

	n, failed := sub.Poll(ctx)
	assert.Equal(t, 0, n)
	assert.True(t, failed)
	assert.Equal(t, 2, sub.Lag(), "nothing acknowledged after a failure")
	assert.Equal(t, int64(1), sub.Failures())

	n, failed = sub.Poll(ctx)
	assert.Equal(t, 2, n)
	assert.False(t, failed)
	assert.Equal(t, []int64{1, 2}, versionsOf(c.deliveries(), guid))
}

func TestPoll_FailureBlocksOnlyItsPartition(t *testing.T) {
	ctx := context.Background()
	top := New("cohort", 2, WithLogger(slogDiscard()))

	// Find two subjects in different partitions.
	a := testutil.GUID(1)
	var b string
	for i := 2; ; i++ {
		if Partition(testutil.GUID(int64(i)), 2) != Partition(a, 2) {
			b = testutil.GUID(int64(i))
			break
		}
	}

	failing := &subjectFailer{fail: a}
	sub := top.Subscribe("test", failing)
	require.NoError(t, top.Publish(ctx, created(a)))
	require.NoError(t, top.Publish(ctx, created(b)))

	n, failed := sub.Poll(ctx)
	assert.Equal(t, 1, n)
	assert.True(t, failed)
	assert.Equal(t, []string{b}, failing.accepted)
	assert.Equal(t, 1, sub.Lag())
}

type subjectFailer struct {
	event.Decline
	fail     string
	accepted []string
}

func (s *subjectFailer) OnNewEntity(_ context.Context, _ event.Originator, p event.NewEntity) error {
	if p.Entity.GUID == s.fail {
		return errors.New("rejected")
	}
	s.accepted = append(s.accepted, p.Entity.GUID)
	return nil
}

func TestSubscriptions_KeepIndependentOffsets(t *testing.T) {
	ctx := context.Background()
	top := New("cohort", 2)
	first, second := &collector{}, &collector{}
	s1 := top.Subscribe("first", first)
	s2 := top.Subscribe("second", second)

	require.NoError(t, top.Publish(ctx, created(testutil.GUID(1))))
	s1.Poll(ctx)
	require.NoError(t, top.Publish(ctx, created(testutil.GUID(2))))

	assert.Equal(t, 1, s1.Lag())
	assert.Equal(t, 2, s2.Lag())
	s2.Poll(ctx)
	assert.Len(t, second.deliveries(), 2)
	assert.Len(t, first.deliveries(), 1)
}

func TestPublish_AfterClose(t *testing.T) {
	top := New("cohort", 1)
	top.Close()
	top.Close()
	err := top.Publish(context.Background(), created(testutil.GUID(1)))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRun_DrainsThenStopsOnClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	top := New("cohort", 3, WithRetryInterval(5*time.Millisecond), WithLogger(slogDiscard()))
	c := &collector{failN: 2}
	sub := top.Subscribe("runner", c)

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	guid := testutil.GUID(3)
	require.NoError(t, top.Publish(ctx, created(guid)))
	require.NoError(t, top.Publish(ctx, updated(guid, 2)))
	top.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("subscription did not drain")
	}
	assert.Equal(t, []int64{1, 2}, versionsOf(c.deliveries(), guid))
	assert.Equal(t, int64(2), sub.Failures())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	top := New("cohort", 1)
	sub := top.Subscribe("runner", &collector{})

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTopic_ImplementsPublisher(t *testing.T) {
	var p event.Publisher = New("cohort", 1)
	require.NoError(t, p.Publish(context.Background(), created(testutil.GUID(1))))
	assert.Equal(t, 1, p.(*Topic).Len())
}

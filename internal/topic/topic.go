// Package topic is an in-process cohort topic: an at-least-once,
// order-preserving-per-partition transport for lifecycle events.
//
// Events are stored as encoded records in per-partition logs. The partition
// of an event is a hash of its subject GUID, so every event about one
// instance is delivered in publish order. A re-identify event is keyed by
// the original GUID, so it follows the earlier events about that instance;
// later events carry the new GUID and may land in another partition.
//
// Each subscription keeps its own offset per partition and only advances it
// after its listener accepts the event; a failed delivery is retried, and
// later events in the same partition wait behind it.
package topic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/roach88/cohort/internal/event"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("topic closed")

// DefaultRetryInterval is how long a subscription waits before retrying a
// failed delivery when nothing new has been published.
const DefaultRetryInterval = 100 * time.Millisecond

// Partition maps a subject GUID onto one of n partitions.
func Partition(guid string, n int) int {
	if n <= 1 {
		return 0
	}
	sum := blake3.Sum256([]byte(guid))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}

// Topic is a partitioned, append-only event log with push subscriptions.
//
// Thread-safety: Publish, Subscribe and Close may be called from any
// goroutine.
type Topic struct {
	name          string
	logger        *slog.Logger
	retryInterval time.Duration

	mu         sync.Mutex
	partitions [][][]byte
	subs       []*Subscription
	closed     bool
}

// Option configures a Topic.
type Option func(*Topic)

// WithLogger sets the logger for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Topic) {
		t.logger = l
	}
}

// WithRetryInterval sets the retry delay for failed deliveries.
func WithRetryInterval(d time.Duration) Option {
	return func(t *Topic) {
		t.retryInterval = d
	}
}

// New creates a topic with the given number of partitions (minimum 1).
func New(name string, partitions int, opts ...Option) *Topic {
	if partitions < 1 {
		partitions = 1
	}
	t := &Topic{
		name:          name,
		logger:        slog.Default(),
		retryInterval: DefaultRetryInterval,
		partitions:    make([][][]byte, partitions),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the topic name.
func (t *Topic) Name() string {
	return t.name
}

// Partitions returns the partition count.
func (t *Topic) Partitions() int {
	return len(t.partitions)
}

// Publish appends e to its partition and wakes every subscription.
// Implements event.Publisher.
func (t *Topic) Publish(_ context.Context, e event.Event) error {
	record, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("topic %s: %w", t.name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	p := Partition(e.Subject(), len(t.partitions))
	t.partitions[p] = append(t.partitions[p], record)

	for _, s := range t.subs {
		s.notify()
	}
	return nil
}

// Len returns the total number of published events.
func (t *Topic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.partitions {
		n += len(p)
	}
	return n
}

// Close stops accepting events. Subscriptions drain what was already
// published and then Run returns.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return // Already closed
	}
	t.closed = true
	for _, s := range t.subs {
		s.notify()
	}
}

// Subscribe registers a listener. Delivery starts at the beginning of every
// partition and happens on the goroutine calling Run or Poll.
func (t *Topic) Subscribe(name string, l event.Listener) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Subscription{
		name:     name,
		topic:    t,
		listener: l,
		offsets:  make([]int, len(t.partitions)),
		signal:   make(chan struct{}, 1),
	}
	t.subs = append(t.subs, s)
	return s
}

// record returns the record at offset in partition p, if published.
func (t *Topic) record(p, offset int) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if offset >= len(t.partitions[p]) {
		return nil, false
	}
	return t.partitions[p][offset], true
}

func (t *Topic) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

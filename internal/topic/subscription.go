package topic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/cohort/internal/event"
)

// Subscription delivers a topic's events to one listener.
//
// Thread-safety: Run and Poll must not be called concurrently on the same
// subscription. Lag and Offsets may be called from any goroutine.
type Subscription struct {
	name     string
	topic    *Topic
	listener event.Listener
	signal   chan struct{} // buffered, size 1

	mu       sync.Mutex
	offsets  []int
	failures int64
}

// notify wakes Run without blocking. The buffer of 1 coalesces signals.
func (s *Subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Poll delivers every available event once, partition by partition.
// A listener error stops delivery for that partition only; the event is
// retried on the next Poll. Returns the number of events delivered and
// whether any delivery failed.
func (s *Subscription) Poll(ctx context.Context) (delivered int, failed bool) {
	for p := range s.offsets {
		for {
			if ctx.Err() != nil {
				return delivered, failed
			}
			offset := s.offset(p)
			record, ok := s.topic.record(p, offset)
			if !ok {
				break
			}
			e, err := event.Decode(record)
			if err != nil {
				// Only records written by Publish are stored, so this is a
				// codec bug; skipping keeps the partition moving.
				s.topic.logger.Error("undecodable record skipped",
					"topic", s.topic.name, "subscription", s.name,
					"partition", p, "offset", offset, "error", err)
				s.advance(p)
				continue
			}
			if err := event.Dispatch(ctx, s.listener, e); err != nil {
				s.mu.Lock()
				s.failures++
				s.mu.Unlock()
				s.topic.logger.Warn("delivery failed, will retry",
					"topic", s.topic.name, "subscription", s.name,
					"partition", p, "offset", offset,
					"kind", e.Kind(), "subject", e.Subject(), "error", err)
				failed = true
				break
			}
			s.advance(p)
			delivered++
		}
	}
	return delivered, failed
}

// Run delivers events until ctx is cancelled or the topic is closed and
// fully delivered. Failed deliveries are retried after the topic's retry
// interval or on the next publish, whichever comes first.
func (s *Subscription) Run(ctx context.Context) error {
	s.topic.logger.Debug("subscription started", "topic", s.topic.name, "subscription", s.name)
	for {
		_, failed := s.Poll(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if !failed && s.topic.isClosed() && s.Lag() == 0 {
			s.topic.logger.Debug("subscription drained", "topic", s.topic.name, "subscription", s.name)
			return nil
		}

		var (
			timer *time.Timer
			retry <-chan time.Time
		)
		if failed {
			timer = time.NewTimer(s.topic.retryInterval)
			retry = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.signal:
		case <-retry:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Subscription) offset(p int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets[p]
}

func (s *Subscription) advance(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets[p]++
}

// Offsets returns the next offset to deliver in each partition.
func (s *Subscription) Offsets() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.offsets...)
}

// Lag returns the number of published events not yet delivered.
func (s *Subscription) Lag() int {
	offsets := s.Offsets()
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	lag := 0
	for p, log := range s.topic.partitions {
		lag += len(log) - offsets[p]
	}
	return lag
}

// Failures returns the number of failed delivery attempts so far.
func (s *Subscription) Failures() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// LogValue groups the subscription's identity for structured logs.
func (s *Subscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("topic", s.topic.name),
		slog.String("subscription", s.name),
	)
}

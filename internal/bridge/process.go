package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/roach88/cohort/internal/event"
)

// Stats counts record outcomes for a session.
type Stats struct {
	Received      int                `json:"received"`
	Emitted       int                `json:"emitted"`
	PublishFailed int                `json:"publish_failed"`
	Dropped       map[DropReason]int `json:"dropped"`
}

// DroppedTotal sums Dropped.
func (s Stats) DroppedTotal() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

// Stats returns a copy of the session counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.stats
	out.Dropped = maps.Clone(b.stats.Dropped)
	return out
}

func (b *Bridge) count(rec ChangeRecord, outcome string, update func(*Stats)) {
	b.mu.Lock()
	update(&b.stats)
	b.mu.Unlock()
	b.observer.ObserveRecord(string(rec.Action), outcome)
}

// Process translates rec and publishes the event. A dropped record or a
// failed publish is logged once and counted; neither is returned, so a
// session never stops on one record. Only cancellation is returned.
func (b *Bridge) Process(ctx context.Context, rec ChangeRecord, pub event.Publisher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.stats.Received++
	b.mu.Unlock()

	e, err := b.Translate(ctx, rec)
	if err != nil {
		var de *DropError
		if !errors.As(err, &de) {
			de = drop(DropInvalidRecord, rec, "", err)
		}
		b.dropped(de)
		return nil
	}

	if err := pub.Publish(ctx, *e); err != nil {
		b.logger.Error("publish failed",
			"action", rec.Action, "guid", rec.GUID, "kind", e.Kind(), "event_id", e.ID, "error", err)
		b.count(rec, "publish_failed", func(s *Stats) { s.PublishFailed++ })
		return nil
	}
	b.logger.Debug("event published",
		"action", rec.Action, "guid", rec.GUID, "kind", e.Kind(), "subject", e.Subject())
	b.count(rec, "emitted", func(s *Stats) { s.Emitted++ })
	return nil
}

// dropped writes the record's single diagnostic.
func (b *Bridge) dropped(de *DropError) {
	args := []any{
		"reason", de.Reason,
		"action", de.Record.Action,
		"guid", de.Record.GUID,
	}
	if de.GUID != "" {
		args = append(args, "attempted_guid", de.GUID)
	}
	if de.Err != nil {
		args = append(args, "error", de.Err)
	}
	b.logger.Warn("change record dropped", args...)
	b.count(de.Record, string(de.Reason), func(s *Stats) { s.Dropped[de.Reason]++ })
}

// Feed is a single ordered stream of change records. Next returns io.EOF
// at the end of the stream. A *MalformedError skips one record.
type Feed interface {
	Next(ctx context.Context) (ChangeRecord, error)
}

// MalformedError reports a feed entry that could not be decoded.
type MalformedError struct {
	Line int
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("feed line %d: %v", e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// MaxFeedLine is the longest feed line JSONLinesFeed decodes.
const MaxFeedLine = 4 * 1024 * 1024

// ErrLineTooLong marks a feed line longer than the feed's limit.
var ErrLineTooLong = errors.New("line too long")

// JSONLinesFeed reads one JSON change record per line. Blank lines are
// skipped. A line over the length limit is consumed and reported as
// malformed.
type JSONLinesFeed struct {
	r       *bufio.Reader
	maxLine int
	line    int
}

// NewJSONLinesFeed reads records from r.
func NewJSONLinesFeed(r io.Reader) *JSONLinesFeed {
	return &JSONLinesFeed{r: bufio.NewReaderSize(r, 64*1024), maxLine: MaxFeedLine}
}

// Next implements Feed.
func (f *JSONLinesFeed) Next(ctx context.Context) (ChangeRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ChangeRecord{}, err
		}
		data, tooLong, err := f.readLine()
		if err != nil {
			return ChangeRecord{}, err
		}
		f.line++
		if tooLong {
			return ChangeRecord{}, &MalformedError{Line: f.line, Err: fmt.Errorf("%w: over %d bytes", ErrLineTooLong, f.maxLine)}
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var rec ChangeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return ChangeRecord{}, &MalformedError{Line: f.line, Err: err}
		}
		return rec, nil
	}
}

// readLine returns the next line without its terminator. Bytes of a line
// past maxLine are read and discarded up to the newline, with tooLong set.
// A final line without a newline is returned before io.EOF.
func (f *JSONLinesFeed) readLine() (line []byte, tooLong bool, err error) {
	seen := false
	for {
		chunk, rerr := f.r.ReadSlice('\n')
		seen = seen || len(chunk) > 0
		if !tooLong {
			n := len(line) + len(chunk)
			if rerr == nil {
				n-- // newline
			}
			if n > f.maxLine {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case rerr == nil:
			return bytes.TrimRight(line, "\r\n"), tooLong, nil
		case errors.Is(rerr, bufio.ErrBufferFull):
			continue
		case errors.Is(rerr, io.EOF):
			if !seen {
				return nil, false, io.EOF
			}
			return bytes.TrimRight(line, "\r"), tooLong, nil
		default:
			return nil, false, rerr
		}
	}
}

// SliceFeed replays a fixed list of records.
type SliceFeed struct {
	records []ChangeRecord
	next    int
}

// NewSliceFeed returns a feed over records.
func NewSliceFeed(records ...ChangeRecord) *SliceFeed {
	return &SliceFeed{records: records}
}

// Next implements Feed.
func (f *SliceFeed) Next(ctx context.Context) (ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return ChangeRecord{}, err
	}
	if f.next == len(f.records) {
		return ChangeRecord{}, io.EOF
	}
	rec := f.records[f.next]
	f.next++
	return rec, nil
}

// Run consumes feed in order until it ends or ctx is cancelled. Malformed
// entries are logged and skipped. Returns nil at the end of the feed,
// ctx.Err() on cancellation, or the feed's read error.
func (b *Bridge) Run(ctx context.Context, feed Feed, pub event.Publisher) error {
	b.logger.Info("bridge session started", "source", b.origin.SourceName, "soft_delete", b.soft)
	defer func() {
		s := b.Stats()
		b.logger.Info("bridge session finished",
			"source", b.origin.SourceName,
			"received", s.Received,
			"emitted", s.Emitted,
			"dropped", s.DroppedTotal(),
			"publish_failed", s.PublishFailed,
		)
	}()

	for {
		rec, err := feed.Next(ctx)
		if err != nil {
			var me *MalformedError
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.As(err, &me):
				b.mu.Lock()
				b.stats.Received++
				b.mu.Unlock()
				b.dropped(drop(DropMalformed, ChangeRecord{}, "", err))
				continue
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return fmt.Errorf("read feed: %w", err)
			}
		}
		if err := b.Process(ctx, rec, pub); err != nil {
			return err
		}
	}
}

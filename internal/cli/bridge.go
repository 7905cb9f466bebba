package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/bridge"
	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/metrics"
	"github.com/roach88/cohort/internal/topic"
)

// BridgeOptions holds flags for the bridge command.
type BridgeOptions struct {
	*RootOptions
	TypesDir   string
	Config     string
	Snapshot   string
	Feed       string
	Partitions int
	MetricsOut string
}

// DeliveredEvent is one canonical event as received by a cohort member.
type DeliveredEvent struct {
	Kind    event.Kind `json:"kind"`
	GUID    string     `json:"guid"`
	Type    string     `json:"type"`
	Version int64      `json:"version,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// BridgeResult is the JSON payload of the bridge command.
type BridgeResult struct {
	Events []DeliveredEvent `json:"events"`
	Stats  bridge.Stats     `json:"stats"`
}

// NewBridgeCommand creates the bridge command.
func NewBridgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BridgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Translate a foreign change feed into cohort events",
		Long: `Replay a foreign repository's change records, one JSON object per line,
through the event bridge and print the canonical events a cohort member
receives from the topic.

Records whose ends or entities are missing from the foreign snapshot are
dropped with one diagnostic each; the session never stops on a bad record.
Use --feed - to read the feed from stdin.

Example:
  cohort bridge --types ./typedefs --config bridge.yaml \
    --snapshot entities.json --feed changes.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TypesDir, "types", "", "typedefs directory (required)")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "bridge config file (required)")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "JSON snapshot of the foreign repository's entities")
	cmd.Flags().StringVar(&opts.Feed, "feed", "", "JSON-lines change feed, or - for stdin (required)")
	cmd.Flags().IntVar(&opts.Partitions, "partitions", 4, "topic partitions")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write record metrics in Prometheus text format to this file")
	_ = cmd.MarkFlagRequired("types")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("feed")

	return cmd
}

func runBridge(opts *BridgeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := f.Logger()

	if opts.Partitions < 1 {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "--partitions must be at least 1", nil)
	}

	types, err := loadTypesOrFail(f, opts.TypesDir)
	if err != nil {
		return err
	}

	cfg, err := bridge.LoadConfig(opts.Config)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	foreign := bridge.NewMapRepository()
	if opts.Snapshot != "" {
		foreign, err = bridge.LoadSnapshot(opts.Snapshot)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeSnapshot, err.Error(), nil)
		}
		f.VerboseLog("Loaded %d foreign entities from %s", foreign.Len(), opts.Snapshot)
	}

	feed, closeFeed, err := openFeed(cmd, opts.Feed)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeFeed, err.Error(), nil)
	}
	defer closeFeed()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	b, err := bridge.New(types, foreign, cfg, bridge.WithLogger(logger), bridge.WithObserver(m))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	cohort := topic.New("cohort", opts.Partitions, topic.WithLogger(logger))
	defer cohort.Close()
	member := &eventPrinter{}
	sub := cohort.Subscribe("cohort-cli", member)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := b.Run(ctx, bridge.NewJSONLinesFeed(feed), cohort)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return f.Fail(ExitCommandError, ErrCodeFeed, runErr.Error(), nil)
	}

	// Drain what was published, even after an interrupt.
	delivered, failed := sub.Poll(context.WithoutCancel(ctx))
	f.VerboseLog("Delivered %d event(s) over %d partition(s)", delivered, opts.Partitions)
	if failed {
		logger.Warn("event delivery failed", "subscription", "cohort-cli")
	}

	if opts.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsOut, reg); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("write metrics: %v", err), nil)
		}
	}

	result := BridgeResult{Events: member.delivered(), Stats: b.Stats()}
	if err := f.Render(result, func(w io.Writer) error {
		return renderBridge(w, result)
	}); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "bridge session interrupted", runErr)
	}
	return nil
}

func openFeed(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open feed: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}

// eventPrinter is the cohort member the CLI subscribes to the topic. It
// acts on every kind the bridge emits.
type eventPrinter struct {
	event.Decline

	mu     sync.Mutex
	events []DeliveredEvent
}

func (p *eventPrinter) add(e DeliveredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *eventPrinter) delivered() []DeliveredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]DeliveredEvent{}, p.events...)
}

func (p *eventPrinter) entity(kind event.Kind, e *instance.Entity, detail string) {
	p.add(DeliveredEvent{Kind: kind, GUID: e.GUID, Type: e.Type.Name, Version: e.Version, Detail: detail})
}

func (p *eventPrinter) relationship(kind event.Kind, r *instance.Relationship) {
	p.add(DeliveredEvent{
		Kind:    kind,
		GUID:    r.GUID,
		Type:    r.Type.Name,
		Version: r.Version,
		Detail:  r.End1.Entity.GUID + " -> " + r.End2.Entity.GUID,
	})
}

func (p *eventPrinter) OnNewEntity(_ context.Context, _ event.Originator, e event.NewEntity) error {
	p.entity(event.KindNewEntity, e.Entity, "")
	return nil
}

func (p *eventPrinter) OnUpdatedEntity(_ context.Context, _ event.Originator, e event.UpdatedEntity) error {
	p.entity(event.KindUpdatedEntity, e.New, "")
	return nil
}

func (p *eventPrinter) OnDeletedEntity(_ context.Context, _ event.Originator, e event.DeletedEntity) error {
	p.entity(event.KindDeletedEntity, e.Entity, "")
	return nil
}

func (p *eventPrinter) OnPurgedEntity(_ context.Context, _ event.Originator, e event.PurgedEntity) error {
	p.add(DeliveredEvent{Kind: event.KindPurgedEntity, GUID: e.GUID, Type: e.TypeName})
	return nil
}

func (p *eventPrinter) OnClassifiedEntity(_ context.Context, _ event.Originator, e event.ClassifiedEntity) error {
	p.entity(event.KindClassifiedEntity, e.Entity, e.Classification.Name)
	return nil
}

func (p *eventPrinter) OnDeclassifiedEntity(_ context.Context, _ event.Originator, e event.DeclassifiedEntity) error {
	p.entity(event.KindDeclassifiedEntity, e.Entity, e.Classification.Name)
	return nil
}

func (p *eventPrinter) OnNewRelationship(_ context.Context, _ event.Originator, e event.NewRelationship) error {
	p.relationship(event.KindNewRelationship, e.Relationship)
	return nil
}

func (p *eventPrinter) OnDeletedRelationship(_ context.Context, _ event.Originator, e event.DeletedRelationship) error {
	p.relationship(event.KindDeletedRelationship, e.Relationship)
	return nil
}

func (p *eventPrinter) OnPurgedRelationship(_ context.Context, _ event.Originator, e event.PurgedRelationship) error {
	p.add(DeliveredEvent{Kind: event.KindPurgedRelationship, GUID: e.GUID, Type: e.TypeName})
	return nil
}

func renderBridge(w io.Writer, r BridgeResult) error {
	fmt.Fprintf(w, "%d event(s) delivered\n", len(r.Events))
	for _, e := range r.Events {
		line := fmt.Sprintf("  %-26s %s %s", e.Kind, e.GUID, e.Type)
		if e.Version > 0 {
			line += fmt.Sprintf(" v%d", e.Version)
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
	s := r.Stats
	fmt.Fprintf(w, "received %d, emitted %d, dropped %d, publish failed %d\n",
		s.Received, s.Emitted, s.DroppedTotal(), s.PublishFailed)
	for _, reason := range sortedReasons(s.Dropped) {
		fmt.Fprintf(w, "  dropped %-16s %d\n", reason, s.Dropped[reason])
	}
	return nil
}

func sortedReasons(m map[bridge.DropReason]int) []bridge.DropReason {
	out := make([]bridge.DropReason, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

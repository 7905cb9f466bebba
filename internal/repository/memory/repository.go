// Package memory is a thread-safe, in-memory MetadataCollection. It is the
// reference repository used by the CLI and as the technology under test in
// probe tests.
//
// Every mutating call validates its input against the type lattice, bumps
// the instance version, keeps the prior version for undo, and publishes the
// matching lifecycle event. Events are published while the repository lock
// is held, so per-instance event order equals operation order; a publisher
// must not call back into the repository synchronously.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/repository"
)

// ServerType is reported in the originator of published events.
const ServerType = "cohort-memory"

// Clock supplies operation timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type entityRecord struct {
	current *instance.Entity
	history []*instance.Entity // prior versions, oldest first
}

type relationshipRecord struct {
	current *instance.Relationship
	history []*instance.Relationship
}

// Repository is the in-memory metadata collection.
type Repository struct {
	id          string
	name        string
	user        string
	types       *lattice.Lattice
	supported   lattice.NameSet
	unsupported map[repository.Operation]bool
	publisher   event.Publisher
	origin      event.Originator
	guids       instance.GUIDGenerator
	clock       Clock
	logger      *slog.Logger

	mu            sync.RWMutex
	entities      map[string]*entityRecord
	relationships map[string]*relationshipRecord
}

var _ repository.MetadataCollection = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithName sets the home-collection display name.
func WithName(name string) Option {
	return func(r *Repository) {
		r.name = name
	}
}

// WithUser sets the user recorded in createdBy/updatedBy.
func WithUser(user string) Option {
	return func(r *Repository) {
		r.user = user
	}
}

// WithPublisher sets where lifecycle events go. Default discards them.
func WithPublisher(p event.Publisher) Option {
	return func(r *Repository) {
		r.publisher = p
	}
}

// WithOriginator overrides the originator stamped on published events.
func WithOriginator(o event.Originator) Option {
	return func(r *Repository) {
		r.origin = o
	}
}

// WithUnsupported makes the listed operations fail with
// function-not-supported.
func WithUnsupported(ops ...repository.Operation) Option {
	return func(r *Repository) {
		for _, op := range ops {
			r.unsupported[op] = true
		}
	}
}

// WithSupportedTypes restricts the advertised and accepted types. By
// default every type in the lattice is supported.
func WithSupportedTypes(names ...string) Option {
	return func(r *Repository) {
		r.supported = lattice.NewNameSet(names...)
	}
}

// WithGUIDGenerator sets the GUID source for new instances.
func WithGUIDGenerator(g instance.GUIDGenerator) Option {
	return func(r *Repository) {
		r.guids = g
	}
}

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(r *Repository) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// New creates an empty repository whose home-collection id is id.
func New(id string, types *lattice.Lattice, opts ...Option) *Repository {
	r := &Repository{
		id:            id,
		name:          id,
		user:          "cohort",
		types:         types,
		supported:     lattice.NewNameSet(types.Names(instance.CategoryUnknown)...),
		unsupported:   make(map[repository.Operation]bool),
		publisher:     event.Discard,
		guids:         instance.RandomGUIDs{},
		clock:         systemClock{},
		logger:        slog.Default(),
		entities:      make(map[string]*entityRecord),
		relationships: make(map[string]*relationshipRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.origin == (event.Originator{}) {
		r.origin = event.Originator{
			SourceName:       r.name,
			HomeCollectionID: r.id,
			ServerName:       r.name,
			ServerType:       ServerType,
		}
	}
	return r
}

// CollectionID returns the home-collection id.
func (r *Repository) CollectionID() string {
	return r.id
}

// begin gates every call: declined operations and cancelled contexts fail
// before any state is read.
func (r *Repository) begin(ctx context.Context, op repository.Operation) error {
	if r.unsupported[op] {
		return repository.NotSupported(op)
	}
	if err := ctx.Err(); err != nil {
		return repository.ServerError(op, err)
	}
	return nil
}

// publish emits an event for a committed transition. Publishing failures
// are logged and do not undo the transition.
func (r *Repository) publish(ctx context.Context, op repository.Operation, p event.Payload) {
	e, err := event.New(r.origin, p)
	if err != nil {
		r.logger.Error("invalid lifecycle event", "op", op, "kind", p.Kind(), "subject", p.Subject(), "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("publish failed", "op", op, "kind", e.Kind(), "subject", e.Subject(), "error", err)
		return
	}
	r.logger.Debug("published", "op", op, "kind", e.Kind(), "subject", e.Subject(), "event_id", e.ID)
}

// touch bumps the version and update stamp shared by every mutation.
func (r *Repository) touch(h *instance.Header, now time.Time) {
	h.Version++
	h.UpdateTime = now
	h.UpdatedBy = r.user
}

func (r *Repository) newHeader(ref instance.TypeRef, now time.Time) instance.Header {
	return instance.Header{
		GUID:               r.guids.NewGUID(),
		Type:               ref,
		Status:             instance.StatusActive,
		Version:            1,
		HomeCollectionID:   r.id,
		HomeCollectionName: r.name,
		Provenance:         instance.ProvenanceLocal,
		CreatedBy:          r.user,
		CreateTime:         now,
		UpdateTime:         now,
	}
}

// rehome moves h to a new home collection. Instances homed elsewhere are
// reference copies here.
func (r *Repository) rehome(h *instance.Header, id, name string) {
	h.HomeCollectionID = id
	h.HomeCollectionName = name
	if id == r.id {
		h.Provenance = instance.ProvenanceLocal
	} else {
		h.Provenance = instance.ProvenanceReplicated
	}
}

func statusAllowed(s instance.Status, allowed []instance.Status) bool {
	if len(allowed) == 0 {
		return s == instance.StatusActive
	}
	return slices.Contains(allowed, s)
}

// page applies offset and limit to a GUID-sorted result.
func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

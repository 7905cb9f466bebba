package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// Observer receives one notification per processed record. Outcome is
// "emitted", "publish_failed" or a DropReason.
type Observer interface {
	ObserveRecord(action, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveRecord(string, string) {}

// relationshipTarget is a resolved relationship mapping.
type relationshipTarget struct {
	def        lattice.TypeDef
	end1, end2 string // roles
}

// Bridge translates change records into lifecycle events.
//
// Thread-safety: Translate is safe for concurrent use; Process and Run are
// meant to consume one ordered stream.
type Bridge struct {
	types    *lattice.Lattice
	foreign  ForeignRepository
	origin   event.Originator
	soft     bool
	logger   *slog.Logger
	observer Observer

	entityTypes     map[string]string
	relationships   map[string]relationshipTarget
	classifications map[string]string

	mu    sync.Mutex
	stats Stats
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithObserver sets the per-record observer.
func WithObserver(o Observer) Option {
	return func(b *Bridge) {
		b.observer = o
	}
}

// New builds a bridge for cfg. Every canonical name must exist in types
// with the matching category. A foreign name mapped more than once keeps
// its first mapping; the rest are logged and ignored.
func New(types *lattice.Lattice, foreign ForeignRepository, cfg *Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bridge{
		types:           types,
		foreign:         foreign,
		origin:          cfg.Originator.Originator(),
		soft:            cfg.SoftDelete,
		logger:          slog.Default(),
		observer:        nopObserver{},
		entityTypes:     make(map[string]string),
		relationships:   make(map[string]relationshipTarget),
		classifications: make(map[string]string),
		stats:           Stats{Dropped: map[DropReason]int{}},
	}
	for _, opt := range opts {
		opt(b)
	}

	for i, m := range cfg.Types {
		if _, err := b.lookup(m.Canonical, instance.CategoryEntity); err != nil {
			return nil, fmt.Errorf("types[%d]: %w", i, err)
		}
		b.addMapping(b.entityTypes, "type", m.Foreign, m.Canonical)
	}
	for i, m := range cfg.Relationships {
		def, err := b.lookup(m.Canonical, instance.CategoryRelationship)
		if err != nil {
			return nil, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		if prev, dup := b.relationships[m.Foreign]; dup {
			b.warnAmbiguous("relationship", m.Foreign, prev.def.Name, m.Canonical)
			continue
		}
		t := relationshipTarget{def: def, end1: def.End1.Role, end2: def.End2.Role}
		if m.End1Role != "" {
			t.end1 = m.End1Role
		}
		if m.End2Role != "" {
			t.end2 = m.End2Role
		}
		b.relationships[m.Foreign] = t
	}
	for i, m := range cfg.Classifications {
		if _, err := b.lookup(m.Canonical, instance.CategoryClassification); err != nil {
			return nil, fmt.Errorf("classifications[%d]: %w", i, err)
		}
		b.addMapping(b.classifications, "classification", m.Foreign, m.Canonical)
	}
	return b, nil
}

func (b *Bridge) lookup(name string, want instance.TypeCategory) (lattice.TypeDef, error) {
	def, ok := b.types.Lookup(name)
	if !ok {
		return lattice.TypeDef{}, fmt.Errorf("canonical type %q is not defined", name)
	}
	if def.Category != want {
		return lattice.TypeDef{}, fmt.Errorf("canonical type %q is a %s type, want %s", name, def.Category, want)
	}
	return def, nil
}

func (b *Bridge) addMapping(m map[string]string, kind, foreign, canonical string) {
	if prev, dup := m[foreign]; dup {
		if prev != canonical {
			b.warnAmbiguous(kind, foreign, prev, canonical)
		}
		return
	}
	m[foreign] = canonical
}

func (b *Bridge) warnAmbiguous(kind, foreign, kept, ignored string) {
	b.logger.Warn("ambiguous foreign mapping, keeping the first",
		"kind", kind, "foreign", foreign, "canonical", kept, "ignored", ignored)
}

// CanonicalType returns the canonical entity type for a foreign type name.
func (b *Bridge) CanonicalType(foreign string) (string, bool) {
	t, ok := b.entityTypes[foreign]
	return t, ok
}

// Translate turns one change record into a lifecycle event. A record that
// cannot be translated yields nil and a *DropError.
func (b *Bridge) Translate(ctx context.Context, rec ChangeRecord) (*event.Event, error) {
	if !rec.Action.Known() {
		return nil, drop(DropUnmappedAction, rec, "", nil)
	}
	if rec.GUID == "" {
		return nil, drop(DropInvalidRecord, rec, "", errors.New("record has no guid"))
	}

	var (
		payload event.Payload
		derr    *DropError
	)
	switch rec.Action {
	case ActionCreate:
		payload, derr = b.created(ctx, rec)
	case ActionModify:
		payload, derr = b.modified(ctx, rec)
	case ActionDelete:
		payload, derr = b.deleted(rec)
	case ActionAssignedRelationship:
		payload, derr = b.assigned(ctx, rec)
	case ActionUnassignedRelationship:
		payload, derr = b.unassigned(ctx, rec)
	case ActionAddClassification:
		payload, derr = b.classified(ctx, rec)
	case ActionRemoveClassification:
		payload, derr = b.declassified(ctx, rec)
	}
	if derr != nil {
		return nil, derr
	}

	e, err := event.New(b.origin, payload)
	if err != nil {
		return nil, drop(DropInvalidRecord, rec, "", err)
	}
	return &e, nil
}

// entityType maps the record's foreign type.
func (b *Bridge) entityType(rec ChangeRecord, foreign string) (string, *DropError) {
	canonical, ok := b.entityTypes[foreign]
	if !ok {
		return "", drop(DropUnmappedType, rec, "", fmt.Errorf("foreign type %q has no mapping", foreign))
	}
	return canonical, nil
}

// resolve fetches a referenced entity from the foreign repository.
func (b *Bridge) resolve(ctx context.Context, rec ChangeRecord, guid string) (*ForeignEntity, *DropError) {
	if guid == "" {
		return nil, drop(DropUnresolvedEnd, rec, guid, errors.New("empty guid"))
	}
	fe, err := b.foreign.GetEntity(ctx, guid)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, drop(DropUnresolvedEnd, rec, guid, err)
	case err != nil:
		return nil, drop(DropForeignFailure, rec, guid, err)
	}
	return fe, nil
}

// properties converts foreign values to the canonical attributes of
// typeName. Foreign fields without a canonical attribute are left out.
func (b *Bridge) properties(rec ChangeRecord, typeName string, raw map[string]any) (instance.Properties, *DropError) {
	if raw == nil {
		return nil, nil
	}
	attrs, err := b.types.ResolveAttributes(typeName)
	if err != nil {
		return nil, drop(DropUnmappedType, rec, "", err)
	}
	byName := make(map[string]lattice.AttributeDef, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(instance.Properties, len(raw))
	for _, k := range keys {
		a, ok := byName[k]
		if !ok || raw[k] == nil {
			continue
		}
		var v instance.PropertyValue
		if a.Category == lattice.AttributePrimitive {
			v, err = instance.FromNative(a.Primitive, raw[k])
		} else {
			v, err = instance.FromAny(raw[k])
		}
		if err != nil {
			return nil, drop(DropInvalidRecord, rec, "", fmt.Errorf("attribute %s: %w", k, err))
		}
		props[k] = v
	}
	return props, nil
}

// header stamps identity, type and version on an instance homed at the
// bridge's originator.
func (b *Bridge) header(guid, typeName string, version int64, rec ChangeRecord) (instance.Header, error) {
	ref, err := b.types.TypeRef(typeName)
	if err != nil {
		return instance.Header{}, err
	}
	return instance.Header{
		GUID:               guid,
		Type:               ref,
		Status:             instance.StatusActive,
		Version:            version,
		HomeCollectionID:   b.origin.HomeCollectionID,
		HomeCollectionName: b.origin.SourceName,
		Provenance:         instance.ProvenanceLocal,
		CreateTime:         rec.Modified,
		UpdateTime:         rec.Modified,
	}, nil
}

func (b *Bridge) entity(rec ChangeRecord, guid, typeName string, raw map[string]any, version int64) (*instance.Entity, *DropError) {
	props, derr := b.properties(rec, typeName, raw)
	if derr != nil {
		return nil, derr
	}
	h, err := b.header(guid, typeName, version, rec)
	if err != nil {
		return nil, drop(DropUnmappedType, rec, "", err)
	}
	return &instance.Entity{Header: h, Properties: props}, nil
}

// recordEntity builds the snapshot a CREATE or MODIFY describes. A record
// without properties is completed from the foreign repository.
func (b *Bridge) recordEntity(ctx context.Context, rec ChangeRecord) (*instance.Entity, *DropError) {
	foreignType, raw, version := rec.TypeName, rec.Properties, rec.version()
	if raw == nil || foreignType == "" {
		fe, derr := b.resolve(ctx, rec, rec.GUID)
		if derr != nil {
			return nil, derr
		}
		if foreignType == "" {
			foreignType = fe.TypeName
		}
		if raw == nil {
			raw = fe.Properties
		}
		if version == 0 {
			version = foreignVersion(fe)
		}
	}
	typeName, derr := b.entityType(rec, foreignType)
	if derr != nil {
		return nil, derr
	}
	return b.entity(rec, rec.GUID, typeName, raw, version)
}

func foreignVersion(fe *ForeignEntity) int64 {
	if fe.Version > 0 || fe.Modified.IsZero() {
		return fe.Version
	}
	return fe.Modified.UnixMilli()
}

func (b *Bridge) created(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	e, derr := b.recordEntity(ctx, rec)
	if derr != nil {
		return nil, derr
	}
	return event.NewEntity{Entity: e}, nil
}

// modified emits an update. The old snapshot is included only when the
// record carries the previous properties.
func (b *Bridge) modified(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	e, derr := b.recordEntity(ctx, rec)
	if derr != nil {
		return nil, derr
	}
	p := event.UpdatedEntity{New: e}
	if rec.PreviousProperties != nil && e.Version > 0 {
		old, derr := b.entity(rec, e.GUID, e.Type.Name, rec.PreviousProperties, e.Version-1)
		if derr != nil {
			return nil, derr
		}
		p.Old = old
	}
	return p, nil
}

// deleted emits a purge for sources without soft delete: a delete event
// needs a restorable snapshot the source cannot provide.
func (b *Bridge) deleted(rec ChangeRecord) (event.Payload, *DropError) {
	typeName, derr := b.entityType(rec, rec.TypeName)
	if derr != nil {
		return nil, derr
	}
	if !b.soft {
		def, _ := b.types.Lookup(typeName)
		return event.PurgedEntity{TypeGUID: def.GUID, TypeName: typeName, GUID: rec.GUID}, nil
	}
	e, derr := b.entity(rec, rec.GUID, typeName, rec.Properties, rec.version())
	if derr != nil {
		return nil, derr
	}
	e.StatusOnDelete = e.Status
	e.Status = instance.StatusDeleted
	return event.DeletedEntity{Entity: e}, nil
}

func (b *Bridge) relationshipType(rec ChangeRecord) (relationshipTarget, *DropError) {
	t, ok := b.relationships[rec.RelationshipType]
	if !ok {
		return relationshipTarget{}, drop(DropUnmappedType, rec, "", fmt.Errorf("foreign relationship %q has no mapping", rec.RelationshipType))
	}
	return t, nil
}

// relationshipGUID is derived from the type and ends, so the assign and
// unassign records of one link agree without foreign support.
func relationshipGUID(typeName, end1, end2 string) string {
	return instance.DeriveGUID(typeName, end1, end2)
}

// assigned resolves both ends before emitting; a relationship event never
// carries a dangling end.
func (b *Bridge) assigned(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	t, derr := b.relationshipType(rec)
	if derr != nil {
		return nil, derr
	}
	var ends [2]instance.RelationshipEnd
	for i, want := range []struct{ guid, role, entityType string }{
		{rec.GUID, t.end1, t.def.End1.EntityType},
		{rec.RelatedGUID, t.end2, t.def.End2.EntityType},
	} {
		fe, derr := b.resolve(ctx, rec, want.guid)
		if derr != nil {
			return nil, derr
		}
		typeName, derr := b.entityType(rec, fe.TypeName)
		if derr != nil {
			return nil, derr
		}
		if want.entityType != "" && !b.types.IsSubtypeOf(typeName, want.entityType) {
			return nil, drop(DropInvalidRecord, rec, want.guid,
				fmt.Errorf("end %d is a %s, %s needs a %s", i+1, typeName, t.def.Name, want.entityType))
		}
		ref, err := b.types.TypeRef(typeName)
		if err != nil {
			return nil, drop(DropUnmappedType, rec, want.guid, err)
		}
		ends[i] = instance.RelationshipEnd{
			Role:   want.role,
			Entity: instance.EntityProxy{GUID: fe.GUID, Type: ref, HomeCollectionID: b.origin.HomeCollectionID},
		}
	}

	props, derr := b.properties(rec, t.def.Name, rec.Properties)
	if derr != nil {
		return nil, derr
	}
	h, err := b.header(relationshipGUID(t.def.Name, rec.GUID, rec.RelatedGUID), t.def.Name, rec.version(), rec)
	if err != nil {
		return nil, drop(DropUnmappedType, rec, "", err)
	}
	return event.NewRelationship{Relationship: &instance.Relationship{
		Header:     h,
		Properties: props,
		End1:       ends[0],
		End2:       ends[1],
	}}, nil
}

// unassigned derives the relationship GUID from the identifiers the record
// already carries, so a hard delete needs no end lookup.
func (b *Bridge) unassigned(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	t, derr := b.relationshipType(rec)
	if derr != nil {
		return nil, derr
	}
	if rec.RelatedGUID == "" {
		return nil, drop(DropInvalidRecord, rec, "", errors.New("record has no related guid"))
	}
	guid := relationshipGUID(t.def.Name, rec.GUID, rec.RelatedGUID)
	if !b.soft {
		return event.PurgedRelationship{TypeGUID: t.def.GUID, TypeName: t.def.Name, GUID: guid}, nil
	}

	h, err := b.header(guid, t.def.Name, rec.version(), rec)
	if err != nil {
		return nil, drop(DropUnmappedType, rec, "", err)
	}
	h.StatusOnDelete = h.Status
	h.Status = instance.StatusDeleted
	end1, derr := b.unassignedEnd(ctx, rec, rec.GUID, t.end1, t.def.End1.EntityType)
	if derr != nil {
		return nil, derr
	}
	end2, derr := b.unassignedEnd(ctx, rec, rec.RelatedGUID, t.end2, t.def.End2.EntityType)
	if derr != nil {
		return nil, derr
	}
	return event.DeletedRelationship{Relationship: &instance.Relationship{
		Header: h,
		End1:   end1,
		End2:   end2,
	}}, nil
}

// unassignedEnd types one end of a link being removed. The end entity may
// already be gone from the foreign repository, so the declared end type
// stands in when the lookup fails.
func (b *Bridge) unassignedEnd(ctx context.Context, rec ChangeRecord, guid, role, declared string) (instance.RelationshipEnd, *DropError) {
	typeName := declared
	if fe, derr := b.resolve(ctx, rec, guid); derr == nil {
		if name, derr := b.entityType(rec, fe.TypeName); derr == nil {
			typeName = name
		}
	}
	if typeName == "" {
		return instance.RelationshipEnd{}, drop(DropUnresolvedEnd, rec, guid, errors.New("end entity not found and its type is not declared"))
	}
	ref, err := b.types.TypeRef(typeName)
	if err != nil {
		return instance.RelationshipEnd{}, drop(DropUnmappedType, rec, guid, err)
	}
	return instance.RelationshipEnd{
		Role:   role,
		Entity: instance.EntityProxy{GUID: guid, Type: ref, HomeCollectionID: b.origin.HomeCollectionID},
	}, nil
}

// classificationTarget resolves the classified entity and the canonical
// classification.
func (b *Bridge) classificationTarget(ctx context.Context, rec ChangeRecord) (*instance.Entity, string, *DropError) {
	name, ok := b.classifications[rec.Classification]
	if !ok {
		return nil, "", drop(DropUnmappedType, rec, "", fmt.Errorf("foreign classification %q has no mapping", rec.Classification))
	}
	fe, derr := b.resolve(ctx, rec, rec.GUID)
	if derr != nil {
		return nil, "", derr
	}
	typeName, derr := b.entityType(rec, fe.TypeName)
	if derr != nil {
		return nil, "", derr
	}
	def, _ := b.types.Lookup(name)
	if !appliesTo(b.types, def, typeName) {
		return nil, "", drop(DropInvalidRecord, rec, rec.GUID, fmt.Errorf("%s cannot classify a %s", name, typeName))
	}
	version := rec.version()
	if version == 0 {
		version = foreignVersion(fe)
	}
	e, derr := b.entity(rec, fe.GUID, typeName, fe.Properties, version)
	if derr != nil {
		return nil, "", derr
	}
	return e, name, nil
}

func appliesTo(types *lattice.Lattice, def lattice.TypeDef, entityType string) bool {
	if len(def.ValidEntityTypes) == 0 {
		return true
	}
	for _, t := range def.ValidEntityTypes {
		if types.IsSubtypeOf(entityType, t) {
			return true
		}
	}
	return false
}

func (b *Bridge) classified(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	e, name, derr := b.classificationTarget(ctx, rec)
	if derr != nil {
		return nil, derr
	}
	props, derr := b.properties(rec, name, rec.Properties)
	if derr != nil {
		return nil, derr
	}
	c := instance.Classification{
		Name:       name,
		Properties: props,
		Version:    1,
		CreateTime: rec.Modified,
		UpdateTime: rec.Modified,
	}
	e.SetClassification(c)
	return event.ClassifiedEntity{Entity: e, Classification: c}, nil
}

func (b *Bridge) declassified(ctx context.Context, rec ChangeRecord) (event.Payload, *DropError) {
	e, name, derr := b.classificationTarget(ctx, rec)
	if derr != nil {
		return nil, derr
	}
	props, derr := b.properties(rec, name, rec.Properties)
	if derr != nil {
		return nil, derr
	}
	return event.DeclassifiedEntity{Entity: e, Classification: instance.Classification{
		Name:       name,
		Properties: props,
		UpdateTime: rec.Modified,
	}}, nil
}

package memory

import (
	"context"
	"sort"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/search"
)

// FindEntities returns entities of req.TypeName (or its subtypes) whose
// properties match req.Predicate.
func (r *Repository) FindEntities(ctx context.Context, req repository.FindRequest) ([]*instance.Entity, error) {
	const op = repository.OpFindEntities
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if err := r.checkFind(op, req, instance.CategoryEntity); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*instance.Entity
	for _, rec := range r.entities {
		e := rec.current
		if r.entityMatches(e, req) && search.Match(req.Predicate, e.Properties) {
			out = append(out, e.Clone())
		}
	}
	return sortEntities(out, req), nil
}

// FindEntitiesByClassification returns entities carrying the named
// classification whose classification properties match req.Predicate.
func (r *Repository) FindEntitiesByClassification(ctx context.Context, classification string, req repository.FindRequest) ([]*instance.Entity, error) {
	const op = repository.OpFindEntitiesByClassification
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if _, _, err := r.typeRef(op, classification, instance.CategoryClassification); err != nil {
		return nil, err
	}
	if err := r.checkFind(op, req, instance.CategoryEntity); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*instance.Entity
	for _, rec := range r.entities {
		e := rec.current
		if !r.entityMatches(e, req) {
			continue
		}
		if c, ok := e.Classification(classification); ok && search.Match(req.Predicate, c.Properties) {
			out = append(out, e.Clone())
		}
	}
	return sortEntities(out, req), nil
}

func (r *Repository) checkFind(op repository.Operation, req repository.FindRequest, want instance.TypeCategory) error {
	if req.Offset < 0 || req.Limit < 0 {
		return repository.InvalidParameter(op, "negative offset or limit")
	}
	if req.TypeName != "" {
		def, ok := r.types.Lookup(req.TypeName)
		if !ok {
			return repository.InvalidParameter(op, "unknown type %q", req.TypeName)
		}
		if def.Category != want {
			return repository.InvalidParameter(op, "type %q is a %s type, want %s", req.TypeName, def.Category, want)
		}
	}
	if res := search.Validate(req.Predicate); !res.Valid {
		return repository.InvalidParameter(op, "predicate: %s", res.Problems[0])
	}
	return nil
}

func (r *Repository) entityMatches(e *instance.Entity, req repository.FindRequest) bool {
	if req.TypeName != "" && !e.Type.IsA(req.TypeName) {
		return false
	}
	return statusAllowed(e.Status, req.Statuses)
}

func sortEntities(out []*instance.Entity, req repository.FindRequest) []*instance.Entity {
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return page(out, req.Offset, req.Limit)
}

// GetEntity returns the current version of an entity, deleted or not.
func (r *Repository) GetEntity(ctx context.Context, guid string) (*instance.Entity, error) {
	const op = repository.OpGetEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.entity(op, guid)
	if err != nil {
		return nil, err
	}
	return rec.current.Clone(), nil
}

// entity looks up a record. Caller holds the lock.
func (r *Repository) entity(op repository.Operation, guid string) (*entityRecord, error) {
	if guid == "" {
		return nil, repository.InvalidParameter(op, "empty entity GUID")
	}
	rec, ok := r.entities[guid]
	if !ok {
		return nil, repository.NotFound(op, "entity %s", guid)
	}
	return rec, nil
}

// activeEntity looks up a record that must not be soft-deleted.
func (r *Repository) activeEntity(op repository.Operation, guid string) (*entityRecord, error) {
	rec, err := r.entity(op, guid)
	if err != nil {
		return nil, err
	}
	if rec.current.IsDeleted() {
		return nil, repository.InvalidParameter(op, "entity %s is deleted", guid)
	}
	return rec, nil
}

// commit records next as the current version, keeping the previous one for
// undo. Caller holds the write lock.
func (rec *entityRecord) commit(next *instance.Entity) {
	rec.history = append(rec.history, rec.current)
	rec.current = next
}

// AddEntity creates an entity homed in this repository.
func (r *Repository) AddEntity(ctx context.Context, typeName string, props instance.Properties, classifications []instance.Classification) (*instance.Entity, error) {
	const op = repository.OpAddEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	ref, _, err := r.typeRef(op, typeName, instance.CategoryEntity)
	if err != nil {
		return nil, err
	}
	if err := r.checkProperties(op, typeName, props); err != nil {
		return nil, err
	}
	for _, c := range classifications {
		if err := r.checkClassification(op, c.Name, typeName, c.Properties); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	e := &instance.Entity{
		Header:     r.newHeader(ref, now),
		Properties: props.Clone(),
	}
	if e.Properties == nil {
		e.Properties = instance.Properties{}
	}
	if err := r.checkNewGUID(op, e.GUID); err != nil {
		return nil, repository.ServerError(op, err)
	}
	if err := r.checkUniqueEntity(op, typeName, e.GUID, props); err != nil {
		return nil, err
	}
	for _, c := range classifications {
		e.SetClassification(instance.Classification{
			Name:       c.Name,
			Properties: c.Properties.Clone(),
			Version:    1,
			CreateTime: now,
			UpdateTime: now,
		})
	}

	r.entities[e.GUID] = &entityRecord{current: e}
	r.publish(ctx, op, event.NewEntity{Entity: e.Clone()})
	return e.Clone(), nil
}

// UpdateEntityProperties replaces an entity's property bag.
func (r *Repository) UpdateEntityProperties(ctx context.Context, guid string, props instance.Properties) (*instance.Entity, error) {
	const op = repository.OpUpdateEntityProperties
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if props == nil {
		return nil, repository.InvalidParameter(op, "nil properties; pass an empty bag to clear")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	typeName := rec.current.Type.Name
	if err := r.checkProperties(op, typeName, props); err != nil {
		return nil, err
	}
	if err := r.checkUniqueEntity(op, typeName, guid, props); err != nil {
		return nil, err
	}

	old := rec.current
	next := old.Clone()
	next.Properties = props.Clone()
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.UpdatedEntity{Old: old.Clone(), New: next.Clone()})
	return next.Clone(), nil
}

// UndoEntityUpdate restores the previous version's properties and
// classifications. The version still increases.
func (r *Repository) UndoEntityUpdate(ctx context.Context, guid string) (*instance.Entity, error) {
	const op = repository.OpUndoEntityUpdate
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	if len(rec.history) == 0 {
		return nil, repository.InvalidParameter(op, "entity %s has no previous version", guid)
	}

	prev := rec.history[len(rec.history)-1]
	next := rec.current.Clone()
	next.Properties = prev.Properties.Clone()
	next.Classifications = prev.Clone().Classifications
	r.touch(&next.Header, r.clock.Now())
	rec.history = rec.history[:len(rec.history)-1]
	rec.current = next

	r.publish(ctx, op, event.UndoneEntity{Entity: next.Clone()})
	return next.Clone(), nil
}

// ClassifyEntity attaches a new classification.
func (r *Repository) ClassifyEntity(ctx context.Context, guid, classification string, props instance.Properties) (*instance.Entity, error) {
	const op = repository.OpClassifyEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	if err := r.checkClassification(op, classification, rec.current.Type.Name, props); err != nil {
		return nil, err
	}
	if _, ok := rec.current.Classification(classification); ok {
		return nil, repository.InvalidParameter(op, "entity %s is already classified as %s", guid, classification)
	}

	now := r.clock.Now()
	c := instance.Classification{
		Name:       classification,
		Properties: props.Clone(),
		Version:    1,
		CreateTime: now,
		UpdateTime: now,
	}
	next := rec.current.Clone()
	next.SetClassification(c)
	r.touch(&next.Header, now)
	rec.commit(next)

	r.publish(ctx, op, event.ClassifiedEntity{Entity: next.Clone(), Classification: c.Clone()})
	return next.Clone(), nil
}

// UpdateEntityClassification replaces the properties of an attached
// classification.
func (r *Repository) UpdateEntityClassification(ctx context.Context, guid, classification string, props instance.Properties) (*instance.Entity, error) {
	const op = repository.OpUpdateEntityClassification
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	original, ok := rec.current.Classification(classification)
	if !ok {
		return nil, repository.InvalidParameter(op, "entity %s is not classified as %s", guid, classification)
	}
	if err := r.checkClassification(op, classification, rec.current.Type.Name, props); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	updated := original.Clone()
	updated.Properties = props.Clone()
	updated.Version++
	updated.UpdateTime = now

	next := rec.current.Clone()
	next.SetClassification(updated)
	r.touch(&next.Header, now)
	rec.commit(next)

	r.publish(ctx, op, event.ReclassifiedEntity{Entity: next.Clone(), Original: original.Clone(), Updated: updated.Clone()})
	return next.Clone(), nil
}

// DeclassifyEntity removes an attached classification.
func (r *Repository) DeclassifyEntity(ctx context.Context, guid, classification string) (*instance.Entity, error) {
	const op = repository.OpDeclassifyEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	removed, ok := rec.current.Classification(classification)
	if !ok {
		return nil, repository.InvalidParameter(op, "entity %s is not classified as %s", guid, classification)
	}

	next := rec.current.Clone()
	next.RemoveClassification(classification)
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.DeclassifiedEntity{Entity: next.Clone(), Classification: removed.Clone()})
	return next.Clone(), nil
}

// DeleteEntity soft-deletes an entity. It can be restored until purged.
func (r *Repository) DeleteEntity(ctx context.Context, guid string) (*instance.Entity, error) {
	const op = repository.OpDeleteEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}

	next := rec.current.Clone()
	next.StatusOnDelete = next.Status
	next.Status = instance.StatusDeleted
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.DeletedEntity{Entity: next.Clone()})
	return next.Clone(), nil
}

// PurgeEntity irreversibly removes a soft-deleted entity together with
// every relationship that references it.
func (r *Repository) PurgeEntity(ctx context.Context, guid string) error {
	const op = repository.OpPurgeEntity
	if err := r.begin(ctx, op); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.entity(op, guid)
	if err != nil {
		return err
	}
	if !rec.current.IsDeleted() {
		return repository.InvalidParameter(op, "entity %s must be deleted before it is purged", guid)
	}

	var attached []string
	for rguid, rrec := range r.relationships {
		if rrec.current.Touches(guid) {
			attached = append(attached, rguid)
		}
	}
	sort.Strings(attached)
	for _, rguid := range attached {
		rel := r.relationships[rguid].current
		delete(r.relationships, rguid)
		r.publish(ctx, op, event.PurgedRelationship{TypeGUID: rel.Type.GUID, TypeName: rel.Type.Name, GUID: rguid})
	}

	e := rec.current
	delete(r.entities, guid)
	r.publish(ctx, op, event.PurgedEntity{TypeGUID: e.Type.GUID, TypeName: e.Type.Name, GUID: guid})
	return nil
}

// RestoreEntity reverses a soft delete.
func (r *Repository) RestoreEntity(ctx context.Context, guid string) (*instance.Entity, error) {
	const op = repository.OpRestoreEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.entity(op, guid)
	if err != nil {
		return nil, err
	}
	if !rec.current.IsDeleted() {
		return nil, repository.InvalidParameter(op, "entity %s is not deleted", guid)
	}

	next := rec.current.Clone()
	next.Status = next.StatusOnDelete
	if next.Status == "" {
		next.Status = instance.StatusActive
	}
	next.StatusOnDelete = ""
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.RestoredEntity{Entity: next.Clone()})
	return next.Clone(), nil
}

// RetypeEntity moves an entity to a supertype or subtype of its current type.
func (r *Repository) RetypeEntity(ctx context.Context, guid, newType string) (*instance.Entity, error) {
	const op = repository.OpRetypeEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	original := rec.current.Type
	ref, err := r.checkRetype(op, original.Name, newType, instance.CategoryEntity, rec.current.Properties)
	if err != nil {
		return nil, err
	}

	next := rec.current.Clone()
	next.Type = ref
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)
	r.refreshProxies(next)

	r.publish(ctx, op, event.RetypedEntity{OriginalType: original, Entity: next.Clone()})
	return next.Clone(), nil
}

// RehomeEntity transfers ownership of an entity to another collection.
func (r *Repository) RehomeEntity(ctx context.Context, guid, newHomeCollectionID, newHomeCollectionName string) (*instance.Entity, error) {
	const op = repository.OpRehomeEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if newHomeCollectionID == "" {
		return nil, repository.InvalidParameter(op, "empty home collection id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	original := rec.current.HomeCollectionID
	if original == newHomeCollectionID {
		return nil, repository.InvalidParameter(op, "entity %s is already homed in %s", guid, original)
	}

	next := rec.current.Clone()
	r.rehome(&next.Header, newHomeCollectionID, newHomeCollectionName)
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)
	r.refreshProxies(next)

	r.publish(ctx, op, event.RehomedEntity{OriginalHomeCollectionID: original, Entity: next.Clone()})
	return next.Clone(), nil
}

// ReidentifyEntity changes an entity's GUID. Relationships follow it.
func (r *Repository) ReidentifyEntity(ctx context.Context, guid, newGUID string) (*instance.Entity, error) {
	const op = repository.OpReidentifyEntity
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeEntity(op, guid)
	if err != nil {
		return nil, err
	}
	if err := r.checkNewGUID(op, newGUID); err != nil {
		return nil, err
	}

	next := rec.current.Clone()
	next.GUID = newGUID
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)
	delete(r.entities, guid)
	r.entities[newGUID] = rec

	for _, rrec := range r.relationships {
		for _, end := range []*instance.RelationshipEnd{&rrec.current.End1, &rrec.current.End2} {
			if end.Entity.GUID == guid {
				end.Entity.GUID = newGUID
			}
		}
	}

	r.publish(ctx, op, event.ReidentifiedEntity{OriginalGUID: guid, Entity: next.Clone()})
	return next.Clone(), nil
}

// refreshProxies updates relationship ends after an entity changes type or
// home. Proxies are references, not versions, so no events are emitted.
func (r *Repository) refreshProxies(e *instance.Entity) {
	proxy := e.Proxy()
	for _, rrec := range r.relationships {
		for _, end := range []*instance.RelationshipEnd{&rrec.current.End1, &rrec.current.End2} {
			if end.Entity.GUID == e.GUID {
				end.Entity = proxy
			}
		}
	}
}

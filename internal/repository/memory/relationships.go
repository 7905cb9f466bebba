package memory

import (
	"context"
	"sort"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/search"
)

// FindRelationships returns relationships of req.TypeName (or its subtypes)
// whose properties match req.Predicate.
func (r *Repository) FindRelationships(ctx context.Context, req repository.FindRequest) ([]*instance.Relationship, error) {
	const op = repository.OpFindRelationships
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if err := r.checkFind(op, req, instance.CategoryRelationship); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*instance.Relationship
	for _, rec := range r.relationships {
		rel := rec.current
		if req.TypeName != "" && !rel.Type.IsA(req.TypeName) {
			continue
		}
		if statusAllowed(rel.Status, req.Statuses) && search.Match(req.Predicate, rel.Properties) {
			out = append(out, rel.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return page(out, req.Offset, req.Limit), nil
}

// GetRelationship returns the current version of a relationship.
func (r *Repository) GetRelationship(ctx context.Context, guid string) (*instance.Relationship, error) {
	const op = repository.OpGetRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.relationship(op, guid)
	if err != nil {
		return nil, err
	}
	return rec.current.Clone(), nil
}

func (r *Repository) relationship(op repository.Operation, guid string) (*relationshipRecord, error) {
	if guid == "" {
		return nil, repository.InvalidParameter(op, "empty relationship GUID")
	}
	rec, ok := r.relationships[guid]
	if !ok {
		return nil, repository.NotFound(op, "relationship %s", guid)
	}
	return rec, nil
}

func (r *Repository) activeRelationship(op repository.Operation, guid string) (*relationshipRecord, error) {
	rec, err := r.relationship(op, guid)
	if err != nil {
		return nil, err
	}
	if rec.current.IsDeleted() {
		return nil, repository.InvalidParameter(op, "relationship %s is deleted", guid)
	}
	return rec, nil
}

func (rec *relationshipRecord) commit(next *instance.Relationship) {
	rec.history = append(rec.history, rec.current)
	rec.current = next
}

// AddRelationship links two active entities. Each end's entity must be of
// the entity type (or a subtype) the relationship type declares for it.
func (r *Repository) AddRelationship(ctx context.Context, typeName string, props instance.Properties, end1GUID, end2GUID string) (*instance.Relationship, error) {
	const op = repository.OpAddRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	ref, def, err := r.typeRef(op, typeName, instance.CategoryRelationship)
	if err != nil {
		return nil, err
	}
	if err := r.checkProperties(op, typeName, props); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ends := [2]instance.RelationshipEnd{}
	for i, spec := range []struct {
		guid string
		want string
		role string
	}{
		{end1GUID, def.End1.EntityType, def.End1.Role},
		{end2GUID, def.End2.EntityType, def.End2.Role},
	} {
		rec, err := r.activeEntity(op, spec.guid)
		if err != nil {
			return nil, err
		}
		if spec.want != "" && !rec.current.Type.IsA(spec.want) {
			return nil, repository.InvalidParameter(op, "end %d: entity %s is a %s, want %s", i+1, spec.guid, rec.current.Type.Name, spec.want)
		}
		ends[i] = instance.RelationshipEnd{Role: spec.role, Entity: rec.current.Proxy()}
	}

	now := r.clock.Now()
	rel := &instance.Relationship{
		Header:     r.newHeader(ref, now),
		Properties: props.Clone(),
		End1:       ends[0],
		End2:       ends[1],
	}
	if rel.Properties == nil {
		rel.Properties = instance.Properties{}
	}
	if err := r.checkNewGUID(op, rel.GUID); err != nil {
		return nil, repository.ServerError(op, err)
	}

	r.relationships[rel.GUID] = &relationshipRecord{current: rel}
	r.publish(ctx, op, event.NewRelationship{Relationship: rel.Clone()})
	return rel.Clone(), nil
}

// UpdateRelationshipProperties replaces a relationship's property bag.
func (r *Repository) UpdateRelationshipProperties(ctx context.Context, guid string, props instance.Properties) (*instance.Relationship, error) {
	const op = repository.OpUpdateRelationshipProperties
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if props == nil {
		return nil, repository.InvalidParameter(op, "nil properties; pass an empty bag to clear")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
	if err != nil {
		return nil, err
	}
	if err := r.checkProperties(op, rec.current.Type.Name, props); err != nil {
		return nil, err
	}

	old := rec.current
	next := old.Clone()
	next.Properties = props.Clone()
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.UpdatedRelationship{Old: old.Clone(), New: next.Clone()})
	return next.Clone(), nil
}

// UndoRelationshipUpdate restores the previous version's properties.
func (r *Repository) UndoRelationshipUpdate(ctx context.Context, guid string) (*instance.Relationship, error) {
	const op = repository.OpUndoRelationshipUpdate
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
	if err != nil {
		return nil, err
	}
	if len(rec.history) == 0 {
		return nil, repository.InvalidParameter(op, "relationship %s has no previous version", guid)
	}

	prev := rec.history[len(rec.history)-1]
	next := rec.current.Clone()
	next.Properties = prev.Properties.Clone()
	r.touch(&next.Header, r.clock.Now())
	rec.history = rec.history[:len(rec.history)-1]
	rec.current = next

	r.publish(ctx, op, event.UndoneRelationship{Relationship: next.Clone()})
	return next.Clone(), nil
}

// DeleteRelationship soft-deletes a relationship.
func (r *Repository) DeleteRelationship(ctx context.Context, guid string) (*instance.Relationship, error) {
	const op = repository.OpDeleteRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
	if err != nil {
		return nil, err
	}

	next := rec.current.Clone()
	next.StatusOnDelete = next.Status
	next.Status = instance.StatusDeleted
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.DeletedRelationship{Relationship: next.Clone()})
	return next.Clone(), nil
}

// PurgeRelationship irreversibly removes a soft-deleted relationship.
func (r *Repository) PurgeRelationship(ctx context.Context, guid string) error {
	const op = repository.OpPurgeRelationship
	if err := r.begin(ctx, op); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.relationship(op, guid)
	if err != nil {
		return err
	}
	if !rec.current.IsDeleted() {
		return repository.InvalidParameter(op, "relationship %s must be deleted before it is purged", guid)
	}

	rel := rec.current
	delete(r.relationships, guid)
	r.publish(ctx, op, event.PurgedRelationship{TypeGUID: rel.Type.GUID, TypeName: rel.Type.Name, GUID: guid})
	return nil
}

// RestoreRelationship reverses a soft delete. Both ends must still be active.
func (r *Repository) RestoreRelationship(ctx context.Context, guid string) (*instance.Relationship, error) {
	const op = repository.OpRestoreRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.relationship(op, guid)
	if err != nil {
		return nil, err
	}
	if !rec.current.IsDeleted() {
		return nil, repository.InvalidParameter(op, "relationship %s is not deleted", guid)
	}
	for _, end := range []instance.RelationshipEnd{rec.current.End1, rec.current.End2} {
		if _, err := r.activeEntity(op, end.Entity.GUID); err != nil {
			return nil, err
		}
	}

	next := rec.current.Clone()
	next.Status = next.StatusOnDelete
	if next.Status == "" {
		next.Status = instance.StatusActive
	}
	next.StatusOnDelete = ""
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.RestoredRelationship{Relationship: next.Clone()})
	return next.Clone(), nil
}

// RetypeRelationship moves a relationship to a supertype or subtype.
func (r *Repository) RetypeRelationship(ctx context.Context, guid, newType string) (*instance.Relationship, error) {
	const op = repository.OpRetypeRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
	if err != nil {
		return nil, err
	}
	original := rec.current.Type
	ref, err := r.checkRetype(op, original.Name, newType, instance.CategoryRelationship, rec.current.Properties)
	if err != nil {
		return nil, err
	}

	next := rec.current.Clone()
	next.Type = ref
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.RetypedRelationship{OriginalType: original, Relationship: next.Clone()})
	return next.Clone(), nil
}

// RehomeRelationship transfers ownership of a relationship.
func (r *Repository) RehomeRelationship(ctx context.Context, guid, newHomeCollectionID, newHomeCollectionName string) (*instance.Relationship, error) {
	const op = repository.OpRehomeRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}
	if newHomeCollectionID == "" {
		return nil, repository.InvalidParameter(op, "empty home collection id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
	if err != nil {
		return nil, err
	}
	original := rec.current.HomeCollectionID
	if original == newHomeCollectionID {
		return nil, repository.InvalidParameter(op, "relationship %s is already homed in %s", guid, original)
	}

	next := rec.current.Clone()
	r.rehome(&next.Header, newHomeCollectionID, newHomeCollectionName)
	r.touch(&next.Header, r.clock.Now())
	rec.commit(next)

	r.publish(ctx, op, event.RehomedRelationship{OriginalHomeCollectionID: original, Relationship: next.Clone()})
	return next.Clone(), nil
}

// ReidentifyRelationship changes a relationship's GUID.
func (r *Repository) ReidentifyRelationship(ctx context.Context, guid, newGUID string) (*instance.Relationship, error) {
	const op = repository.OpReidentifyRelationship
	if err := r.begin(ctx, op); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.activeRelationship(op, guid)
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
	delete(r.relationships, guid)
	r.relationships[newGUID] = rec

	r.publish(ctx, op, event.ReidentifiedRelationship{OriginalGUID: guid, Relationship: next.Clone()})
	return next.Clone(), nil
}

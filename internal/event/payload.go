package event

import (
	"github.com/roach88/cohort/internal/instance"
)

// Payload is the kind-specific body of an event. Sealed: only the types in
// this file implement it.
type Payload interface {
	payload()
	Kind() Kind
	// Subject is the GUID of the instance the event is about. Used for
	// partitioning, so all events for one instance stay in order.
	Subject() string
}

// NewEntity announces a newly created entity.
type NewEntity struct {
	Entity *instance.Entity `json:"entity"`
}

// UpdatedEntity carries the entity before and after a property update.
// Old is optional: some sources have no prior snapshot.
type UpdatedEntity struct {
	Old *instance.Entity `json:"old,omitempty"`
	New *instance.Entity `json:"new"`
}

// UndoneEntity carries the entity after its last update was reverted.
type UndoneEntity struct {
	Entity *instance.Entity `json:"entity"`
}

// ClassifiedEntity announces a classification added to an entity.
type ClassifiedEntity struct {
	Entity         *instance.Entity        `json:"entity"`
	Classification instance.Classification `json:"classification"`
}

// DeclassifiedEntity announces a classification removed from an entity.
type DeclassifiedEntity struct {
	Entity         *instance.Entity        `json:"entity"`
	Classification instance.Classification `json:"classification"`
}

// ReclassifiedEntity announces new properties for an existing classification.
type ReclassifiedEntity struct {
	Entity   *instance.Entity        `json:"entity"`
	Original instance.Classification `json:"original"`
	Updated  instance.Classification `json:"updated"`
}

// DeletedEntity announces a soft delete. The snapshot has deleted status.
type DeletedEntity struct {
	Entity *instance.Entity `json:"entity"`
}

// PurgedEntity announces irreversible removal. No snapshot exists after a
// purge, so only the type and GUID are carried.
type PurgedEntity struct {
	TypeGUID string `json:"type_guid"`
	TypeName string `json:"type_name"`
	GUID     string `json:"guid"`
}

// RestoredEntity announces an entity brought back from soft delete.
type RestoredEntity struct {
	Entity *instance.Entity `json:"entity"`
}

// RetypedEntity announces a type change. OriginalType is the type before.
type RetypedEntity struct {
	OriginalType instance.TypeRef `json:"original_type"`
	Entity       *instance.Entity `json:"entity"`
}

// RehomedEntity announces a change of home collection.
type RehomedEntity struct {
	OriginalHomeCollectionID string           `json:"original_home_collection_id"`
	Entity                   *instance.Entity `json:"entity"`
}

// ReidentifiedEntity announces a GUID change, the only sanctioned one.
type ReidentifiedEntity struct {
	OriginalGUID string           `json:"original_guid"`
	Entity       *instance.Entity `json:"entity"`
}

// RefreshEntityRequest asks the home collection to republish an entity.
type RefreshEntityRequest struct {
	TypeGUID         string `json:"type_guid"`
	TypeName         string `json:"type_name"`
	GUID             string `json:"guid"`
	HomeCollectionID string `json:"home_collection_id"`
}

// RefreshedEntity is the home collection's answer to a refresh request.
type RefreshedEntity struct {
	Entity *instance.Entity `json:"entity"`
}

// NewRelationship announces a newly created relationship.
type NewRelationship struct {
	Relationship *instance.Relationship `json:"relationship"`
}

// UpdatedRelationship carries the relationship before and after an update.
type UpdatedRelationship struct {
	Old *instance.Relationship `json:"old,omitempty"`
	New *instance.Relationship `json:"new"`
}

type UndoneRelationship struct {
	Relationship *instance.Relationship `json:"relationship"`
}

type DeletedRelationship struct {
	Relationship *instance.Relationship `json:"relationship"`
}

type PurgedRelationship struct {
	TypeGUID string `json:"type_guid"`
	TypeName string `json:"type_name"`
	GUID     string `json:"guid"`
}

type RestoredRelationship struct {
	Relationship *instance.Relationship `json:"relationship"`
}

type RetypedRelationship struct {
	OriginalType instance.TypeRef       `json:"original_type"`
	Relationship *instance.Relationship `json:"relationship"`
}

type RehomedRelationship struct {
	OriginalHomeCollectionID string                 `json:"original_home_collection_id"`
	Relationship             *instance.Relationship `json:"relationship"`
}

type ReidentifiedRelationship struct {
	OriginalGUID string                 `json:"original_guid"`
	Relationship *instance.Relationship `json:"relationship"`
}

type RefreshRelationshipRequest struct {
	TypeGUID         string `json:"type_guid"`
	TypeName         string `json:"type_name"`
	GUID             string `json:"guid"`
	HomeCollectionID string `json:"home_collection_id"`
}

type RefreshedRelationship struct {
	Relationship *instance.Relationship `json:"relationship"`
}

// ConflictingInstances reports two members holding different instances
// with the same GUID.
type ConflictingInstances struct {
	TargetCollectionID string           `json:"target_collection_id"`
	TargetType         instance.TypeRef `json:"target_type"`
	TargetGUID         string           `json:"target_guid"`
	OtherCollectionID  string           `json:"other_collection_id"`
	OtherType          instance.TypeRef `json:"other_type"`
	OtherGUID          string           `json:"other_guid"`
	Message            string           `json:"message"`
}

// ConflictingType reports an instance whose type definition differs between
// members.
type ConflictingType struct {
	TargetCollectionID string           `json:"target_collection_id"`
	TargetType         instance.TypeRef `json:"target_type"`
	TargetGUID         string           `json:"target_guid"`
	OtherType          instance.TypeRef `json:"other_type"`
	Message            string           `json:"message"`
}

func (NewEntity) payload()            {}
func (UpdatedEntity) payload()        {}
func (UndoneEntity) payload()         {}
func (ClassifiedEntity) payload()     {}
func (DeclassifiedEntity) payload()   {}
func (ReclassifiedEntity) payload()   {}
func (DeletedEntity) payload()        {}
func (PurgedEntity) payload()         {}
func (RestoredEntity) payload()       {}
func (RetypedEntity) payload()        {}
func (RehomedEntity) payload()        {}
func (ReidentifiedEntity) payload()   {}
func (RefreshEntityRequest) payload() {}
func (RefreshedEntity) payload()      {}

func (NewRelationship) payload()            {}
func (UpdatedRelationship) payload()        {}
func (UndoneRelationship) payload()         {}
func (DeletedRelationship) payload()        {}
func (PurgedRelationship) payload()         {}
func (RestoredRelationship) payload()       {}
func (RetypedRelationship) payload()        {}
func (RehomedRelationship) payload()        {}
func (ReidentifiedRelationship) payload()   {}
func (RefreshRelationshipRequest) payload() {}
func (RefreshedRelationship) payload()      {}

func (ConflictingInstances) payload() {}
func (ConflictingType) payload()      {}

func (NewEntity) Kind() Kind            { return KindNewEntity }
func (UpdatedEntity) Kind() Kind        { return KindUpdatedEntity }
func (UndoneEntity) Kind() Kind         { return KindUndoneEntity }
func (ClassifiedEntity) Kind() Kind     { return KindClassifiedEntity }
func (DeclassifiedEntity) Kind() Kind   { return KindDeclassifiedEntity }
func (ReclassifiedEntity) Kind() Kind   { return KindReclassifiedEntity }
func (DeletedEntity) Kind() Kind        { return KindDeletedEntity }
func (PurgedEntity) Kind() Kind         { return KindPurgedEntity }
func (RestoredEntity) Kind() Kind       { return KindRestoredEntity }
func (RetypedEntity) Kind() Kind        { return KindRetypedEntity }
func (RehomedEntity) Kind() Kind        { return KindRehomedEntity }
func (ReidentifiedEntity) Kind() Kind   { return KindReidentifiedEntity }
func (RefreshEntityRequest) Kind() Kind { return KindRefreshEntityRequest }
func (RefreshedEntity) Kind() Kind      { return KindRefreshedEntity }

func (NewRelationship) Kind() Kind            { return KindNewRelationship }
func (UpdatedRelationship) Kind() Kind        { return KindUpdatedRelationship }
func (UndoneRelationship) Kind() Kind         { return KindUndoneRelationship }
func (DeletedRelationship) Kind() Kind        { return KindDeletedRelationship }
func (PurgedRelationship) Kind() Kind         { return KindPurgedRelationship }
func (RestoredRelationship) Kind() Kind       { return KindRestoredRelationship }
func (RetypedRelationship) Kind() Kind        { return KindRetypedRelationship }
func (RehomedRelationship) Kind() Kind        { return KindRehomedRelationship }
func (ReidentifiedRelationship) Kind() Kind   { return KindReidentifiedRelationship }
func (RefreshRelationshipRequest) Kind() Kind { return KindRefreshRelationshipRequest }
func (RefreshedRelationship) Kind() Kind      { return KindRefreshedRelationship }

func (ConflictingInstances) Kind() Kind { return KindConflictingInstances }
func (ConflictingType) Kind() Kind      { return KindConflictingType }

func entityGUID(e *instance.Entity) string {
	if e == nil {
		return ""
	}
	return e.GUID
}

func relationshipGUID(r *instance.Relationship) string {
	if r == nil {
		return ""
	}
	return r.GUID
}

func (p NewEntity) Subject() string            { return entityGUID(p.Entity) }
func (p UpdatedEntity) Subject() string        { return entityGUID(p.New) }
func (p UndoneEntity) Subject() string         { return entityGUID(p.Entity) }
func (p ClassifiedEntity) Subject() string     { return entityGUID(p.Entity) }
func (p DeclassifiedEntity) Subject() string   { return entityGUID(p.Entity) }
func (p ReclassifiedEntity) Subject() string   { return entityGUID(p.Entity) }
func (p DeletedEntity) Subject() string        { return entityGUID(p.Entity) }
func (p PurgedEntity) Subject() string         { return p.GUID }
func (p RestoredEntity) Subject() string       { return entityGUID(p.Entity) }
func (p RetypedEntity) Subject() string        { return entityGUID(p.Entity) }
func (p RehomedEntity) Subject() string        { return entityGUID(p.Entity) }
func (p ReidentifiedEntity) Subject() string   { return p.OriginalGUID }
func (p RefreshEntityRequest) Subject() string { return p.GUID }
func (p RefreshedEntity) Subject() string      { return entityGUID(p.Entity) }

func (p NewRelationship) Subject() string            { return relationshipGUID(p.Relationship) }
func (p UpdatedRelationship) Subject() string        { return relationshipGUID(p.New) }
func (p UndoneRelationship) Subject() string         { return relationshipGUID(p.Relationship) }
func (p DeletedRelationship) Subject() string        { return relationshipGUID(p.Relationship) }
func (p PurgedRelationship) Subject() string         { return p.GUID }
func (p RestoredRelationship) Subject() string       { return relationshipGUID(p.Relationship) }
func (p RetypedRelationship) Subject() string        { return relationshipGUID(p.Relationship) }
func (p RehomedRelationship) Subject() string        { return relationshipGUID(p.Relationship) }
func (p ReidentifiedRelationship) Subject() string   { return p.OriginalGUID }
func (p RefreshRelationshipRequest) Subject() string { return p.GUID }
func (p RefreshedRelationship) Subject() string      { return relationshipGUID(p.Relationship) }

func (p ConflictingInstances) Subject() string { return p.TargetGUID }
func (p ConflictingType) Subject() string      { return p.TargetGUID }

package event

// Kind identifies a lifecycle transition for one instance kind.
type Kind string

const (
	KindNewEntity            Kind = "entity.new"
	KindUpdatedEntity        Kind = "entity.updated"
	KindUndoneEntity         Kind = "entity.undone"
	KindClassifiedEntity     Kind = "entity.classified"
	KindDeclassifiedEntity   Kind = "entity.declassified"
	KindReclassifiedEntity   Kind = "entity.reclassified"
	KindDeletedEntity        Kind = "entity.deleted"
	KindPurgedEntity         Kind = "entity.purged"
	KindRestoredEntity       Kind = "entity.restored"
	KindRetypedEntity        Kind = "entity.retyped"
	KindRehomedEntity        Kind = "entity.rehomed"
	KindReidentifiedEntity   Kind = "entity.reidentified"
	KindRefreshEntityRequest Kind = "entity.refresh-requested"
	KindRefreshedEntity      Kind = "entity.refreshed"

	KindNewRelationship            Kind = "relationship.new"
	KindUpdatedRelationship        Kind = "relationship.updated"
	KindUndoneRelationship         Kind = "relationship.undone"
	KindDeletedRelationship        Kind = "relationship.deleted"
	KindPurgedRelationship         Kind = "relationship.purged"
	KindRestoredRelationship       Kind = "relationship.restored"
	KindRetypedRelationship        Kind = "relationship.retyped"
	KindRehomedRelationship        Kind = "relationship.rehomed"
	KindReidentifiedRelationship   Kind = "relationship.reidentified"
	KindRefreshRelationshipRequest Kind = "relationship.refresh-requested"
	KindRefreshedRelationship      Kind = "relationship.refreshed"

	KindConflictingInstances Kind = "conflicting-instances"
	KindConflictingType      Kind = "conflicting-type"
)

// decoders maps each kind to the decoder for its payload type.
var decoders = map[Kind]func([]byte) (Payload, error){
	KindNewEntity:            decodeAs[NewEntity],
	KindUpdatedEntity:        decodeAs[UpdatedEntity],
	KindUndoneEntity:         decodeAs[UndoneEntity],
	KindClassifiedEntity:     decodeAs[ClassifiedEntity],
	KindDeclassifiedEntity:   decodeAs[DeclassifiedEntity],
	KindReclassifiedEntity:   decodeAs[ReclassifiedEntity],
	KindDeletedEntity:        decodeAs[DeletedEntity],
	KindPurgedEntity:         decodeAs[PurgedEntity],
	KindRestoredEntity:       decodeAs[RestoredEntity],
	KindRetypedEntity:        decodeAs[RetypedEntity],
	KindRehomedEntity:        decodeAs[RehomedEntity],
	KindReidentifiedEntity:   decodeAs[ReidentifiedEntity],
	KindRefreshEntityRequest: decodeAs[RefreshEntityRequest],
	KindRefreshedEntity:      decodeAs[RefreshedEntity],

	KindNewRelationship:            decodeAs[NewRelationship],
	KindUpdatedRelationship:        decodeAs[UpdatedRelationship],
	KindUndoneRelationship:         decodeAs[UndoneRelationship],
	KindDeletedRelationship:        decodeAs[DeletedRelationship],
	KindPurgedRelationship:         decodeAs[PurgedRelationship],
	KindRestoredRelationship:       decodeAs[RestoredRelationship],
	KindRetypedRelationship:        decodeAs[RetypedRelationship],
	KindRehomedRelationship:        decodeAs[RehomedRelationship],
	KindReidentifiedRelationship:   decodeAs[ReidentifiedRelationship],
	KindRefreshRelationshipRequest: decodeAs[RefreshRelationshipRequest],
	KindRefreshedRelationship:      decodeAs[RefreshedRelationship],

	KindConflictingInstances: decodeAs[ConflictingInstances],
	KindConflictingType:      decodeAs[ConflictingType],
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindNewEntity, KindUpdatedEntity, KindUndoneEntity, KindClassifiedEntity,
		KindDeclassifiedEntity, KindReclassifiedEntity, KindDeletedEntity, KindPurgedEntity,
		KindRestoredEntity, KindRetypedEntity, KindRehomedEntity, KindReidentifiedEntity,
		KindRefreshEntityRequest, KindRefreshedEntity,
		KindNewRelationship, KindUpdatedRelationship, KindUndoneRelationship,
		KindDeletedRelationship, KindPurgedRelationship, KindRestoredRelationship,
		KindRetypedRelationship, KindRehomedRelationship, KindReidentifiedRelationship,
		KindRefreshRelationshipRequest, KindRefreshedRelationship,
		KindConflictingInstances, KindConflictingType,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := decoders[k]
	return ok
}

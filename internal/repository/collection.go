package repository

import (
	"context"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/search"
)

// FindRequest narrows a search.
type FindRequest struct {
	// TypeName limits results to the type and its subtypes. Empty means any.
	TypeName string

	// Predicate filters instance properties, or classification properties
	// for find-by-classification. Nil matches everything.
	Predicate search.Predicate

	// Statuses limits results by status. Empty means active only.
	Statuses []instance.Status

	// Offset skips that many results; Limit caps the page (0 = no cap).
	// Results are ordered by GUID.
	Offset int
	Limit  int
}

// EntityStore is the entity half of the repository boundary.
type EntityStore interface {
	FindEntities(ctx context.Context, req FindRequest) ([]*instance.Entity, error)
	FindEntitiesByClassification(ctx context.Context, classification string, req FindRequest) ([]*instance.Entity, error)
	GetEntity(ctx context.Context, guid string) (*instance.Entity, error)

	AddEntity(ctx context.Context, typeName string, props instance.Properties, classifications []instance.Classification) (*instance.Entity, error)
	// UpdateEntityProperties replaces the property bag. A nil bag is rejected;
	// pass an empty bag to clear.
	UpdateEntityProperties(ctx context.Context, guid string, props instance.Properties) (*instance.Entity, error)
	UndoEntityUpdate(ctx context.Context, guid string) (*instance.Entity, error)

	ClassifyEntity(ctx context.Context, guid, classification string, props instance.Properties) (*instance.Entity, error)
	UpdateEntityClassification(ctx context.Context, guid, classification string, props instance.Properties) (*instance.Entity, error)
	DeclassifyEntity(ctx context.Context, guid, classification string) (*instance.Entity, error)

	DeleteEntity(ctx context.Context, guid string) (*instance.Entity, error)
	PurgeEntity(ctx context.Context, guid string) error
	RestoreEntity(ctx context.Context, guid string) (*instance.Entity, error)

	RetypeEntity(ctx context.Context, guid, newType string) (*instance.Entity, error)
	RehomeEntity(ctx context.Context, guid, newHomeCollectionID, newHomeCollectionName string) (*instance.Entity, error)
	ReidentifyEntity(ctx context.Context, guid, newGUID string) (*instance.Entity, error)
}

// RelationshipStore is the relationship half of the repository boundary.
// Relationships carry no classifications.
type RelationshipStore interface {
	FindRelationships(ctx context.Context, req FindRequest) ([]*instance.Relationship, error)
	GetRelationship(ctx context.Context, guid string) (*instance.Relationship, error)

	AddRelationship(ctx context.Context, typeName string, props instance.Properties, end1GUID, end2GUID string) (*instance.Relationship, error)
	UpdateRelationshipProperties(ctx context.Context, guid string, props instance.Properties) (*instance.Relationship, error)
	UndoRelationshipUpdate(ctx context.Context, guid string) (*instance.Relationship, error)

	DeleteRelationship(ctx context.Context, guid string) (*instance.Relationship, error)
	PurgeRelationship(ctx context.Context, guid string) error
	RestoreRelationship(ctx context.Context, guid string) (*instance.Relationship, error)

	RetypeRelationship(ctx context.Context, guid, newType string) (*instance.Relationship, error)
	RehomeRelationship(ctx context.Context, guid, newHomeCollectionID, newHomeCollectionName string) (*instance.Relationship, error)
	ReidentifyRelationship(ctx context.Context, guid, newGUID string) (*instance.Relationship, error)
}

// TypeGallery advertises the types a repository supports.
type TypeGallery interface {
	// SupportedTypes returns the names of every supported type, sorted.
	SupportedTypes(ctx context.Context) ([]string, error)
	TypeDefByName(ctx context.Context, name string) (lattice.TypeDef, error)
}

// MetadataCollection is a cohort member's metadata repository.
type MetadataCollection interface {
	// CollectionID is the home-collection identifier of instances created here.
	CollectionID() string
	EntityStore
	RelationshipStore
	TypeGallery
}

package instance

import (
	"slices"
	"time"
)

// Status is the lifecycle status of an instance.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Provenance records whether an instance copy originated in the holding
// repository or was replicated from its home collection.
type Provenance string

const (
	ProvenanceLocal      Provenance = "local"
	ProvenanceReplicated Provenance = "replicated"
)

// TypeRef summarizes the type of an instance. Supertypes is root-first.
type TypeRef struct {
	GUID       string       `json:"guid"`
	Name       string       `json:"name"`
	Category   TypeCategory `json:"category"`
	Supertypes []string     `json:"supertypes,omitempty"`
}

// IsA reports whether the type is name or has name as an ancestor.
func (t TypeRef) IsA(name string) bool {
	return t.Name == name || slices.Contains(t.Supertypes, name)
}

func (t TypeRef) clone() TypeRef {
	t.Supertypes = slices.Clone(t.Supertypes)
	return t
}

// Header carries identity, type, status, version and ownership. Shared by
// entities and relationships.
type Header struct {
	GUID               string     `json:"guid"`
	Type               TypeRef    `json:"type"`
	Status             Status     `json:"status"`
	StatusOnDelete     Status     `json:"status_on_delete,omitempty"` // status restored by Restore
	Version            int64      `json:"version"`
	HomeCollectionID   string     `json:"home_collection_id"`
	HomeCollectionName string     `json:"home_collection_name,omitempty"`
	Provenance         Provenance `json:"provenance"`
	CreatedBy          string     `json:"created_by,omitempty"`
	UpdatedBy          string     `json:"updated_by,omitempty"`
	CreateTime         time.Time  `json:"create_time"`
	UpdateTime         time.Time  `json:"update_time"`
}

// IsDeleted reports whether the instance is soft-deleted.
func (h Header) IsDeleted() bool {
	return h.Status == StatusDeleted
}

func (h Header) clone() Header {
	h.Type = h.Type.clone()
	return h
}

// Classification is a named set of properties attached to an entity.
type Classification struct {
	Name       string     `json:"name"`
	Properties Properties `json:"properties,omitempty"`
	Version    int64      `json:"version"`
	CreateTime time.Time  `json:"create_time"`
	UpdateTime time.Time  `json:"update_time"`
}

// Clone returns a deep copy.
func (c Classification) Clone() Classification {
	c.Properties = c.Properties.Clone()
	return c
}

// Entity is a typed entity instance.
type Entity struct {
	Header
	Properties      Properties       `json:"properties,omitempty"`
	Classifications []Classification `json:"classifications,omitempty"`
}

// Clone returns a deep copy. A nil entity clones to nil.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{
		Header:     e.Header.clone(),
		Properties: e.Properties.Clone(),
	}
	if e.Classifications != nil {
		out.Classifications = make([]Classification, len(e.Classifications))
		for i, c := range e.Classifications {
			out.Classifications[i] = c.Clone()
		}
	}
	return out
}

// Classification returns the named classification, if attached.
func (e *Entity) Classification(name string) (Classification, bool) {
	for _, c := range e.Classifications {
		if c.Name == name {
			return c, true
		}
	}
	return Classification{}, false
}

// SetClassification attaches c, replacing any classification with the same
// name. Classifications are kept sorted by name.
func (e *Entity) SetClassification(c Classification) {
	e.RemoveClassification(c.Name)
	e.Classifications = append(e.Classifications, c)
	slices.SortFunc(e.Classifications, func(a, b Classification) int {
		return compareKeysRFC8785(a.Name, b.Name)
	})
}

// RemoveClassification detaches the named classification and reports
// whether it was present.
func (e *Entity) RemoveClassification(name string) bool {
	n := len(e.Classifications)
	e.Classifications = slices.DeleteFunc(e.Classifications, func(c Classification) bool {
		return c.Name == name
	})
	return len(e.Classifications) != n
}

// Proxy returns the reference form of the entity used in relationship ends.
func (e *Entity) Proxy() EntityProxy {
	return EntityProxy{
		GUID:             e.GUID,
		Type:             e.Type.clone(),
		HomeCollectionID: e.HomeCollectionID,
	}
}

// EntityProxy references an entity from a relationship end.
type EntityProxy struct {
	GUID             string     `json:"guid"`
	Type             TypeRef    `json:"type"`
	HomeCollectionID string     `json:"home_collection_id,omitempty"`
	UniqueProperties Properties `json:"unique_properties,omitempty"`
}

func (p EntityProxy) clone() EntityProxy {
	p.Type = p.Type.clone()
	p.UniqueProperties = p.UniqueProperties.Clone()
	return p
}

// RelationshipEnd is one end of a relationship: the role name the entity
// plays and a proxy for it.
type RelationshipEnd struct {
	Role   string      `json:"role"`
	Entity EntityProxy `json:"entity"`
}

// Relationship is a typed link between two entities.
type Relationship struct {
	Header
	Properties Properties      `json:"properties,omitempty"`
	End1       RelationshipEnd `json:"end1"`
	End2       RelationshipEnd `json:"end2"`
}

// Clone returns a deep copy. A nil relationship clones to nil.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	return &Relationship{
		Header:     r.Header.clone(),
		Properties: r.Properties.Clone(),
		End1:       RelationshipEnd{Role: r.End1.Role, Entity: r.End1.Entity.clone()},
		End2:       RelationshipEnd{Role: r.End2.Role, Entity: r.End2.Entity.clone()},
	}
}

// Touches reports whether either end references guid.
func (r *Relationship) Touches(guid string) bool {
	return r.End1.Entity.GUID == guid || r.End2.Entity.GUID == guid
}

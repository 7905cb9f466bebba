package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntity() *Entity {
	return &Entity{
		Header: Header{
			GUID:             "e-1",
			Type:             TypeRef{GUID: "t-asset", Name: "Asset", Category: CategoryEntity, Supertypes: []string{"Referenceable"}},
			Status:           StatusActive,
			Version:          1,
			HomeCollectionID: "home-1",
			Provenance:       ProvenanceLocal,
		},
		Properties: Properties{"qualifiedName": StringValue("a")},
	}
}

func TestTypeRefIsA(t *testing.T) {
	ref := TypeRef{Name: "Asset", Supertypes: []string{"Referenceable"}}

	assert.True(t, ref.IsA("Asset"))
	assert.True(t, ref.IsA("Referenceable"))
	assert.False(t, ref.IsA("Process"))
}

func TestEntityCloneIsDeep(t *testing.T) {
	e := sampleEntity()
	e.SetClassification(Classification{Name: "Confidential", Properties: Properties{"level": IntValue(3)}})

	cp := e.Clone()
	cp.Properties["qualifiedName"] = StringValue("changed")
	cp.Type.Supertypes[0] = "changed"
	cp.Classifications[0].Properties["level"] = IntValue(9)

	assert.Equal(t, StringValue("a"), e.Properties["qualifiedName"])
	assert.Equal(t, "Referenceable", e.Type.Supertypes[0])
	assert.Equal(t, IntValue(3), e.Classifications[0].Properties["level"])

	var nilEntity *Entity
	assert.Nil(t, nilEntity.Clone())
}

func TestEntityClassifications(t *testing.T) {
	e := sampleEntity()
	e.SetClassification(Classification{Name: "Zone"})
	e.SetClassification(Classification{Name: "Confidential", Version: 1})
	e.SetClassification(Classification{Name: "Confidential", Version: 2})

	require.Len(t, e.Classifications, 2)
	assert.Equal(t, "Confidential", e.Classifications[0].Name, "kept sorted by name")

	c, ok := e.Classification("Confidential")
	require.True(t, ok)
	assert.Equal(t, int64(2), c.Version)

	assert.True(t, e.RemoveClassification("Zone"))
	assert.False(t, e.RemoveClassification("Zone"))
	_, ok = e.Classification("Zone")
	assert.False(t, ok)
}

func TestRelationshipCloneAndTouches(t *testing.T) {
	a := sampleEntity()
	b := sampleEntity()
	b.GUID = "e-2"

	r := &Relationship{
		Header: Header{GUID: "r-1", Type: TypeRef{Name: "AssetLink", Category: CategoryRelationship}},
		End1:   RelationshipEnd{Role: "from", Entity: a.Proxy()},
		End2:   RelationshipEnd{Role: "to", Entity: b.Proxy()},
	}

	assert.True(t, r.Touches("e-1"))
	assert.True(t, r.Touches("e-2"))
	assert.False(t, r.Touches("e-3"))

	cp := r.Clone()
	cp.End1.Entity.Type.Supertypes[0] = "changed"
	assert.Equal(t, "Referenceable", r.End1.Entity.Type.Supertypes[0])
}

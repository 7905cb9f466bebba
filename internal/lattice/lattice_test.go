package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
)

func str(name string, card Cardinality) AttributeDef {
	return AttributeDef{Name: name, Category: AttributePrimitive, Primitive: instance.PrimitiveString, Cardinality: card}
}

func fixtureDefs() []TypeDef {
	return []TypeDef{
		{Name: "Referenceable", GUID: "g-ref", Category: instance.CategoryEntity,
			Attributes: []AttributeDef{str("qualifiedName", AtLeastOneUnordered)}},
		{Name: "Asset", GUID: "g-asset", Category: instance.CategoryEntity, Supertype: "Referenceable",
			Attributes: []AttributeDef{str("displayName", Optional)}},
		{Name: "DataSet", Category: instance.CategoryEntity, Supertype: "Asset"},
		{Name: "Process", Category: instance.CategoryEntity, Supertype: "Asset",
			Attributes: []AttributeDef{str("formula", Optional)}},
		{Name: "Table", Category: instance.CategoryEntity, Supertype: "DataSet",
			Attributes: []AttributeDef{str("schema", Optional)}},
		{Name: "File", Category: instance.CategoryEntity, Supertype: "DataSet"},
		{Name: "AssetLink", Category: instance.CategoryRelationship,
			End1: EndDef{EntityType: "Asset", Role: "from"}, End2: EndDef{EntityType: "Asset", Role: "to"}},
		{Name: "Confidentiality", Category: instance.CategoryClassification,
			ValidEntityTypes: []string{"Referenceable"},
			Attributes:       []AttributeDef{{Name: "level", Category: AttributePrimitive, Primitive: instance.PrimitiveInt, Cardinality: Optional}}},
	}
}

func fixture(t *testing.T) *Lattice {
	t.Helper()
	l, err := New(fixtureDefs())
	require.NoError(t, err)
	return l
}

func attrNames(attrs []AttributeDef) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.Name
	}
	return out
}

func TestResolveAttributesRootFirst(t *testing.T) {
	l := fixture(t)

	attrs, err := l.ResolveAttributes("Table")
	require.NoError(t, err)
	assert.Equal(t, []string{"qualifiedName", "displayName", "schema"}, attrNames(attrs))

	attrs, err = l.ResolveAttributes("Referenceable")
	require.NoError(t, err)
	assert.Equal(t, []string{"qualifiedName"}, attrNames(attrs))
}

func TestResolveAttributesEveryAncestorOnce(t *testing.T) {
	l := fixture(t)

	for _, name := range l.Names(instance.CategoryEntity) {
		attrs, err := l.ResolveAttributes(name)
		require.NoError(t, err)

		ancestors, err := l.Ancestors(name)
		require.NoError(t, err)

		var want []string
		for _, a := range append(ancestors, name) {
			d, _ := l.Lookup(a)
			want = append(want, attrNames(d.Attributes)...)
		}
		assert.Equal(t, want, attrNames(attrs), name)
	}
}

func TestResolveAttributesNotFound(t *testing.T) {
	l := fixture(t)

	_, err := l.ResolveAttributes("Missing")
	require.Error(t, err)
	assert.True(t, IsTypeNotFound(err))
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestAncestorsAndSubtypes(t *testing.T) {
	l := fixture(t)

	ancestors, err := l.Ancestors("Table")
	require.NoError(t, err)
	assert.Equal(t, []string{"Referenceable", "Asset", "DataSet"}, ancestors)

	subs, err := l.Subtypes("DataSet")
	require.NoError(t, err)
	assert.Equal(t, []string{"File", "Table"}, subs)

	assert.True(t, l.IsSubtypeOf("Table", "Asset"))
	assert.True(t, l.IsSubtypeOf("Table", "Table"))
	assert.False(t, l.IsSubtypeOf("Asset", "Table"))
	assert.False(t, l.IsSubtypeOf("Missing", "Asset"))
}

func TestTypeRef(t *testing.T) {
	l := fixture(t)

	ref, err := l.TypeRef("Asset")
	require.NoError(t, err)
	assert.Equal(t, instance.TypeRef{
		GUID:       "g-asset",
		Name:       "Asset",
		Category:   instance.CategoryEntity,
		Supertypes: []string{"Referenceable"},
	}, ref)

	d, ok := l.LookupGUID("g-asset")
	require.True(t, ok)
	assert.Equal(t, "Asset", d.Name)
}

func TestNames(t *testing.T) {
	l := fixture(t)

	assert.Equal(t, []string{"AssetLink"}, l.Names(instance.CategoryRelationship))
	assert.Len(t, l.Names(instance.CategoryUnknown), l.Len())
}

func TestMostSpecificKnownSubtype(t *testing.T) {
	l := fixture(t)

	tests := []struct {
		name      string
		candidate string
		known     NameSet
		want      string
		found     bool
	}{
		{"candidate known at depth 0", "Asset", NewNameSet("Asset", "Table"), "Asset", true},
		{"direct subtype", "Asset", NewNameSet("Process"), "Process", true},
		{"shallower layer wins", "Asset", NewNameSet("Table", "Process"), "Process", true},
		{"name order within a layer", "DataSet", NewNameSet("Table", "File"), "File", true},
		{"deep match", "Referenceable", NewNameSet("Table"), "Table", true},
		{"no match", "DataSet", NewNameSet("Process"), "", false},
		{"supertypes are not searched", "Table", NewNameSet("Asset"), "", false},
		{"unknown candidate", "Missing", NewNameSet("Missing"), "", false},
		{"empty known", "Asset", NewNameSet(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.MostSpecificKnownSubtype(tt.candidate, tt.known)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)

			again, okAgain := l.MostSpecificKnownSubtype(tt.candidate, tt.known)
			assert.Equal(t, got, again, "idempotent")
			assert.Equal(t, ok, okAgain)
		})
	}
}

func TestNewRejectsCycles(t *testing.T) {
	defs := []TypeDef{
		{Name: "A", Category: instance.CategoryEntity, Supertype: "C"},
		{Name: "B", Category: instance.CategoryEntity, Supertype: "A"},
		{Name: "C", Category: instance.CategoryEntity, Supertype: "B"},
		{Name: "D", Category: instance.CategoryEntity},
	}

	_, err := New(defs)
	require.Error(t, err)
	assert.True(t, IsCycle(err))
	assert.True(t, IsDefinitionError(err))

	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ce.Path[0], ce.Path[len(ce.Path)-1])
	assert.Len(t, ce.Path, 4)
}

func TestNewRejectsSelfSupertype(t *testing.T) {
	_, err := New([]TypeDef{{Name: "A", Category: instance.CategoryEntity, Supertype: "A"}})
	require.Error(t, err)
	assert.True(t, IsCycle(err))
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []TypeDef
		msg  string
	}{
		{"duplicate name", []TypeDef{
			{Name: "A", Category: instance.CategoryEntity},
			{Name: "A", Category: instance.CategoryEntity},
		}, "duplicate type name"},
		{"duplicate guid", []TypeDef{
			{Name: "A", GUID: "g", Category: instance.CategoryEntity},
			{Name: "B", GUID: "g", Category: instance.CategoryEntity},
		}, "guid already used"},
		{"unknown supertype", []TypeDef{
			{Name: "A", Category: instance.CategoryEntity, Supertype: "Missing"},
		}, "unknown supertype"},
		{"cross-category supertype", []TypeDef{
			{Name: "A", Category: instance.CategoryEntity},
			{Name: "R", Category: instance.CategoryRelationship, Supertype: "A"},
		}, "is a entity type"},
		{"missing category", []TypeDef{{Name: "A"}}, "category is required"},
		{"missing name", []TypeDef{{Category: instance.CategoryEntity}}, "name is required"},
		{"duplicate attribute", []TypeDef{
			{Name: "A", Category: instance.CategoryEntity, Attributes: []AttributeDef{str("x", Optional), str("x", Optional)}},
		}, "duplicate attribute"},
		{"primitive without category", []TypeDef{
			{Name: "A", Category: instance.CategoryEntity, Attributes: []AttributeDef{{Name: "x", Category: AttributePrimitive, Cardinality: Optional}}},
		}, "no primitive category"},
		{"relationship end not an entity", []TypeDef{
			{Name: "C", Category: instance.CategoryClassification},
			{Name: "R", Category: instance.CategoryRelationship, End1: EndDef{EntityType: "C"}},
		}, "not an entity type"},
		{"classification target unknown", []TypeDef{
			{Name: "C", Category: instance.CategoryClassification, ValidEntityTypes: []string{"Missing"}},
		}, "unknown entity type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs)
			require.Error(t, err)
			assert.True(t, IsDefinitionError(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	defs := fixtureDefs()
	l, err := New(defs)
	require.NoError(t, err)

	defs[1].Attributes[0].Name = "mutated"
	d, _ := l.Lookup("Asset")
	assert.Equal(t, "displayName", d.Attributes[0].Name)
}

func TestCardinality(t *testing.T) {
	assert.True(t, AtLeastOneOrdered.Mandatory())
	assert.True(t, AtLeastOneUnordered.Mandatory())
	assert.False(t, ExactlyOne.Mandatory())
	assert.False(t, Optional.Mandatory())
	assert.False(t, AnyUnordered.Mandatory())

	c, err := ParseCardinality("at-least-one")
	require.NoError(t, err)
	assert.Equal(t, AtLeastOneUnordered, c)

	c, err = ParseCardinality(ExactlyOne.String())
	require.NoError(t, err)
	assert.Equal(t, ExactlyOne, c)

	_, err = ParseCardinality("many")
	assert.Error(t, err)
}

func TestParseAttributeCategory(t *testing.T) {
	c, err := ParseAttributeCategory("enum")
	require.NoError(t, err)
	assert.Equal(t, AttributeEnum, c)

	_, err = ParseAttributeCategory("unknown")
	assert.Error(t, err)
}

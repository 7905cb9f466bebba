package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

func TestCompileTypeDefBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		typedef: Asset: {
			guid:      "896d14c2-7522-4f6c-8519-757711943fe6"
			category:  "entity"
			supertype: "Referenceable"
			attributes: [
				{name: "displayName", type: "string"},
				{name: "tags", type: "array", cardinality: "any-unordered"},
				{name: "code", type: "int", cardinality: "at-least-one", unique: false},
			]
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileTypeDef(v.LookupPath(cue.ParsePath("typedef.Asset")))
	require.NoError(t, err)

	assert.Equal(t, "Asset", def.Name)
	assert.Equal(t, "896d14c2-7522-4f6c-8519-757711943fe6", def.GUID)
	assert.Equal(t, instance.CategoryEntity, def.Category)
	assert.Equal(t, "Referenceable", def.Supertype)
	require.Len(t, def.Attributes, 3)

	assert.Equal(t, lattice.AttributeDef{
		Name:        "displayName",
		Category:    lattice.AttributePrimitive,
		Primitive:   instance.PrimitiveString,
		Cardinality: lattice.Optional,
	}, def.Attributes[0])
	assert.Equal(t, lattice.AttributeArray, def.Attributes[1].Category)
	assert.Equal(t, lattice.AnyUnordered, def.Attributes[1].Cardinality)
	assert.Equal(t, instance.PrimitiveInt, def.Attributes[2].Primitive)
	assert.True(t, def.Attributes[2].Cardinality.Mandatory())
}

func TestCompileTypeDefRelationship(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		typedef: Link: {
			category: "relationship"
			end1: {type: "Asset", role: "from"}
			end2: {type: "Asset", role: "to"}
		}
	`)

	def, err := CompileTypeDef(v.LookupPath(cue.ParsePath("typedef.Link")))
	require.NoError(t, err)
	assert.Equal(t, lattice.EndDef{EntityType: "Asset", Role: "from"}, def.End1)
	assert.Equal(t, lattice.EndDef{EntityType: "Asset", Role: "to"}, def.End2)
}

func TestCompileTypeDefErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing category", `typedef: X: { guid: "g" }`, "category"},
		{"bad category", `typedef: X: { category: "widget" }`, "category"},
		{"attribute without name", `typedef: X: { category: "entity", attributes: [{type: "string"}] }`, "attributes.name"},
		{"attribute without type", `typedef: X: { category: "entity", attributes: [{name: "a"}] }`, "attributes.a.type"},
		{"unsupported attribute type", `typedef: X: { category: "entity", attributes: [{name: "a", type: "blob"}] }`, "attributes.a.type"},
		{"bad cardinality", `typedef: X: { category: "entity", attributes: [{name: "a", type: "string", cardinality: "lots"}] }`, "attributes.a.cardinality"},
		{"relationship without ends", `typedef: X: { category: "relationship" }`, "end1"},
		{"end without type", `typedef: X: { category: "relationship", end1: {role: "r"}, end2: {type: "A"} }`, "end1.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileTypeDef(v.LookupPath(cue.ParsePath("typedef.X")))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileErrorHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`typedef: X: {
	category: "entity"
	attributes: [{name: "a", type: "blob"}]
}`, cue.Filename("types.cue"))
	require.NoError(t, v.Err())

	_, err := CompileTypeDef(v.LookupPath(cue.ParsePath("typedef.X")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "types.cue:3:")
}

func TestCompileAllCollects(t *testing.T) {
	v := cuecontext.New().CompileString(`
		typedef: A: { category: "entity" }
		typedef: B: { }
		typedef: C: { category: "nope" }
		typedef: D: { category: "entity", supertype: "A" }
	`)
	require.NoError(t, v.Err())

	defs, errs := CompileAll(v, CollectAll)
	assert.Len(t, defs, 2)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "typedef.B")
	assert.Contains(t, errs[1].Error(), "typedef.C")

	defs, errs = CompileAll(v, FailFast)
	assert.Len(t, defs, 1)
	assert.Len(t, errs, 1)
}

func TestCompileAllNoTypedefs(t *testing.T) {
	v := cuecontext.New().CompileString(`other: 1`)
	_, errs := CompileAll(v, CollectAll)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no type definitions")
}

func TestCompileStringBuildsLattice(t *testing.T) {
	l, err := CompileString(`
		typedef: Referenceable: {
			category: "entity"
			attributes: [{name: "qualifiedName", type: "string", cardinality: "at-least-one"}]
		}
		typedef: Asset: {
			category: "entity"
			supertype: "Referenceable"
			attributes: [{name: "displayName", type: "string"}]
		}
	`)
	require.NoError(t, err)

	attrs, err := l.ResolveAttributes("Asset")
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "qualifiedName", attrs[0].Name)
	assert.Equal(t, "displayName", attrs[1].Name)
}

func TestCompileStringRejectsCycle(t *testing.T) {
	_, err := CompileString(`
		typedef: A: { category: "entity", supertype: "B" }
		typedef: B: { category: "entity", supertype: "A" }
	`)
	require.Error(t, err)
	assert.True(t, lattice.IsCycle(err))
}

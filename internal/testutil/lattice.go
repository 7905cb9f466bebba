package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// Fixture type names.
const (
	TypeReferenceable   = "Referenceable"
	TypeAsset           = "Asset"
	TypeDataSet         = "DataSet"
	TypeDatabase        = "Database"
	TypeDataFile        = "DataFile"
	TypeProcess         = "Process"
	TypeDataContent     = "DataContentForDataSet"
	TypeConfidentiality = "Confidentiality"
)

func attr(name string, prim instance.PrimitiveCategory, card lattice.Cardinality) lattice.AttributeDef {
	return lattice.AttributeDef{Name: name, Category: lattice.AttributePrimitive, Primitive: prim, Cardinality: card}
}

// FixtureTypeDefs returns a small entity hierarchy:
//
//	Referenceable (qualifiedName: mandatory, unique; additionalProperties: map)
//	└── Asset (displayName, description)
//	    ├── DataSet
//	    │   ├── DataFile (fileType, sizeBytes, compressed)
//	    │   └── Database (createTime, tableCount)
//	    └── Process (formula)
//
// plus the DataContentForDataSet relationship (Asset ↔ DataSet) and the
// Confidentiality classification.
func FixtureTypeDefs() []lattice.TypeDef {
	qualifiedName := attr("qualifiedName", instance.PrimitiveString, lattice.AtLeastOneUnordered)
	qualifiedName.Unique = true

	return []lattice.TypeDef{
		{GUID: "a32316b8-dc8c-48c5-b12b-71c1b2a080bf", Name: TypeReferenceable, Category: instance.CategoryEntity,
			Attributes: []lattice.AttributeDef{
				qualifiedName,
				{Name: "additionalProperties", Category: lattice.AttributeMap, Cardinality: lattice.Optional},
			}},
		{GUID: "896d14c2-7522-4f6c-8519-757711943fe6", Name: TypeAsset, Category: instance.CategoryEntity, Supertype: TypeReferenceable,
			Attributes: []lattice.AttributeDef{
				attr("displayName", instance.PrimitiveString, lattice.Optional),
				attr("description", instance.PrimitiveString, lattice.Optional),
			}},
		{GUID: "1449911c-4f44-4c22-abc0-7540154feefb", Name: TypeDataSet, Category: instance.CategoryEntity, Supertype: TypeAsset},
		{GUID: "10752b4a-4b5d-4519-9eae-fdd6d162122f", Name: TypeDataFile, Category: instance.CategoryEntity, Supertype: TypeDataSet,
			Attributes: []lattice.AttributeDef{
				attr("fileType", instance.PrimitiveString, lattice.Optional),
				attr("sizeBytes", instance.PrimitiveLong, lattice.Optional),
				attr("compressed", instance.PrimitiveBoolean, lattice.Optional),
			}},
		{GUID: "0921c83f-b2db-4086-a52c-0d10e52ca078", Name: TypeDatabase, Category: instance.CategoryEntity, Supertype: TypeDataSet,
			Attributes: []lattice.AttributeDef{
				attr("createTime", instance.PrimitiveDate, lattice.Optional),
				attr("tableCount", instance.PrimitiveInt, lattice.Optional),
			}},
		{GUID: "d8f33bd7-afa9-4a11-a8c7-07dcec83c050", Name: TypeProcess, Category: instance.CategoryEntity, Supertype: TypeAsset,
			Attributes: []lattice.AttributeDef{
				attr("formula", instance.PrimitiveString, lattice.Optional),
			}},
		{GUID: "b827683c-2924-4df3-a92d-7be1888e23c0", Name: TypeDataContent, Category: instance.CategoryRelationship,
			End1:       lattice.EndDef{EntityType: TypeAsset, Role: "dataContent"},
			End2:       lattice.EndDef{EntityType: TypeDataSet, Role: "supportedDataSets"},
			Attributes: []lattice.AttributeDef{attr("description", instance.PrimitiveString, lattice.Optional)}},
		{GUID: "742ddb7d-9a4a-4eb5-8ac2-1d69953bd2b6", Name: TypeConfidentiality, Category: instance.CategoryClassification,
			ValidEntityTypes: []string{TypeReferenceable},
			Attributes: []lattice.AttributeDef{
				attr("level", instance.PrimitiveInt, lattice.Optional),
				attr("steward", instance.PrimitiveString, lattice.Optional),
			}},
	}
}

// FixtureLattice builds the fixture hierarchy, failing the test on error.
func FixtureLattice(t testing.TB) *lattice.Lattice {
	t.Helper()
	l, err := lattice.New(FixtureTypeDefs())
	require.NoError(t, err)
	return l
}

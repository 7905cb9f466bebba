package synth

import (
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/testutil"
)

func newSynth(t *testing.T, opts ...Option) *Synthesizer {
	t.Helper()
	opts = append([]Option{WithClock(testutil.FixedClock(testutil.Epoch))}, opts...)
	return New(testutil.FixtureLattice(t), opts...)
}

func TestAllPropertiesIncludesInherited(t *testing.T) {
	s := newSynth(t)

	props, err := s.AllProperties(testutil.TypeAsset)
	require.NoError(t, err)

	assert.Equal(t, instance.Properties{
		"qualifiedName": instance.StringValue("TestqualifiedNameValue"),
		"displayName":   instance.StringValue("TestdisplayNameValue"),
		"description":   instance.StringValue("TestdescriptionValue"),
	}, props)
}

func TestMandatoryPropertiesAsset(t *testing.T) {
	s := newSynth(t)

	all, err := s.AllProperties(testutil.TypeAsset)
	require.NoError(t, err)
	mandatory, err := s.MandatoryProperties(testutil.TypeAsset)
	require.NoError(t, err)

	assert.Equal(t, []string{"qualifiedName"}, slices.Sorted(maps.Keys(mandatory)))
	assert.Contains(t, all, "displayName")
	assert.NotContains(t, mandatory, "displayName")
	assert.Less(t, len(mandatory), len(all), "mandatory keys are a strict subset")
	for k := range mandatory {
		assert.Contains(t, all, k)
	}
}

func TestMandatoryPropertiesNeverNil(t *testing.T) {
	l, err := lattice.New([]lattice.TypeDef{
		{Name: "Bare", Category: instance.CategoryEntity},
		{Name: "Optional", Category: instance.CategoryEntity, Attributes: []lattice.AttributeDef{
			{Name: "x", Category: lattice.AttributePrimitive, Primitive: instance.PrimitiveInt, Cardinality: lattice.Optional},
		}},
	})
	require.NoError(t, err)
	s := New(l)

	for _, name := range []string{"Bare", "Optional"} {
		props, err := s.MandatoryProperties(name)
		require.NoError(t, err)
		assert.NotNil(t, props, name)
		assert.Empty(t, props, name)
	}
}

func TestExactlyOneIsNotMandatory(t *testing.T) {
	l, err := lattice.New([]lattice.TypeDef{
		{Name: "T", Category: instance.CategoryEntity, Attributes: []lattice.AttributeDef{
			{Name: "owner", Category: lattice.AttributePrimitive, Primitive: instance.PrimitiveString, Cardinality: lattice.ExactlyOne},
		}},
	})
	require.NoError(t, err)

	props, err := New(l).MandatoryProperties("T")
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestEveryPrimitiveCategoryHasAGenerator(t *testing.T) {
	for _, cat := range instance.PrimitiveCategories() {
		_, ok := DefaultGenerators[cat]
		assert.True(t, ok, cat.String())
	}
}

func TestCannedValuesByCategory(t *testing.T) {
	var attrs []lattice.AttributeDef
	for _, cat := range instance.PrimitiveCategories() {
		attrs = append(attrs, lattice.AttributeDef{
			Name: cat.String(), Category: lattice.AttributePrimitive, Primitive: cat, Cardinality: lattice.Optional,
		})
	}
	l, err := lattice.New([]lattice.TypeDef{{Name: "Everything", Category: instance.CategoryEntity, Attributes: attrs}})
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	props, err := New(l, WithClock(testutil.FixedClock(now))).AllProperties("Everything")
	require.NoError(t, err)

	assert.Equal(t, instance.Properties{
		"boolean":    instance.BooleanValue(true),
		"byte":       instance.ByteValue(7),
		"char":       instance.CharValue('Y'),
		"short":      instance.ShortValue(34),
		"int":        instance.IntValue(42),
		"long":       instance.LongValue(42),
		"float":      instance.FloatValue(3.5),
		"double":     instance.DoubleValue(3.14159),
		"biginteger": instance.BigIntegerValue("42"),
		"bigdecimal": instance.BigDecimalValue("42.5"),
		"string":     instance.StringValue("TeststringValue"),
		"date":       instance.NewDateValue(now),
	}, props)
}

func TestNonPrimitiveAttributesSkipped(t *testing.T) {
	s := newSynth(t)

	props, err := s.AllProperties(testutil.TypeReferenceable)
	require.NoError(t, err)
	assert.NotContains(t, props, "additionalProperties")

	skipped, err := s.Skipped(testutil.TypeDataFile)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "additionalProperties", skipped[0].Name)
}

func TestPropertiesForSuffixesUniqueStrings(t *testing.T) {
	s := newSynth(t)

	p1, err := s.PropertiesFor(testutil.TypeAsset, 1)
	require.NoError(t, err)
	p2, err := s.PropertiesFor(testutil.TypeAsset, 2)
	require.NoError(t, err)

	assert.Equal(t, instance.StringValue("TestqualifiedNameValue-1"), p1["qualifiedName"])
	assert.Equal(t, instance.StringValue("TestqualifiedNameValue-2"), p2["qualifiedName"])
	assert.Equal(t, p1["displayName"], p2["displayName"], "non-unique attributes are unchanged")
}

func TestUnknownType(t *testing.T) {
	s := newSynth(t)

	_, err := s.AllProperties("Missing")
	require.Error(t, err)
	assert.True(t, lattice.IsTypeNotFound(err))

	_, err = s.MandatoryProperties("Missing")
	assert.True(t, lattice.IsTypeNotFound(err))

	_, err = s.Skipped("Missing")
	assert.True(t, lattice.IsTypeNotFound(err))
}

func TestWithGenerator(t *testing.T) {
	s := newSynth(t, WithGenerator(instance.PrimitiveString, func(a lattice.AttributeDef, _ time.Time) instance.PrimitiveValue {
		return instance.StringValue(a.Name)
	}))

	props, err := s.MandatoryProperties(testutil.TypeAsset)
	require.NoError(t, err)
	assert.Equal(t, instance.StringValue("qualifiedName"), props["qualifiedName"])

	// The package table is untouched.
	other := newSynth(t)
	props, err = other.MandatoryProperties(testutil.TypeAsset)
	require.NoError(t, err)
	assert.Equal(t, instance.StringValue("TestqualifiedNameValue"), props["qualifiedName"])
}

func TestDeterministic(t *testing.T) {
	s := newSynth(t)

	a, err := s.AllProperties(testutil.TypeDatabase)
	require.NoError(t, err)
	b, err := s.AllProperties(testutil.TypeDatabase)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

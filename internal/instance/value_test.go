package instance

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveCategoryRoundTrip(t *testing.T) {
	for _, c := range PrimitiveCategories() {
		parsed, err := ParsePrimitiveCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParsePrimitiveCategory("unknown")
	assert.Error(t, err)

	got, err := ParsePrimitiveCategory(" String ")
	require.NoError(t, err)
	assert.Equal(t, PrimitiveString, got)
}

func TestParseTypeCategory(t *testing.T) {
	c, err := ParseTypeCategory("Relationship")
	require.NoError(t, err)
	assert.Equal(t, CategoryRelationship, c)

	_, err = ParseTypeCategory("unknown")
	assert.Error(t, err)
}

func TestPropertiesCloneIsDeep(t *testing.T) {
	orig := Properties{
		"tags":  ArrayValue{StringValue("a")},
		"attrs": MapValue{"k": StringValue("v")},
	}
	cp := orig.Clone()
	cp["tags"].(ArrayValue)[0] = StringValue("changed")
	cp["attrs"].(MapValue)["k"] = StringValue("changed")

	assert.Equal(t, StringValue("a"), orig["tags"].(ArrayValue)[0])
	assert.Equal(t, StringValue("v"), orig["attrs"].(MapValue)["k"])
	assert.Nil(t, Properties(nil).Clone())
}

func TestPropertiesMerge(t *testing.T) {
	base := Properties{"a": IntValue(1), "b": IntValue(2)}
	merged := base.Merge(Properties{"b": IntValue(3), "c": IntValue(4)})

	assert.Equal(t, Properties{"a": IntValue(1), "b": IntValue(3), "c": IntValue(4)}, merged)
	assert.Equal(t, IntValue(2), base["b"], "merge leaves the receiver untouched")
	assert.NotNil(t, Properties(nil).Merge(nil))
}

func TestPropertiesEqual(t *testing.T) {
	assert.True(t, Properties(nil).Equal(Properties{}))
	assert.True(t, Properties{"a": IntValue(1)}.Equal(Properties{"a": IntValue(1)}))
	assert.False(t, Properties{"a": IntValue(1)}.Equal(Properties{"a": LongValue(1)}))
	assert.False(t, Properties{"a": IntValue(1)}.Equal(Properties{"b": IntValue(1)}))
}

func TestDateValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	d := NewDateValue(ts)

	assert.True(t, ts.Truncate(time.Millisecond).Equal(d.Time()))
	assert.Equal(t, PrimitiveDate, d.Primitive())
}

func TestPropertiesCBORPreservesCategories(t *testing.T) {
	props := Properties{
		"flag":   BooleanValue(true),
		"small":  ByteValue(-3),
		"letter": CharValue('Y'),
		"short":  ShortValue(34),
		"int":    IntValue(42),
		"long":   LongValue(1 << 40),
		"float":  FloatValue(3.5),
		"double": DoubleValue(3.14159),
		"bigint": BigIntegerValue("42"),
		"bigdec": BigDecimalValue("42.5"),
		"name":   StringValue("TestnameValue"),
		"when":   DateValue(1700000000000),
		"status": EnumValue{Ordinal: 2, Symbol: "Active"},
		"list":   ArrayValue{IntValue(1), StringValue("x")},
		"map":    MapValue{"k": StringValue("v")},
		"record": StructValue{"f": LongValue(0)},
	}

	data, err := cbor.Marshal(props)
	require.NoError(t, err)

	var decoded Properties
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, props, decoded)
}

func TestPropertiesCBORDeterministic(t *testing.T) {
	a := Properties{"x": IntValue(1), "y": IntValue(2), "z": IntValue(3)}
	b := Properties{"z": IntValue(3), "y": IntValue(2), "x": IntValue(1)}

	da, err := a.MarshalCBOR()
	require.NoError(t, err)
	db, err := b.MarshalCBOR()
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name string
		cat  PrimitiveCategory
		in   any
		want PrimitiveValue
	}{
		{"int from float64", PrimitiveInt, float64(42), IntValue(42)},
		{"long from string", PrimitiveLong, "9000000000", LongValue(9000000000)},
		{"bool", PrimitiveBoolean, true, BooleanValue(true)},
		{"char", PrimitiveChar, "Y", CharValue('Y')},
		{"double", PrimitiveDouble, 2.5, DoubleValue(2.5)},
		{"string from number", PrimitiveString, 7, StringValue("7")},
		{"date from rfc3339", PrimitiveDate, "2024-03-01T12:00:00Z", NewDateValue(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))},
		{"date from millis", PrimitiveDate, float64(1000), DateValue(1000)},
		{"bigdecimal from float", PrimitiveBigDecimal, 42.5, BigDecimalValue("42.5")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromNative(tt.cat, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromNativeErrors(t *testing.T) {
	_, err := FromNative(PrimitiveByte, float64(300))
	assert.Error(t, err, "out of range")

	_, err = FromNative(PrimitiveInt, 1.5)
	assert.Error(t, err, "not integral")

	_, err = FromNative(PrimitiveChar, "too long")
	assert.Error(t, err)

	_, err = FromNative(PrimitiveString, nil)
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	got, err := FromAny(map[string]any{
		"n":    float64(3),
		"f":    1.25,
		"s":    "x",
		"list": []any{true},
	})
	require.NoError(t, err)
	assert.Equal(t, MapValue{
		"n":    LongValue(3),
		"f":    DoubleValue(1.25),
		"s":    StringValue("x"),
		"list": ArrayValue{BooleanValue(true)},
	}, got)

	_, err = FromAny(nil)
	assert.Error(t, err)
}

func TestNative(t *testing.T) {
	props := Properties{
		"when":  DateValue(0),
		"state": EnumValue{Ordinal: 1, Symbol: "On"},
		"c":     CharValue('Y'),
	}
	assert.Equal(t, map[string]any{
		"when":  "1970-01-01T00:00:00Z",
		"state": "On",
		"c":     "Y",
	}, props.NativeMap())
}

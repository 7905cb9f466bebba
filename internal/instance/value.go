package instance

import (
	"reflect"
	"slices"
	"time"
	"unicode/utf16"
)

// ValueKind separates primitive values from the opaque composite kinds.
type ValueKind int

const (
	KindPrimitive ValueKind = iota + 1
	KindEnum
	KindArray
	KindMap
	KindStruct
)

func (k ValueKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// PropertyValue is a sealed interface over the values an instance property
// may hold. Only the types in this file implement it.
type PropertyValue interface {
	propertyValue()
	Kind() ValueKind
}

// PrimitiveValue is a PropertyValue with a primitive category.
type PrimitiveValue interface {
	PropertyValue
	Primitive() PrimitiveCategory
}

type BooleanValue bool
type ByteValue int8
type CharValue rune
type ShortValue int16
type IntValue int32
type LongValue int64
type FloatValue float32
type DoubleValue float64

// BigIntegerValue and BigDecimalValue hold the decimal text form so that
// arbitrary precision survives every codec.
type BigIntegerValue string
type BigDecimalValue string

type StringValue string

// DateValue is milliseconds since the Unix epoch, UTC.
type DateValue int64

// NewDateValue truncates t to millisecond precision.
func NewDateValue(t time.Time) DateValue {
	return DateValue(t.UnixMilli())
}

// Time returns the date as a UTC time.
func (d DateValue) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

func (BooleanValue) propertyValue()    {}
func (ByteValue) propertyValue()       {}
func (CharValue) propertyValue()       {}
func (ShortValue) propertyValue()      {}
func (IntValue) propertyValue()        {}
func (LongValue) propertyValue()       {}
func (FloatValue) propertyValue()      {}
func (DoubleValue) propertyValue()     {}
func (BigIntegerValue) propertyValue() {}
func (BigDecimalValue) propertyValue() {}
func (StringValue) propertyValue()     {}
func (DateValue) propertyValue()       {}

func (BooleanValue) Kind() ValueKind    { return KindPrimitive }
func (ByteValue) Kind() ValueKind       { return KindPrimitive }
func (CharValue) Kind() ValueKind       { return KindPrimitive }
func (ShortValue) Kind() ValueKind      { return KindPrimitive }
func (IntValue) Kind() ValueKind        { return KindPrimitive }
func (LongValue) Kind() ValueKind       { return KindPrimitive }
func (FloatValue) Kind() ValueKind      { return KindPrimitive }
func (DoubleValue) Kind() ValueKind     { return KindPrimitive }
func (BigIntegerValue) Kind() ValueKind { return KindPrimitive }
func (BigDecimalValue) Kind() ValueKind { return KindPrimitive }
func (StringValue) Kind() ValueKind     { return KindPrimitive }
func (DateValue) Kind() ValueKind       { return KindPrimitive }

func (BooleanValue) Primitive() PrimitiveCategory    { return PrimitiveBoolean }
func (ByteValue) Primitive() PrimitiveCategory       { return PrimitiveByte }
func (CharValue) Primitive() PrimitiveCategory       { return PrimitiveChar }
func (ShortValue) Primitive() PrimitiveCategory      { return PrimitiveShort }
func (IntValue) Primitive() PrimitiveCategory        { return PrimitiveInt }
func (LongValue) Primitive() PrimitiveCategory       { return PrimitiveLong }
func (FloatValue) Primitive() PrimitiveCategory      { return PrimitiveFloat }
func (DoubleValue) Primitive() PrimitiveCategory     { return PrimitiveDouble }
func (BigIntegerValue) Primitive() PrimitiveCategory { return PrimitiveBigInteger }
func (BigDecimalValue) Primitive() PrimitiveCategory { return PrimitiveBigDecimal }
func (StringValue) Primitive() PrimitiveCategory     { return PrimitiveString }
func (DateValue) Primitive() PrimitiveCategory       { return PrimitiveDate }

// EnumValue is an enumeration element. Carried opaque.
type EnumValue struct {
	Ordinal int
	Symbol  string
}

// ArrayValue is an ordered list of values. Carried opaque.
type ArrayValue []PropertyValue

// MapValue is a string-keyed map of values. Carried opaque.
type MapValue map[string]PropertyValue

// StructValue is a named-field record of values. Carried opaque.
type StructValue map[string]PropertyValue

func (EnumValue) propertyValue()   {}
func (ArrayValue) propertyValue()  {}
func (MapValue) propertyValue()    {}
func (StructValue) propertyValue() {}

func (EnumValue) Kind() ValueKind   { return KindEnum }
func (ArrayValue) Kind() ValueKind  { return KindArray }
func (MapValue) Kind() ValueKind    { return KindMap }
func (StructValue) Kind() ValueKind { return KindStruct }

// Equal reports whether two values are identical in kind, category and content.
func Equal(a, b PropertyValue) bool {
	return reflect.DeepEqual(a, b)
}

// Properties is the property bag of an instance or classification.
// Use SortedKeys() for deterministic iteration.
type Properties map[string]PropertyValue

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (p Properties) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a deep copy. A nil bag clones to nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of p overlaid with every entry of other.
func (p Properties) Merge(other Properties) Properties {
	out := p.Clone()
	if out == nil {
		out = Properties{}
	}
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether both bags hold the same keys and values.
// A nil bag equals an empty bag.
func (p Properties) Equal(other Properties) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

func cloneValue(v PropertyValue) PropertyValue {
	switch val := v.(type) {
	case ArrayValue:
		out := make(ArrayValue, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case MapValue:
		out := make(MapValue, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	case StructValue:
		out := make(StructValue, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785. Go's default string comparison uses UTF-8,
// which orders supplementary-plane characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

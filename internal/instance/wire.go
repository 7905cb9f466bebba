package instance

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireValue is the self-describing encoding of a PropertyValue. Kind holds a
// primitive category name or one of "enum", "array", "map", "struct".
type WireValue struct {
	Kind   string               `cbor:"k"`
	Text   string               `cbor:"s,omitempty"`
	Int    int64                `cbor:"i,omitempty"`
	Float  float64              `cbor:"f,omitempty"`
	Bool   bool                 `cbor:"b,omitempty"`
	Items  []WireValue          `cbor:"a,omitempty"`
	Fields map[string]WireValue `cbor:"m,omitempty"`
}

// wireEnc uses Core Deterministic Encoding so a bag always encodes to the
// same bytes regardless of map iteration order.
var wireEnc cbor.EncMode

func init() {
	var err error
	wireEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("instance: CBOR encoder initialization failed: " + err.Error())
	}
}

// ToWire encodes a value.
func ToWire(v PropertyValue) WireValue {
	switch val := v.(type) {
	case BooleanValue:
		return WireValue{Kind: PrimitiveBoolean.String(), Bool: bool(val)}
	case ByteValue:
		return WireValue{Kind: PrimitiveByte.String(), Int: int64(val)}
	case CharValue:
		return WireValue{Kind: PrimitiveChar.String(), Int: int64(val)}
	case ShortValue:
		return WireValue{Kind: PrimitiveShort.String(), Int: int64(val)}
	case IntValue:
		return WireValue{Kind: PrimitiveInt.String(), Int: int64(val)}
	case LongValue:
		return WireValue{Kind: PrimitiveLong.String(), Int: int64(val)}
	case FloatValue:
		return WireValue{Kind: PrimitiveFloat.String(), Float: float64(val)}
	case DoubleValue:
		return WireValue{Kind: PrimitiveDouble.String(), Float: float64(val)}
	case BigIntegerValue:
		return WireValue{Kind: PrimitiveBigInteger.String(), Text: string(val)}
	case BigDecimalValue:
		return WireValue{Kind: PrimitiveBigDecimal.String(), Text: string(val)}
	case StringValue:
		return WireValue{Kind: PrimitiveString.String(), Text: string(val)}
	case DateValue:
		return WireValue{Kind: PrimitiveDate.String(), Int: int64(val)}
	case EnumValue:
		return WireValue{Kind: KindEnum.String(), Int: int64(val.Ordinal), Text: val.Symbol}
	case ArrayValue:
		items := make([]WireValue, len(val))
		for i, elem := range val {
			items[i] = ToWire(elem)
		}
		return WireValue{Kind: KindArray.String(), Items: items}
	case MapValue:
		return WireValue{Kind: KindMap.String(), Fields: fieldsToWire(val)}
	case StructValue:
		return WireValue{Kind: KindStruct.String(), Fields: fieldsToWire(val)}
	default:
		return WireValue{}
	}
}

func fieldsToWire(m map[string]PropertyValue) map[string]WireValue {
	out := make(map[string]WireValue, len(m))
	for k, v := range m {
		out[k] = ToWire(v)
	}
	return out
}

// FromWire decodes a value produced by ToWire.
func FromWire(w WireValue) (PropertyValue, error) {
	switch w.Kind {
	case KindEnum.String():
		return EnumValue{Ordinal: int(w.Int), Symbol: w.Text}, nil
	case KindArray.String():
		out := make(ArrayValue, len(w.Items))
		for i, item := range w.Items {
			v, err := FromWire(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case KindMap.String():
		fields, err := fieldsFromWire(w.Fields)
		if err != nil {
			return nil, err
		}
		return MapValue(fields), nil
	case KindStruct.String():
		fields, err := fieldsFromWire(w.Fields)
		if err != nil {
			return nil, err
		}
		return StructValue(fields), nil
	}

	cat, err := ParsePrimitiveCategory(w.Kind)
	if err != nil {
		return nil, fmt.Errorf("wire value: %w", err)
	}
	switch cat {
	case PrimitiveBoolean:
		return BooleanValue(w.Bool), nil
	case PrimitiveByte:
		return ByteValue(w.Int), nil
	case PrimitiveChar:
		return CharValue(w.Int), nil
	case PrimitiveShort:
		return ShortValue(w.Int), nil
	case PrimitiveInt:
		return IntValue(w.Int), nil
	case PrimitiveLong:
		return LongValue(w.Int), nil
	case PrimitiveFloat:
		return FloatValue(w.Float), nil
	case PrimitiveDouble:
		return DoubleValue(w.Float), nil
	case PrimitiveBigInteger:
		return BigIntegerValue(w.Text), nil
	case PrimitiveBigDecimal:
		return BigDecimalValue(w.Text), nil
	case PrimitiveString:
		return StringValue(w.Text), nil
	case PrimitiveDate:
		return DateValue(w.Int), nil
	}
	return nil, fmt.Errorf("wire value: unhandled category %s", cat)
}

func fieldsFromWire(m map[string]WireValue) (map[string]PropertyValue, error) {
	out := make(map[string]PropertyValue, len(m))
	for k, w := range m {
		v, err := FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("[%q]: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// MarshalCBOR implements cbor.Marshaler.
func (p Properties) MarshalCBOR() ([]byte, error) {
	if p == nil {
		return wireEnc.Marshal(nil)
	}
	return wireEnc.Marshal(fieldsToWire(p))
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (p *Properties) UnmarshalCBOR(data []byte) error {
	var raw map[string]WireValue
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*p = nil
		return nil
	}
	fields, err := fieldsFromWire(raw)
	if err != nil {
		return err
	}
	*p = Properties(fields)
	return nil
}

package instance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// Native converts a value to plain Go data suitable for encoding/json and
// human-readable output. Dates become RFC 3339 strings.
func Native(v PropertyValue) any {
	switch val := v.(type) {
	case nil:
		return nil
	case BooleanValue:
		return bool(val)
	case ByteValue:
		return int64(val)
	case CharValue:
		return string(rune(val))
	case ShortValue:
		return int64(val)
	case IntValue:
		return int64(val)
	case LongValue:
		return int64(val)
	case FloatValue:
		return float64(val)
	case DoubleValue:
		return float64(val)
	case BigIntegerValue:
		return string(val)
	case BigDecimalValue:
		return string(val)
	case StringValue:
		return string(val)
	case DateValue:
		return val.Time().Format(time.RFC3339Nano)
	case EnumValue:
		return val.Symbol
	case ArrayValue:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case MapValue:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	case StructValue:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NativeMap converts a property bag with Native.
func (p Properties) NativeMap() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = Native(v)
	}
	return out
}

// MarshalJSON renders the bag as plain JSON. The encoding is lossy (the
// primitive category is dropped) and intended for display only.
func (p Properties) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.NativeMap())
}

// FromNative converts decoded JSON/YAML data into a primitive value of the
// requested category. Numbers may arrive as float64, json.Number or any Go
// integer type; dates accept RFC 3339 strings or epoch milliseconds.
func FromNative(cat PrimitiveCategory, v any) (PrimitiveValue, error) {
	if v == nil {
		return nil, fmt.Errorf("null value for %s", cat)
	}
	switch cat {
	case PrimitiveBoolean:
		switch b := v.(type) {
		case bool:
			return BooleanValue(b), nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("boolean: %w", err)
			}
			return BooleanValue(parsed), nil
		}
	case PrimitiveByte:
		n, err := toInt(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return nil, fmt.Errorf("byte: %w", err)
		}
		return ByteValue(n), nil
	case PrimitiveChar:
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			return CharValue(r), nil
		}
		return nil, fmt.Errorf("char: want single-character string, got %v", v)
	case PrimitiveShort:
		n, err := toInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, fmt.Errorf("short: %w", err)
		}
		return ShortValue(n), nil
	case PrimitiveInt:
		n, err := toInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, fmt.Errorf("int: %w", err)
		}
		return IntValue(n), nil
	case PrimitiveLong:
		n, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, fmt.Errorf("long: %w", err)
		}
		return LongValue(n), nil
	case PrimitiveFloat:
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("float: %w", err)
		}
		return FloatValue(float32(f)), nil
	case PrimitiveDouble:
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("double: %w", err)
		}
		return DoubleValue(f), nil
	case PrimitiveBigInteger:
		return BigIntegerValue(fmt.Sprint(numberText(v))), nil
	case PrimitiveBigDecimal:
		return BigDecimalValue(fmt.Sprint(numberText(v))), nil
	case PrimitiveString:
		if s, ok := v.(string); ok {
			return StringValue(s), nil
		}
		return StringValue(fmt.Sprint(v)), nil
	case PrimitiveDate:
		switch d := v.(type) {
		case string:
			t, err := time.Parse(time.RFC3339Nano, d)
			if err != nil {
				return nil, fmt.Errorf("date: %w", err)
			}
			return NewDateValue(t), nil
		case time.Time:
			return NewDateValue(d), nil
		default:
			n, err := toInt(v, math.MinInt64, math.MaxInt64)
			if err != nil {
				return nil, fmt.Errorf("date: %w", err)
			}
			return DateValue(n), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, cat)
}

// FromAny converts untyped decoded data into the closest property value:
// strings, booleans, numbers (integral ⇒ long, otherwise double), lists
// (array) and objects (map).
func FromAny(v any) (PropertyValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null value")
	case PropertyValue:
		return val, nil
	case string:
		return StringValue(val), nil
	case bool:
		return BooleanValue(val), nil
	case int:
		return LongValue(val), nil
	case int64:
		return LongValue(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return LongValue(int64(val)), nil
		}
		return DoubleValue(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return LongValue(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return DoubleValue(f), nil
	case []any:
		out := make(ArrayValue, len(val))
		for i, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = pv
		}
		return out, nil
	case map[string]any:
		out := make(MapValue, len(val))
		for k, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = pv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toInt(v any, lo, hi int64) (int64, error) {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int32:
		n = int64(val)
	case int64:
		n = val
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%v is not integral", val)
		}
		n = int64(val)
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return 0, err
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(val, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func numberText(v any) any {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

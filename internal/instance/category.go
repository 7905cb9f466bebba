package instance

import (
	"fmt"
	"strings"
)

// TypeCategory distinguishes the three kinds of type definition.
type TypeCategory int

const (
	CategoryUnknown TypeCategory = iota
	CategoryEntity
	CategoryRelationship
	CategoryClassification
)

var typeCategoryNames = map[TypeCategory]string{
	CategoryUnknown:        "unknown",
	CategoryEntity:         "entity",
	CategoryRelationship:   "relationship",
	CategoryClassification: "classification",
}

func (c TypeCategory) String() string {
	if name, ok := typeCategoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TypeCategory(%d)", int(c))
}

// ParseTypeCategory parses the lower-case category name.
func ParseTypeCategory(s string) (TypeCategory, error) {
	for c, name := range typeCategoryNames {
		if c != CategoryUnknown && name == strings.ToLower(s) {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown type category %q", s)
}

// PrimitiveCategory is the closed set of primitive attribute types.
// Adding a category means adding a constant here, a name below and a
// generator entry in the synthesizer table.
type PrimitiveCategory int

const (
	PrimitiveUnknown PrimitiveCategory = iota
	PrimitiveBoolean
	PrimitiveByte
	PrimitiveChar
	PrimitiveShort
	PrimitiveInt
	PrimitiveLong
	PrimitiveFloat
	PrimitiveDouble
	PrimitiveBigInteger
	PrimitiveBigDecimal
	PrimitiveString
	PrimitiveDate
)

var primitiveNames = []string{
	PrimitiveUnknown:    "unknown",
	PrimitiveBoolean:    "boolean",
	PrimitiveByte:       "byte",
	PrimitiveChar:       "char",
	PrimitiveShort:      "short",
	PrimitiveInt:        "int",
	PrimitiveLong:       "long",
	PrimitiveFloat:      "float",
	PrimitiveDouble:     "double",
	PrimitiveBigInteger: "biginteger",
	PrimitiveBigDecimal: "bigdecimal",
	PrimitiveString:     "string",
	PrimitiveDate:       "date",
}

// PrimitiveCategories lists every known category in declaration order.
func PrimitiveCategories() []PrimitiveCategory {
	out := make([]PrimitiveCategory, 0, len(primitiveNames)-1)
	for c := PrimitiveBoolean; int(c) < len(primitiveNames); c++ {
		out = append(out, c)
	}
	return out
}

func (c PrimitiveCategory) String() string {
	if c >= 0 && int(c) < len(primitiveNames) {
		return primitiveNames[c]
	}
	return fmt.Sprintf("PrimitiveCategory(%d)", int(c))
}

// ParsePrimitiveCategory parses a lower-case primitive category name.
func ParsePrimitiveCategory(s string) (PrimitiveCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range primitiveNames {
		if i != int(PrimitiveUnknown) && name == s {
			return PrimitiveCategory(i), nil
		}
	}
	return PrimitiveUnknown, fmt.Errorf("unknown primitive category %q", s)
}

// MarshalText renders the category name.
func (c TypeCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name.
func (c *TypeCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseTypeCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

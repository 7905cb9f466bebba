package lattice

import (
	"fmt"
	"strings"

	"github.com/roach88/cohort/internal/instance"
)

// Cardinality is how many values an attribute may hold.
type Cardinality int

const (
	CardinalityUnknown Cardinality = iota
	Optional
	ExactlyOne
	AtLeastOneOrdered
	AtLeastOneUnordered
	AnyOrdered
	AnyUnordered
)

var cardinalityNames = []string{
	CardinalityUnknown:  "unknown",
	Optional:            "optional",
	ExactlyOne:          "exactly-one",
	AtLeastOneOrdered:   "at-least-one-ordered",
	AtLeastOneUnordered: "at-least-one-unordered",
	AnyOrdered:          "any-ordered",
	AnyUnordered:        "any-unordered",
}

func (c Cardinality) String() string {
	if c >= 0 && int(c) < len(cardinalityNames) {
		return cardinalityNames[c]
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

// Mandatory reports whether the attribute must hold at least one value.
// Only the at-least-one cardinalities are mandatory.
func (c Cardinality) Mandatory() bool {
	return c == AtLeastOneOrdered || c == AtLeastOneUnordered
}

// ParseCardinality parses a cardinality name. "at-least-one" is accepted as
// shorthand for at-least-one-unordered.
func ParseCardinality(s string) (Cardinality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "at-least-one" {
		return AtLeastOneUnordered, nil
	}
	for i, name := range cardinalityNames {
		if i != int(CardinalityUnknown) && name == s {
			return Cardinality(i), nil
		}
	}
	return CardinalityUnknown, fmt.Errorf("unknown cardinality %q", s)
}

// AttributeCategory is the shape of an attribute's values.
type AttributeCategory int

const (
	AttributeUnknown AttributeCategory = iota
	AttributePrimitive
	AttributeEnum
	AttributeMap
	AttributeArray
	AttributeStruct
)

var attributeCategoryNames = []string{
	AttributeUnknown:   "unknown",
	AttributePrimitive: "primitive",
	AttributeEnum:      "enum",
	AttributeMap:       "map",
	AttributeArray:     "array",
	AttributeStruct:    "struct",
}

func (c AttributeCategory) String() string {
	if c >= 0 && int(c) < len(attributeCategoryNames) {
		return attributeCategoryNames[c]
	}
	return fmt.Sprintf("AttributeCategory(%d)", int(c))
}

// ParseAttributeCategory parses an attribute category name.
func ParseAttributeCategory(s string) (AttributeCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range attributeCategoryNames {
		if i != int(AttributeUnknown) && name == s {
			return AttributeCategory(i), nil
		}
	}
	return AttributeUnknown, fmt.Errorf("unknown attribute category %q", s)
}

// AttributeDef describes one attribute declared by a type.
type AttributeDef struct {
	Name        string
	Category    AttributeCategory
	Primitive   instance.PrimitiveCategory // set when Category is AttributePrimitive
	Cardinality Cardinality
	Unique      bool
	Description string
}

// EndDef describes one end of a relationship type.
type EndDef struct {
	EntityType string
	Role       string
}

// TypeDef is a single type definition as authored. Supertype is a name
// reference resolved when the lattice is built.
type TypeDef struct {
	GUID        string
	Name        string
	Category    instance.TypeCategory
	Supertype   string
	Attributes  []AttributeDef
	Description string

	// Relationship types only.
	End1, End2 EndDef

	// Classification types only. Empty means any entity type.
	ValidEntityTypes []string
}

// Attribute returns the attribute declared directly on this type.
func (d TypeDef) Attribute(name string) (AttributeDef, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeDef{}, false
}

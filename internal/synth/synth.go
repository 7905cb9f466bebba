// Package synth builds deterministic property bags for test instances.
//
// Values come from a table keyed by primitive category. Only primitive
// attributes are synthesized: enum, map, array and struct attributes are
// left unset, including mandatory ones. Skipped reports them so callers
// can tell the gap apart from an omission.
package synth

import (
	"fmt"
	"time"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// Generator produces the value for one attribute.
type Generator func(attr lattice.AttributeDef, now time.Time) instance.PrimitiveValue

// Clock supplies the timestamp used for date attributes.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DefaultGenerators maps each primitive category to its canned value.
// Adding a category is an entry here.
var DefaultGenerators = map[instance.PrimitiveCategory]Generator{
	instance.PrimitiveBoolean: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.BooleanValue(true)
	},
	instance.PrimitiveByte: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.ByteValue(7)
	},
	instance.PrimitiveChar: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.CharValue('Y')
	},
	instance.PrimitiveShort: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.ShortValue(34)
	},
	instance.PrimitiveInt: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.IntValue(42)
	},
	instance.PrimitiveLong: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.LongValue(42)
	},
	instance.PrimitiveFloat: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.FloatValue(3.5)
	},
	instance.PrimitiveDouble: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.DoubleValue(3.14159)
	},
	instance.PrimitiveBigInteger: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.BigIntegerValue("42")
	},
	instance.PrimitiveBigDecimal: func(lattice.AttributeDef, time.Time) instance.PrimitiveValue {
		return instance.BigDecimalValue("42.5")
	},
	instance.PrimitiveString: func(attr lattice.AttributeDef, _ time.Time) instance.PrimitiveValue {
		return instance.StringValue("Test" + attr.Name + "Value")
	},
	instance.PrimitiveDate: func(_ lattice.AttributeDef, now time.Time) instance.PrimitiveValue {
		return instance.NewDateValue(now)
	},
}

// Synthesizer builds property bags from a lattice.
//
// Thread-safety: a Synthesizer is immutable after New and safe for
// concurrent use, provided the clock is.
type Synthesizer struct {
	types      *lattice.Lattice
	clock      Clock
	generators map[instance.PrimitiveCategory]Generator
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock sets the clock used for date attributes.
func WithClock(c Clock) Option {
	return func(s *Synthesizer) {
		s.clock = c
	}
}

// WithGenerator overrides the generator for one category.
func WithGenerator(cat instance.PrimitiveCategory, g Generator) Option {
	return func(s *Synthesizer) {
		s.generators[cat] = g
	}
}

// New returns a synthesizer over types.
func New(types *lattice.Lattice, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		types:      types,
		clock:      systemClock{},
		generators: make(map[instance.PrimitiveCategory]Generator, len(DefaultGenerators)),
	}
	for cat, g := range DefaultGenerators {
		s.generators[cat] = g
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllProperties returns a value for every primitive attribute of typeName,
// inherited ones included.
func (s *Synthesizer) AllProperties(typeName string) (instance.Properties, error) {
	return s.build(typeName, -1, func(lattice.AttributeDef) bool { return true })
}

// MandatoryProperties returns values for the at-least-one attributes of
// typeName only. The result is never nil: update operations treat a nil bag
// as "no change" rather than "clear".
func (s *Synthesizer) MandatoryProperties(typeName string) (instance.Properties, error) {
	return s.build(typeName, -1, func(a lattice.AttributeDef) bool { return a.Cardinality.Mandatory() })
}

// PropertiesFor is AllProperties with every unique string attribute
// suffixed by ordinal, so that many instances of one type can coexist.
func (s *Synthesizer) PropertiesFor(typeName string, ordinal int) (instance.Properties, error) {
	return s.build(typeName, ordinal, func(lattice.AttributeDef) bool { return true })
}

// Skipped lists the non-primitive attributes of typeName that the
// synthesizer leaves unset.
func (s *Synthesizer) Skipped(typeName string) ([]lattice.AttributeDef, error) {
	attrs, err := s.types.ResolveAttributes(typeName)
	if err != nil {
		return nil, err
	}
	var out []lattice.AttributeDef
	for _, a := range attrs {
		if _, ok := s.generatorFor(a); !ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Synthesizer) generatorFor(a lattice.AttributeDef) (Generator, bool) {
	if a.Category != lattice.AttributePrimitive {
		return nil, false
	}
	g, ok := s.generators[a.Primitive]
	return g, ok
}

func (s *Synthesizer) build(typeName string, ordinal int, keep func(lattice.AttributeDef) bool) (instance.Properties, error) {
	attrs, err := s.types.ResolveAttributes(typeName)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", typeName, err)
	}
	now := s.clock.Now()
	props := instance.Properties{}
	for _, a := range attrs {
		if !keep(a) {
			continue
		}
		g, ok := s.generatorFor(a)
		if !ok {
			continue
		}
		v := g(a, now)
		if ordinal >= 0 && a.Unique {
			if str, isString := v.(instance.StringValue); isString {
				v = instance.StringValue(fmt.Sprintf("%s-%d", str, ordinal))
			}
		}
		props[a.Name] = v
	}
	return props, nil
}

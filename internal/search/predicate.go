package search

import (
	"fmt"
	"strings"

	"github.com/roach88/cohort/internal/instance"
)

// Predicate is a filter over a property bag. Sealed.
type Predicate interface {
	predicateNode()
}

// Equals matches when Property holds a value identical to Value in kind,
// category and content.
type Equals struct {
	Property string
	Value    instance.PropertyValue
}

// Prefix matches when Property is a string starting with Value.
type Prefix struct {
	Property string
	Value    string
}

// Exists matches when Property is present.
type Exists struct {
	Property string
}

// And matches when every predicate matches. Empty And is always true.
type And struct {
	Predicates []Predicate
}

// Or matches when any predicate matches. Empty Or is always false.
type Or struct {
	Predicates []Predicate
}

// Not inverts a predicate.
type Not struct {
	Predicate Predicate
}

func (Equals) predicateNode() {}
func (Prefix) predicateNode() {}
func (Exists) predicateNode() {}
func (And) predicateNode()    {}
func (Or) predicateNode()     {}
func (Not) predicateNode()    {}

// MatchMode says how the properties passed to FromProperties combine.
type MatchMode int

const (
	MatchAll MatchMode = iota
	MatchAny
	MatchNone
)

func (m MatchMode) String() string {
	switch m {
	case MatchAll:
		return "all"
	case MatchAny:
		return "any"
	case MatchNone:
		return "none"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ParseMatchMode accepts "all", "any" or "none".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return MatchAll, nil
	case "any":
		return MatchAny, nil
	case "none":
		return MatchNone, nil
	}
	return MatchAll, fmt.Errorf("unknown match mode %q", s)
}

// FromProperties turns a match-properties bag into a predicate, one Equals
// per property in canonical key order. An empty bag yields nil (match all).
func FromProperties(props instance.Properties, mode MatchMode) Predicate {
	if len(props) == 0 {
		return nil
	}
	terms := make([]Predicate, 0, len(props))
	for _, k := range props.SortedKeys() {
		terms = append(terms, Equals{Property: k, Value: props[k]})
	}
	switch mode {
	case MatchAny:
		return Or{Predicates: terms}
	case MatchNone:
		return Not{Predicate: Or{Predicates: terms}}
	default:
		return And{Predicates: terms}
	}
}

// Match evaluates p against props.
func Match(p Predicate, props instance.Properties) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		v, ok := props[pred.Property]
		return ok && instance.Equal(v, pred.Value)
	case *Equals:
		return Match(*pred, props)
	case Prefix:
		v, ok := props[pred.Property].(instance.StringValue)
		return ok && strings.HasPrefix(string(v), pred.Value)
	case *Prefix:
		return Match(*pred, props)
	case Exists:
		_, ok := props[pred.Property]
		return ok
	case *Exists:
		return Match(*pred, props)
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, props) {
				return false
			}
		}
		return true
	case *And:
		return Match(*pred, props)
	case Or:
		for _, sub := range pred.Predicates {
			if Match(sub, props) {
				return true
			}
		}
		return false
	case *Or:
		return Match(*pred, props)
	case Not:
		return !Match(pred.Predicate, props)
	case *Not:
		return Match(*pred, props)
	default:
		return false
	}
}

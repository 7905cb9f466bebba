package search

import (
	"fmt"
)

// ValidationResult lists structural problems found in a predicate.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks that every node names a property, carries a value where
// one is needed, and that Not wraps something. Validate is pure.
func Validate(p Predicate) ValidationResult {
	v := &validator{problems: []string{}}
	v.validate(p, "")
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) add(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	v.problems = append(v.problems, msg)
}

func (v *validator) validate(p Predicate, path string) {
	switch pred := p.(type) {
	case nil:
		return // nil matches everything
	case Equals:
		if pred.Property == "" {
			v.add(path, "equals: empty property name")
		}
		if pred.Value == nil {
			v.add(path, "equals %q: nil value", pred.Property)
		}
	case *Equals:
		v.validate(*pred, path)
	case Prefix:
		if pred.Property == "" {
			v.add(path, "prefix: empty property name")
		}
	case *Prefix:
		v.validate(*pred, path)
	case Exists:
		if pred.Property == "" {
			v.add(path, "exists: empty property name")
		}
	case *Exists:
		v.validate(*pred, path)
	case And:
		for i, sub := range pred.Predicates {
			v.validate(sub, fmt.Sprintf("%sand[%d]", prefix(path), i))
		}
	case *And:
		v.validate(*pred, path)
	case Or:
		if len(pred.Predicates) == 0 {
			v.add(path, "or: no alternatives, never matches")
		}
		for i, sub := range pred.Predicates {
			v.validate(sub, fmt.Sprintf("%sor[%d]", prefix(path), i))
		}
	case *Or:
		v.validate(*pred, path)
	case Not:
		if pred.Predicate == nil {
			v.add(path, "not: nil operand, never matches")
			return
		}
		v.validate(pred.Predicate, prefix(path)+"not")
	case *Not:
		v.validate(*pred, path)
	default:
		v.add(path, "unknown predicate type %T", p)
	}
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + "."
}

package search

import (
	"fmt"
	"strings"

	"github.com/roach88/cohort/internal/instance"
)

// Describe renders p as a compact deterministic expression, for logs and
// assertion parameters. Example: (qualifiedName = "a" AND owner EXISTS).
func Describe(p Predicate) string {
	var b strings.Builder
	describe(&b, p)
	return b.String()
}

func describe(b *strings.Builder, p Predicate) {
	switch pred := p.(type) {
	case nil:
		b.WriteString("TRUE")
	case Equals:
		fmt.Fprintf(b, "%s = %s", pred.Property, literal(pred.Value))
	case *Equals:
		describe(b, *pred)
	case Prefix:
		fmt.Fprintf(b, "%s STARTS WITH %q", pred.Property, pred.Value)
	case *Prefix:
		describe(b, *pred)
	case Exists:
		fmt.Fprintf(b, "%s EXISTS", pred.Property)
	case *Exists:
		describe(b, *pred)
	case And:
		join(b, pred.Predicates, " AND ", "TRUE")
	case *And:
		describe(b, *pred)
	case Or:
		join(b, pred.Predicates, " OR ", "FALSE")
	case *Or:
		describe(b, *pred)
	case Not:
		b.WriteString("NOT ")
		describe(b, pred.Predicate)
	case *Not:
		describe(b, *pred)
	default:
		fmt.Fprintf(b, "<%T>", p)
	}
}

func join(b *strings.Builder, preds []Predicate, sep, empty string) {
	if len(preds) == 0 {
		b.WriteString(empty)
		return
	}
	b.WriteByte('(')
	for i, sub := range preds {
		if i > 0 {
			b.WriteString(sep)
		}
		describe(b, sub)
	}
	b.WriteByte(')')
}

func literal(v instance.PropertyValue) string {
	if v == nil {
		return "NULL"
	}
	data, err := instance.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", instance.Native(v))
	}
	return string(data)
}

package compiler

import (
	"fmt"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// Lint codes (E100-E199). These flag definitions that load but will
// misbehave at runtime.
const (
	ErrInvalidGUID           = "E101" // guid is not a UUID
	ErrMandatoryNotSynthable = "E102" // mandatory attribute the synthesizer cannot fill
	ErrMissingRole           = "E103" // relationship end without a role name
	ErrUniqueNotString       = "E104" // unique attribute that is not a string
	ErrShadowedAttribute     = "E105" // attribute redeclared by a subtype
	ErrMissingGUID           = "E106" // type without a guid
)

// ValidationError represents a lint finding against one type.
type ValidationError struct {
	Type    string `json:"type"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Type, e.Field, e.Message)
}

// Validate lints every type in the lattice.
// Returns all findings (does not fail-fast), ordered by type name.
func Validate(l *lattice.Lattice) []ValidationError {
	var out []ValidationError
	for _, name := range l.Names(instance.CategoryUnknown) {
		def, _ := l.Lookup(name)
		out = append(out, validateTypeDef(l, def)...)
	}
	return out
}

func validateTypeDef(l *lattice.Lattice, def lattice.TypeDef) []ValidationError {
	var errs []ValidationError

	switch {
	case def.GUID == "":
		errs = append(errs, ValidationError{
			Type: def.Name, Field: "guid", Code: ErrMissingGUID,
			Message: "guid is required for exchange",
		})
	case !instance.ValidGUID(def.GUID):
		errs = append(errs, ValidationError{
			Type: def.Name, Field: "guid", Code: ErrInvalidGUID,
			Message: fmt.Sprintf("%q is not a UUID", def.GUID),
		})
	}

	for _, a := range def.Attributes {
		field := "attributes." + a.Name
		if a.Cardinality.Mandatory() && a.Category != lattice.AttributePrimitive {
			errs = append(errs, ValidationError{
				Type: def.Name, Field: field, Code: ErrMandatoryNotSynthable,
				Message: fmt.Sprintf("mandatory %s attribute is never synthesized", a.Category),
			})
		}
		if a.Unique && a.Primitive != instance.PrimitiveString {
			errs = append(errs, ValidationError{
				Type: def.Name, Field: field, Code: ErrUniqueNotString,
				Message: "unique attributes must be strings",
			})
		}
	}

	if def.Supertype != "" {
		inherited, err := l.ResolveAttributes(def.Supertype)
		if err == nil {
			seen := make(map[string]bool, len(inherited))
			for _, a := range inherited {
				seen[a.Name] = true
			}
			for _, a := range def.Attributes {
				if seen[a.Name] {
					errs = append(errs, ValidationError{
						Type: def.Name, Field: "attributes." + a.Name, Code: ErrShadowedAttribute,
						Message: "redeclares an inherited attribute",
					})
				}
			}
		}
	}

	if def.Category == instance.CategoryRelationship {
		for i, end := range []lattice.EndDef{def.End1, def.End2} {
			if end.Role == "" {
				errs = append(errs, ValidationError{
					Type: def.Name, Field: fmt.Sprintf("end%d.role", i+1), Code: ErrMissingRole,
					Message: "role name is required",
				})
			}
		}
	}

	return errs
}

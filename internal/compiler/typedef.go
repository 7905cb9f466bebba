package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// CompileTypeDef parses a CUE value into a TypeDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the type struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`typedef: Asset: { category: "entity", ... }`)
//	def, err := CompileTypeDef(v.LookupPath(cue.ParsePath("typedef.Asset")))
func CompileTypeDef(v cue.Value) (*lattice.TypeDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &lattice.TypeDef{}

	// Type name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	categoryVal := v.LookupPath(cue.ParsePath("category"))
	if !categoryVal.Exists() {
		return nil, &CompileError{
			Field:   "category",
			Message: "category is required",
			Pos:     v.Pos(),
		}
	}
	categoryStr, err := categoryVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.Category, err = instance.ParseTypeCategory(categoryStr)
	if err != nil {
		return nil, &CompileError{Field: "category", Message: err.Error(), Pos: categoryVal.Pos()}
	}

	if def.GUID, err = optionalString(v, "guid"); err != nil {
		return nil, err
	}
	if def.Supertype, err = optionalString(v, "supertype"); err != nil {
		return nil, err
	}
	if def.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}

	def.Attributes, err = parseAttributes(v)
	if err != nil {
		return nil, err
	}

	switch def.Category {
	case instance.CategoryRelationship:
		if def.End1, err = parseEnd(v, "end1"); err != nil {
			return nil, err
		}
		if def.End2, err = parseEnd(v, "end2"); err != nil {
			return nil, err
		}
	case instance.CategoryClassification:
		def.ValidEntityTypes, err = parseStringList(v, "validEntityTypes")
		if err != nil {
			return nil, err
		}
	}

	return def, nil
}

// parseAttributes extracts the attribute list. Declaration order is kept.
func parseAttributes(v cue.Value) ([]lattice.AttributeDef, error) {
	var attrs []lattice.AttributeDef

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return attrs, nil // attributes are optional
	}

	iter, err := attrsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		attrVal := iter.Value()

		nameVal := attrVal.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   "attributes.name",
				Message: "attribute name is required",
				Pos:     attrVal.Pos(),
			}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		attr := lattice.AttributeDef{Name: name, Cardinality: lattice.Optional}

		typeVal := attrVal.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("attributes.%s.type", name),
				Message: "attribute type is required",
				Pos:     attrVal.Pos(),
			}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if prim, perr := instance.ParsePrimitiveCategory(typeName); perr == nil {
			attr.Category = lattice.AttributePrimitive
			attr.Primitive = prim
		} else {
			attr.Category, err = lattice.ParseAttributeCategory(typeName)
			if err != nil || attr.Category == lattice.AttributePrimitive {
				return nil, &CompileError{
					Field:   fmt.Sprintf("attributes.%s.type", name),
					Message: fmt.Sprintf("unsupported attribute type %q", typeName),
					Pos:     typeVal.Pos(),
				}
			}
		}

		cardVal := attrVal.LookupPath(cue.ParsePath("cardinality"))
		if cardVal.Exists() {
			cardStr, err := cardVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			attr.Cardinality, err = lattice.ParseCardinality(cardStr)
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("attributes.%s.cardinality", name),
					Message: err.Error(),
					Pos:     cardVal.Pos(),
				}
			}
		}

		uniqueVal := attrVal.LookupPath(cue.ParsePath("unique"))
		if uniqueVal.Exists() {
			attr.Unique, err = uniqueVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		if attr.Description, err = optionalString(attrVal, "description"); err != nil {
			return nil, err
		}

		attrs = append(attrs, attr)
	}

	return attrs, nil
}

func parseEnd(v cue.Value, field string) (lattice.EndDef, error) {
	var end lattice.EndDef

	endVal := v.LookupPath(cue.ParsePath(field))
	if !endVal.Exists() {
		return end, &CompileError{
			Field:   field,
			Message: "relationship ends are required",
			Pos:     v.Pos(),
		}
	}

	var err error
	if end.EntityType, err = optionalString(endVal, "type"); err != nil {
		return end, err
	}
	if end.EntityType == "" {
		return end, &CompileError{
			Field:   field + ".type",
			Message: "end entity type is required",
			Pos:     endVal.Pos(),
		}
	}
	if end.Role, err = optionalString(endVal, "role"); err != nil {
		return end, err
	}
	return end, nil
}

func parseStringList(v cue.Value, field string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

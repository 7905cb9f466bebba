package memory

import (
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/repository"
)

// typeRef resolves name to a supported type of the wanted category.
func (r *Repository) typeRef(op repository.Operation, name string, want instance.TypeCategory) (instance.TypeRef, lattice.TypeDef, error) {
	def, ok := r.types.Lookup(name)
	if !ok {
		return instance.TypeRef{}, lattice.TypeDef{}, repository.InvalidParameter(op, "unknown type %q", name)
	}
	if def.Category != want {
		return instance.TypeRef{}, lattice.TypeDef{}, repository.InvalidParameter(op, "type %q is a %s type, want %s", name, def.Category, want)
	}
	if !r.supported.Has(name) {
		return instance.TypeRef{}, lattice.TypeDef{}, repository.InvalidParameter(op, "type %q is not supported by this repository", name)
	}
	ref, err := r.types.TypeRef(name)
	if err != nil {
		return instance.TypeRef{}, lattice.TypeDef{}, repository.ServerError(op, err)
	}
	return ref, def, nil
}

// checkProperties validates props against every attribute the type
// inherits: no unknown names, matching categories, mandatory present.
func (r *Repository) checkProperties(op repository.Operation, typeName string, props instance.Properties) error {
	attrs, err := r.types.ResolveAttributes(typeName)
	if err != nil {
		return repository.InvalidParameter(op, "%v", err)
	}
	byName := make(map[string]lattice.AttributeDef, len(attrs))
	for _, a := range attrs {
		byName[a.Name] = a
	}

	for _, k := range props.SortedKeys() {
		a, ok := byName[k]
		if !ok {
			return repository.InvalidParameter(op, "type %s has no attribute %q", typeName, k)
		}
		if !valueFits(a, props[k]) {
			return repository.InvalidParameter(op, "attribute %s.%s: value does not match its declared type", typeName, k)
		}
	}
	for _, a := range attrs {
		if !a.Cardinality.Mandatory() {
			continue
		}
		if _, ok := props[a.Name]; !ok {
			return repository.InvalidParameter(op, "mandatory attribute %s.%s is missing", typeName, a.Name)
		}
	}
	return nil
}

func valueFits(a lattice.AttributeDef, v instance.PropertyValue) bool {
	switch a.Category {
	case lattice.AttributePrimitive:
		pv, ok := v.(instance.PrimitiveValue)
		return ok && pv.Primitive() == a.Primitive
	case lattice.AttributeEnum:
		_, ok := v.(instance.EnumValue)
		return ok
	case lattice.AttributeMap:
		_, ok := v.(instance.MapValue)
		return ok
	case lattice.AttributeArray:
		_, ok := v.(instance.ArrayValue)
		return ok
	case lattice.AttributeStruct:
		_, ok := v.(instance.StructValue)
		return ok
	default:
		return false
	}
}

// checkUniqueEntity rejects props whose unique attributes collide with a
// live entity other than self. Caller holds the lock.
func (r *Repository) checkUniqueEntity(op repository.Operation, typeName, self string, props instance.Properties) error {
	attrs, err := r.types.ResolveAttributes(typeName)
	if err != nil {
		return repository.InvalidParameter(op, "%v", err)
	}
	for _, a := range attrs {
		if !a.Unique {
			continue
		}
		v, ok := props[a.Name]
		if !ok {
			continue
		}
		for guid, rec := range r.entities {
			if guid == self || rec.current.IsDeleted() {
				continue
			}
			if other, ok := rec.current.Properties[a.Name]; ok && instance.Equal(other, v) {
				return repository.InvalidParameter(op, "unique attribute %s already held by entity %s", a.Name, guid)
			}
		}
	}
	return nil
}

// checkClassification validates that a classification type may be attached
// to an entity of type entityType.
func (r *Repository) checkClassification(op repository.Operation, name, entityType string, props instance.Properties) error {
	_, def, err := r.typeRef(op, name, instance.CategoryClassification)
	if err != nil {
		return err
	}
	if len(def.ValidEntityTypes) > 0 {
		valid := false
		for _, t := range def.ValidEntityTypes {
			if r.types.IsSubtypeOf(entityType, t) {
				valid = true
				break
			}
		}
		if !valid {
			return repository.InvalidParameter(op, "classification %s is not valid for entity type %s", name, entityType)
		}
	}
	return r.checkProperties(op, name, props)
}

// checkRetype validates a type change: same category, same lineage, and
// the existing properties must still fit.
func (r *Repository) checkRetype(op repository.Operation, from, to string, want instance.TypeCategory, props instance.Properties) (instance.TypeRef, error) {
	if from == to {
		return instance.TypeRef{}, repository.InvalidParameter(op, "instance is already of type %s", to)
	}
	ref, _, err := r.typeRef(op, to, want)
	if err != nil {
		return instance.TypeRef{}, err
	}
	if !r.types.IsSubtypeOf(to, from) && !r.types.IsSubtypeOf(from, to) {
		return instance.TypeRef{}, repository.InvalidParameter(op, "type %s is not a subtype or supertype of %s", to, from)
	}
	if err := r.checkProperties(op, to, props); err != nil {
		return instance.TypeRef{}, err
	}
	return ref, nil
}

func (r *Repository) checkNewGUID(op repository.Operation, guid string) error {
	if !instance.ValidGUID(guid) {
		return repository.InvalidParameter(op, "malformed GUID %q", guid)
	}
	if _, ok := r.entities[guid]; ok {
		return repository.InvalidParameter(op, "GUID %s is already in use", guid)
	}
	if _, ok := r.relationships[guid]; ok {
		return repository.InvalidParameter(op, "GUID %s is already in use", guid)
	}
	return nil
}

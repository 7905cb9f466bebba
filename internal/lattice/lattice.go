package lattice

import (
	"errors"
	"slices"
	"sort"

	"github.com/roach88/cohort/internal/instance"
)

const noParent = -1

// Lattice is a validated, read-only index of type definitions.
//
// Types are stored in an arena; supertype and subtype links are arena
// indexes, never pointers.
type Lattice struct {
	defs     []TypeDef
	byName   map[string]int
	byGUID   map[string]int
	parent   []int
	children [][]int // sorted by type name
}

// New builds a lattice from defs. The input slice is copied.
func New(defs []TypeDef) (*Lattice, error) {
	l := &Lattice{
		defs:     make([]TypeDef, len(defs)),
		byName:   make(map[string]int, len(defs)),
		byGUID:   make(map[string]int, len(defs)),
		parent:   make([]int, len(defs)),
		children: make([][]int, len(defs)),
	}

	for i, d := range defs {
		if err := validateDef(d); err != nil {
			return nil, err
		}
		if _, dup := l.byName[d.Name]; dup {
			return nil, &DefinitionError{Type: d.Name, Message: "duplicate type name"}
		}
		if d.GUID != "" {
			if other, dup := l.byGUID[d.GUID]; dup {
				return nil, &DefinitionError{Type: d.Name, Message: "guid already used by " + defs[other].Name}
			}
			l.byGUID[d.GUID] = i
		}
		d.Attributes = slices.Clone(d.Attributes)
		d.ValidEntityTypes = slices.Clone(d.ValidEntityTypes)
		l.defs[i] = d
		l.byName[d.Name] = i
	}

	for i, d := range l.defs {
		l.parent[i] = noParent
		if d.Supertype == "" {
			continue
		}
		p, ok := l.byName[d.Supertype]
		if !ok {
			return nil, &DefinitionError{Type: d.Name, Message: "unknown supertype " + d.Supertype}
		}
		if l.defs[p].Category != d.Category {
			return nil, &DefinitionError{
				Type:    d.Name,
				Message: "supertype " + d.Supertype + " is a " + l.defs[p].Category.String() + " type",
			}
		}
		l.parent[i] = p
		l.children[p] = append(l.children[p], i)
	}

	if err := l.checkCycles(); err != nil {
		return nil, err
	}
	if err := l.checkReferences(); err != nil {
		return nil, err
	}

	for i := range l.children {
		sort.Slice(l.children[i], func(a, b int) bool {
			return l.defs[l.children[i][a]].Name < l.defs[l.children[i][b]].Name
		})
	}
	return l, nil
}

func validateDef(d TypeDef) error {
	if d.Name == "" {
		return &DefinitionError{Message: "name is required"}
	}
	switch d.Category {
	case instance.CategoryEntity, instance.CategoryRelationship, instance.CategoryClassification:
	default:
		return &DefinitionError{Type: d.Name, Message: "category is required"}
	}
	seen := make(map[string]bool, len(d.Attributes))
	for _, a := range d.Attributes {
		if a.Name == "" {
			return &DefinitionError{Type: d.Name, Message: "attribute name is required"}
		}
		if seen[a.Name] {
			return &DefinitionError{Type: d.Name, Message: "duplicate attribute " + a.Name}
		}
		seen[a.Name] = true
		if a.Category == AttributeUnknown {
			return &DefinitionError{Type: d.Name, Message: "attribute " + a.Name + " has no category"}
		}
		if a.Category == AttributePrimitive && a.Primitive == instance.PrimitiveUnknown {
			return &DefinitionError{Type: d.Name, Message: "attribute " + a.Name + " has no primitive category"}
		}
		if a.Cardinality == CardinalityUnknown {
			return &DefinitionError{Type: d.Name, Message: "attribute " + a.Name + " has no cardinality"}
		}
	}
	return nil
}

// checkCycles walks every supertype chain once with three-colour marking.
func (l *Lattice) checkCycles() error {
	const (
		white = iota
		grey
		black
	)
	colour := make([]int, len(l.defs))
	for start := range l.defs {
		var path []int
		for i := start; i != noParent; i = l.parent[i] {
			if colour[i] == black {
				break
			}
			if colour[i] == grey {
				names := []string{}
				for j := slices.Index(path, i); j < len(path); j++ {
					names = append(names, l.defs[path[j]].Name)
				}
				names = append(names, l.defs[i].Name)
				return &CycleError{Path: names}
			}
			colour[i] = grey
			path = append(path, i)
		}
		for _, i := range path {
			colour[i] = black
		}
	}
	return nil
}

// checkReferences validates relationship ends and classification targets.
func (l *Lattice) checkReferences() error {
	entity := func(owner, name string) error {
		i, ok := l.byName[name]
		if !ok {
			return &DefinitionError{Type: owner, Message: "unknown entity type " + name}
		}
		if l.defs[i].Category != instance.CategoryEntity {
			return &DefinitionError{Type: owner, Message: name + " is not an entity type"}
		}
		return nil
	}
	for _, d := range l.defs {
		switch d.Category {
		case instance.CategoryRelationship:
			for _, end := range []EndDef{d.End1, d.End2} {
				if end.EntityType == "" {
					continue
				}
				if err := entity(d.Name, end.EntityType); err != nil {
					return err
				}
			}
		case instance.CategoryClassification:
			for _, name := range d.ValidEntityTypes {
				if err := entity(d.Name, name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Len returns the number of types.
func (l *Lattice) Len() int {
	return len(l.defs)
}

// Lookup returns the named type definition. The returned value shares
// slices with the lattice and must not be modified.
func (l *Lattice) Lookup(name string) (TypeDef, bool) {
	i, ok := l.byName[name]
	if !ok {
		return TypeDef{}, false
	}
	return l.defs[i], true
}

// LookupGUID returns the type definition with the given GUID.
func (l *Lattice) LookupGUID(guid string) (TypeDef, bool) {
	i, ok := l.byGUID[guid]
	if !ok {
		return TypeDef{}, false
	}
	return l.defs[i], true
}

func (l *Lattice) index(name string) (int, error) {
	i, ok := l.byName[name]
	if !ok {
		return 0, &TypeNotFoundError{Name: name}
	}
	return i, nil
}

// chain returns the arena indexes from the root down to name.
func (l *Lattice) chain(name string) ([]int, error) {
	i, err := l.index(name)
	if err != nil {
		return nil, err
	}
	var out []int
	for ; i != noParent; i = l.parent[i] {
		out = append(out, i)
	}
	slices.Reverse(out)
	return out, nil
}

// Ancestors returns the supertype names of name, root-first, excluding name.
func (l *Lattice) Ancestors(name string) ([]string, error) {
	chain, err := l.chain(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(chain)-1)
	for _, i := range chain[:len(chain)-1] {
		out = append(out, l.defs[i].Name)
	}
	return out, nil
}

// ResolveAttributes returns every attribute of name and its ancestors,
// root-first: the root's own attributes come first and name's own last.
func (l *Lattice) ResolveAttributes(name string) ([]AttributeDef, error) {
	chain, err := l.chain(name)
	if err != nil {
		return nil, err
	}
	var out []AttributeDef
	for _, i := range chain {
		out = append(out, l.defs[i].Attributes...)
	}
	return out, nil
}

// IsSubtypeOf reports whether name equals ancestor or inherits from it.
// Unknown names are never subtypes.
func (l *Lattice) IsSubtypeOf(name, ancestor string) bool {
	i, ok := l.byName[name]
	if !ok {
		return false
	}
	for ; i != noParent; i = l.parent[i] {
		if l.defs[i].Name == ancestor {
			return true
		}
	}
	return false
}

// Subtypes returns the direct subtypes of name in name order.
func (l *Lattice) Subtypes(name string) ([]string, error) {
	i, err := l.index(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(l.children[i]))
	for j, c := range l.children[i] {
		out[j] = l.defs[c].Name
	}
	return out, nil
}

// Names returns the names of every type in the category, sorted.
// CategoryUnknown returns all names.
func (l *Lattice) Names(category instance.TypeCategory) []string {
	var out []string
	for _, d := range l.defs {
		if category == instance.CategoryUnknown || d.Category == category {
			out = append(out, d.Name)
		}
	}
	sort.Strings(out)
	return out
}

// TypeRef returns the instance type summary for name.
func (l *Lattice) TypeRef(name string) (instance.TypeRef, error) {
	i, err := l.index(name)
	if err != nil {
		return instance.TypeRef{}, err
	}
	ancestors, _ := l.Ancestors(name)
	d := l.defs[i]
	return instance.TypeRef{
		GUID:       d.GUID,
		Name:       d.Name,
		Category:   d.Category,
		Supertypes: ancestors,
	}, nil
}

// NameSet is a set of type names.
type NameSet map[string]struct{}

// NewNameSet returns a set holding names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// MostSpecificKnownSubtype searches downward from candidate, one subtype
// layer at a time, for a type in known. The candidate itself is checked
// first (depth 0). Within a layer, types are visited in name order, so the
// result is deterministic. Returns false when no type at any depth is known,
// including when candidate is not in the lattice.
func (l *Lattice) MostSpecificKnownSubtype(candidate string, known NameSet) (string, bool) {
	start, ok := l.byName[candidate]
	if !ok {
		return "", false
	}
	frontier := []int{start}
	for len(frontier) > 0 {
		var next []int
		for _, i := range frontier {
			if known.Has(l.defs[i].Name) {
				return l.defs[i].Name, true
			}
			next = append(next, l.children[i]...)
		}
		sort.Slice(next, func(a, b int) bool {
			return l.defs[next[a]].Name < l.defs[next[b]].Name
		})
		frontier = next
	}
	return "", false
}

// IsDefinitionError reports whether err came from an invalid definition
// (including cycles) rather than a lookup.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de) || IsCycle(err)
}

package probe

import (
	"context"
	"fmt"

	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/repository"
)

// SelectType picks the type to exercise for a configured, possibly
// abstract, type: the most specific subtype the repository supports.
func SelectType(types *lattice.Lattice, configured string, supported lattice.NameSet) (string, bool) {
	return types.MostSpecificKnownSubtype(configured, supported)
}

// Plan builds the test cases for cfg against the types gallery advertises.
// Configured types with no supported subtype get a case that records the
// gap as not supported.
func Plan(ctx context.Context, types *lattice.Lattice, gallery repository.TypeGallery, cfg *Config) ([]TestCase, lattice.NameSet, error) {
	names, err := gallery.SupportedTypes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list supported types: %w", err)
	}
	supported := lattice.NewNameSet(names...)

	workloads, err := cfg.ParsedWorkloads()
	if err != nil {
		return nil, nil, err
	}

	var (
		cases []TestCase
		seen  = map[string]bool{}
	)
	add := func(c TestCase) {
		if !seen[c.ID()] {
			seen[c.ID()] = true
			cases = append(cases, c)
		}
	}

	for _, configured := range cfg.EntityTypes {
		if err := checkCategory(types, configured, instance.CategoryEntity); err != nil {
			return nil, nil, err
		}
		sel, ok := SelectType(types, configured, supported)
		if !ok {
			add(&unresolvedCase{configured: configured, reason: "no supported type at or below " + configured})
			continue
		}
		for _, w := range workloads {
			if w == WorkloadRelationshipCreate {
				continue
			}
			c, err := NewEntityCase(w, sel)
			if err != nil {
				return nil, nil, err
			}
			add(c)
		}
	}

	wantRelationships := false
	for _, w := range workloads {
		wantRelationships = wantRelationships || w == WorkloadRelationshipCreate
	}
	if wantRelationships {
		for _, configured := range cfg.RelationshipTypes {
			if err := checkCategory(types, configured, instance.CategoryRelationship); err != nil {
				return nil, nil, err
			}
			sel, ok := SelectType(types, configured, supported)
			if !ok {
				add(&unresolvedCase{configured: configured, reason: "no supported type at or below " + configured})
				continue
			}
			def, _ := types.Lookup(sel)
			var ends [2]string
			resolved := true
			for i, want := range []string{def.End1.EntityType, def.End2.EntityType} {
				if ends[i], ok = SelectType(types, want, supported); !ok {
					add(&unresolvedCase{configured: configured, reason: fmt.Sprintf("no supported entity type for end %d (%s) of %s", i+1, want, sel)})
					resolved = false
					break
				}
			}
			if resolved {
				add(NewRelationshipCase(sel, ends[0], ends[1]))
			}
		}
	}
	return cases, supported, nil
}

func checkCategory(types *lattice.Lattice, name string, want instance.TypeCategory) error {
	def, ok := types.Lookup(name)
	if !ok {
		return nil // reported as unresolved
	}
	if def.Category != want {
		return fmt.Errorf("configured type %s is a %s type, want %s", name, def.Category, want)
	}
	return nil
}

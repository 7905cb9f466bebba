package memory

import (
	"context"
	"sort"

	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/repository"
)

// SupportedTypes returns the advertised type names, sorted.
func (r *Repository) SupportedTypes(ctx context.Context) ([]string, error) {
	if err := r.begin(ctx, repository.OpSupportedTypes); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(r.supported))
	for name := range r.supported {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// TypeDefByName returns a supported type definition.
func (r *Repository) TypeDefByName(ctx context.Context, name string) (lattice.TypeDef, error) {
	const op = repository.OpTypeDefByName
	if err := r.begin(ctx, op); err != nil {
		return lattice.TypeDef{}, err
	}
	def, ok := r.types.Lookup(name)
	if !ok || !r.supported.Has(name) {
		return lattice.TypeDef{}, repository.NotFound(op, "type %q", name)
	}
	return def, nil
}

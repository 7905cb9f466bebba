package probe

import (
	"context"
	"fmt"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/repository"
)

// relationshipCase creates relationships of one type between freshly
// created end entities of the selected end types.
type relationshipCase struct {
	typeName string
	ends     [2]string
}

// NewRelationshipCase returns the relationship-create case for typeName,
// creating end entities of end1 and end2.
func NewRelationshipCase(typeName, end1, end2 string) TestCase {
	return &relationshipCase{typeName: typeName, ends: [2]string{end1, end2}}
}

func (c *relationshipCase) ID() string       { return WorkloadRelationshipCreate.Profile() + "-" + c.typeName }
func (c *relationshipCase) TypeName() string { return c.typeName }
func (c *relationshipCase) Defaults() Attribution {
	return WorkloadRelationshipCreate.attr("")
}

// RelatedTypes are the end entity types the case creates instances of.
func (c *relationshipCase) RelatedTypes() []string { return c.ends[:] }

func (c *relationshipCase) Run(ctx context.Context, r *Run) error {
	def, ok := r.Types.Lookup(c.typeName)
	if !ok || def.Category != instance.CategoryRelationship {
		return fmt.Errorf("relationship type %q is not defined", c.typeName)
	}
	ends := c.ends
	r.Discover(ctx, "type", c.typeName)
	r.Discover(ctx, "end_types", []string{ends[0], ends[1]})

	props, err := r.Synth.AllProperties(c.typeName)
	if err != nil {
		return err
	}

	setupAt := WorkloadRelationshipCreate.attr("setup")
	at := WorkloadRelationshipCreate.attr("add-relationship")
	var created []string
	for i := 0; i < r.Instances; i++ {
		p1, err := r.entityProperties(ends[0], 2*i, false)
		if err != nil {
			return err
		}
		e1, err := r.addEntity(ctx, setupAt, ends[0], p1)
		if err != nil {
			return err
		}
		p2, err := r.entityProperties(ends[1], 2*i+1, false)
		if err != nil {
			return err
		}
		e2, err := r.addEntity(ctx, setupAt, ends[1], p2)
		if err != nil {
			return err
		}

		params := map[string]any{"type": c.typeName, "end1": e1.GUID, "end2": e2.GUID, "properties": props}
		res := invoke(ctx, r, Call{
			Method:      repository.OpAddRelationship,
			Description: "add " + c.typeName + " relationship",
			Params:      params,
			Attribution: at,
		}, func(ctx context.Context) (*instance.Relationship, error) {
			return r.Repo.AddRelationship(ctx, c.typeName, props, e1.GUID, e2.GUID)
		})
		if !res.OK() {
			return res.Stop()
		}
		rel := res.Value
		ok := rel != nil && rel.Type.Name == c.typeName &&
			rel.End1.Entity.GUID == e1.GUID && rel.End2.Entity.GUID == e2.GUID
		if err := r.Verify(ok, at, repository.OpAddRelationship, params,
			"returned relationship does not link the requested ends"); err != nil {
			return err
		}
		created = append(created, rel.GUID)
	}

	findAt := WorkloadRelationshipCreate.attr("find-by-type")
	found := invoke(ctx, r, Call{
		Method:      repository.OpFindRelationships,
		Description: "find " + c.typeName + " relationships",
		Params:      map[string]any{"type": c.typeName},
		Attribution: findAt,
	}, func(ctx context.Context) ([]*instance.Relationship, error) {
		return r.Repo.FindRelationships(ctx, repository.FindRequest{TypeName: c.typeName})
	})
	if !found.OK() {
		return found.Stop()
	}
	seen := map[string]bool{}
	for _, rel := range found.Value {
		seen[rel.GUID] = true
	}
	for _, guid := range created {
		if err := r.Verify(seen[guid], findAt, repository.OpFindRelationships, map[string]any{"guid": guid},
			"created relationship not returned by search"); err != nil {
			return err
		}
	}
	r.Discover(ctx, "created", len(created))

	if r.Events == nil {
		return nil
	}
	announced := map[string]bool{}
	for _, ev := range r.Events.OfKind(event.KindNewRelationship) {
		announced[ev.Subject()] = true
	}
	evAt := WorkloadRelationshipCreate.attr("new-relationship-event")
	for _, guid := range created {
		if err := r.Verify(announced[guid], evAt, repository.OpAddRelationship, map[string]any{"guid": guid},
			"created relationship was not announced"); err != nil {
			return err
		}
	}
	r.Pass(ctx, evAt, repository.OpAddRelationship, fmt.Sprintf("new-relationship event observed for %d instances", len(created)))
	return nil
}

// unresolvedCase stands in for a configured type the probe cannot
// exercise, so the gap shows up in the report.
type unresolvedCase struct {
	configured string
	reason     string
}

func (c *unresolvedCase) ID() string       { return "type-selection-" + c.configured }
func (c *unresolvedCase) TypeName() string { return c.configured }
func (c *unresolvedCase) Defaults() Attribution {
	return Attribution{ProfileID: "type-selection"}
}

func (c *unresolvedCase) Run(ctx context.Context, r *Run) error {
	return r.notSupported(ctx, Attribution{ProfileID: "type-selection", RequirementID: "most-specific-known-subtype"},
		repository.OpSupportedTypes, c.reason)
}

// notSupported records a not-supported assertion and returns the error
// that stops the case.
func (r *Run) notSupported(ctx context.Context, at Attribution, method repository.Operation, message string) error {
	r.record(ctx, ledger.Assertion{
		Message:       message,
		ProfileID:     at.ProfileID,
		RequirementID: at.RequirementID,
		Outcome:       ledger.OutcomeNotSupported,
		Method:        string(method),
	})
	return &notSupportedStop{method: method, err: fmt.Errorf("%s", message)}
}

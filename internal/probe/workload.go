package probe

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/search"
)

// Workload names a fixed sequence of protocol operations.
type Workload string

const (
	WorkloadCreate             Workload = "create"
	WorkloadSearch             Workload = "search"
	WorkloadUpdate             Workload = "update"
	WorkloadUndo               Workload = "undo"
	WorkloadClassify           Workload = "classify"
	WorkloadRetype             Workload = "retype"
	WorkloadRehome             Workload = "rehome"
	WorkloadReidentify         Workload = "reidentify"
	WorkloadDelete             Workload = "delete"
	WorkloadRestore            Workload = "restore"
	WorkloadPurge              Workload = "purge"
	WorkloadRelationshipCreate Workload = "relationship-create"
)

// EntityWorkloads is the default per-entity-type sequence. Order matters:
// later workloads operate on the population created by earlier ones.
var EntityWorkloads = []Workload{
	WorkloadCreate,
	WorkloadSearch,
	WorkloadUpdate,
	WorkloadUndo,
	WorkloadClassify,
	WorkloadRetype,
	WorkloadRehome,
	WorkloadReidentify,
	WorkloadDelete,
	WorkloadRestore,
	WorkloadPurge,
}

// Profile is the conformance profile the workload's assertions count toward.
func (w Workload) Profile() string {
	if w == WorkloadRelationshipCreate {
		return string(w)
	}
	return "entity-" + string(w)
}

func (w Workload) attr(requirement string) Attribution {
	return Attribution{ProfileID: w.Profile(), RequirementID: requirement}
}

// ParseWorkload accepts the workload names.
func ParseWorkload(s string) (Workload, error) {
	w := Workload(s)
	if w == WorkloadRelationshipCreate || slices.Contains(EntityWorkloads, w) {
		return w, nil
	}
	return "", fmt.Errorf("unknown workload %q", s)
}

type workloadFunc func(ctx context.Context, r *Run, typeName string) error

var entityWorkloads = map[Workload]workloadFunc{
	WorkloadCreate:     createEntities,
	WorkloadSearch:     searchEntities,
	WorkloadUpdate:     updateEntities,
	WorkloadUndo:       undoEntityUpdates,
	WorkloadClassify:   classifyEntities,
	WorkloadRetype:     retypeEntity,
	WorkloadRehome:     rehomeEntity,
	WorkloadReidentify: reidentifyEntity,
	WorkloadDelete:     deleteEntities,
	WorkloadRestore:    restoreEntities,
	WorkloadPurge:      purgeEntities,
}

// entityCase runs one entity workload against one type.
type entityCase struct {
	workload Workload
	typeName string
	run      workloadFunc
}

// NewEntityCase returns the test case for workload w on typeName.
func NewEntityCase(w Workload, typeName string) (TestCase, error) {
	fn, ok := entityWorkloads[w]
	if !ok {
		return nil, fmt.Errorf("workload %q does not apply to entity types", w)
	}
	return &entityCase{workload: w, typeName: typeName, run: fn}, nil
}

func (c *entityCase) ID() string            { return c.workload.Profile() + "-" + c.typeName }
func (c *entityCase) TypeName() string      { return c.typeName }
func (c *entityCase) Defaults() Attribution { return c.workload.attr("") }

func (c *entityCase) Run(ctx context.Context, r *Run) error {
	r.Discover(ctx, "type", c.typeName)
	return c.run(ctx, r, c.typeName)
}

// entityProperties synthesizes a full bag for a new instance. Unique string
// attributes are suffixed with the run and case, so instances never collide.
func (r *Run) entityProperties(typeName string, ordinal int, mandatoryOnly bool) (instance.Properties, error) {
	var (
		props instance.Properties
		err   error
	)
	if mandatoryOnly {
		props, err = r.Synth.MandatoryProperties(typeName)
	} else {
		props, err = r.Synth.PropertiesFor(typeName, ordinal)
	}
	if err != nil {
		return nil, err
	}
	attrs, err := r.Types.ResolveAttributes(typeName)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if !a.Unique {
			continue
		}
		if v, ok := props[a.Name].(instance.StringValue); ok {
			props[a.Name] = instance.StringValue(fmt.Sprintf("%s@%s/%s/%d", v, r.ID, r.Case.ID(), ordinal))
		}
	}
	return props, nil
}

func (r *Run) uniqueAttributes(typeName string) []string {
	attrs, err := r.Types.ResolveAttributes(typeName)
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range attrs {
		if a.Unique {
			out = append(out, a.Name)
		}
	}
	return out
}

// population finds up to limit instances of exactly typeName (0 = all).
// Subtype instances are excluded: they belong to another type's cases.
func (r *Run) population(ctx context.Context, at Attribution, typeName string, statuses []instance.Status, limit int) ([]*instance.Entity, error) {
	res := invoke(ctx, r, Call{
		Method:      repository.OpFindEntities,
		Description: "find " + typeName + " entities",
		Params:      map[string]any{"type": typeName, "statuses": statuses},
		Attribution: at,
	}, func(ctx context.Context) ([]*instance.Entity, error) {
		return r.Repo.FindEntities(ctx, repository.FindRequest{TypeName: typeName, Statuses: statuses})
	})
	if !res.OK() {
		return nil, res.Stop()
	}
	var out []*instance.Entity
	for _, e := range res.Value {
		if e.Type.Name != typeName {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// addEntity creates one instance as setup for a workload.
func (r *Run) addEntity(ctx context.Context, at Attribution, typeName string, props instance.Properties) (*instance.Entity, error) {
	res := invoke(ctx, r, Call{
		Method:      repository.OpAddEntity,
		Description: "add " + typeName + " entity",
		Params:      map[string]any{"type": typeName, "properties": props},
		Attribution: at,
	}, func(ctx context.Context) (*instance.Entity, error) {
		return r.Repo.AddEntity(ctx, typeName, props, nil)
	})
	if !res.OK() {
		return nil, res.Stop()
	}
	e := res.Value
	params := map[string]any{"type": typeName}
	if err := r.Verify(e != nil && e.Type.Name == typeName, at, repository.OpAddEntity, params,
		"returned entity does not have type %s", typeName); err != nil {
		return nil, err
	}
	if err := r.Verify(e.Status == instance.StatusActive && e.Version > 0 && instance.ValidGUID(e.GUID), at, repository.OpAddEntity, params,
		"new entity %q has status %s and version %d", e.GUID, e.Status, e.Version); err != nil {
		return nil, err
	}
	return e, nil
}

// oneEntity returns an existing instance of typeName or creates one.
func (r *Run) oneEntity(ctx context.Context, at Attribution, typeName string) (*instance.Entity, error) {
	pop, err := r.population(ctx, at, typeName, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(pop) > 0 {
		return pop[0], nil
	}
	props, err := r.entityProperties(typeName, 0, false)
	if err != nil {
		return nil, err
	}
	return r.addEntity(ctx, at, typeName, props)
}

func createEntities(ctx context.Context, r *Run, typeName string) error {
	at := WorkloadCreate.attr("add-entity")
	var created []string
	for i := 0; i < r.Instances; i++ {
		props, err := r.entityProperties(typeName, i, false)
		if err != nil {
			return err
		}
		e, err := r.addEntity(ctx, at, typeName, props)
		if err != nil {
			return err
		}
		created = append(created, e.GUID)
	}
	r.Discover(ctx, "created", len(created))

	if r.Events == nil {
		return nil
	}
	announced := map[string]bool{}
	for _, ev := range r.Events.OfKind(event.KindNewEntity) {
		announced[ev.Subject()] = true
	}
	var missing []string
	for _, guid := range created {
		if !announced[guid] {
			missing = append(missing, guid)
		}
	}
	evAt := WorkloadCreate.attr("new-entity-event")
	if err := r.Verify(len(missing) == 0, evAt, repository.OpAddEntity, map[string]any{"missing": missing},
		"%d of %d created entities were not announced", len(missing), len(created)); err != nil {
		return err
	}
	r.Pass(ctx, evAt, repository.OpAddEntity, fmt.Sprintf("new-entity event observed for %d instances", len(created)))
	return nil
}

func searchEntities(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadSearch.attr("find-by-type"), typeName, nil, 0)
	if err != nil {
		return err
	}
	r.Discover(ctx, "found", len(pop))
	if len(pop) > r.batch() {
		pop = pop[:r.batch()]
	}
	if pop, err = r.topUp(ctx, WorkloadSearch.attr("add-entity"), typeName, pop, r.batch()); err != nil {
		return err
	}

	unique := r.uniqueAttributes(typeName)
	at := WorkloadSearch.attr("find-by-property")
	for _, e := range pop {
		var (
			name  string
			value instance.PropertyValue
		)
		for _, u := range unique {
			if v, ok := e.Properties[u]; ok {
				name, value = u, v
				break
			}
		}
		if name == "" {
			continue
		}
		pred := search.Equals{Property: name, Value: value}
		res := invoke(ctx, r, Call{
			Method:      repository.OpFindEntities,
			Description: "find " + typeName + " by " + name,
			Params:      map[string]any{"type": typeName, "predicate": search.Describe(pred)},
			Attribution: at,
		}, func(ctx context.Context) ([]*instance.Entity, error) {
			return r.Repo.FindEntities(ctx, repository.FindRequest{TypeName: typeName, Predicate: pred})
		})
		if !res.OK() {
			return res.Stop()
		}
		found := len(res.Value) == 1 && res.Value[0].GUID == e.GUID
		if err := r.Verify(found, at, repository.OpFindEntities, map[string]any{"guid": e.GUID, name: value},
			"unique property search returned %d results", len(res.Value)); err != nil {
			return err
		}
	}
	return nil
}

// batch is how many instances a batched workload touches.
func (r *Run) batch() int { return max(r.Instances, 1) }

// topUp creates instances until pop holds want of them, so a batched
// workload exercises its operation whatever ran before it.
func (r *Run) topUp(ctx context.Context, at Attribution, typeName string, pop []*instance.Entity, want int) ([]*instance.Entity, error) {
	for i := len(pop); i < want; i++ {
		props, err := r.entityProperties(typeName, i, false)
		if err != nil {
			return nil, err
		}
		e, err := r.addEntity(ctx, at, typeName, props)
		if err != nil {
			return nil, err
		}
		pop = append(pop, e)
	}
	return pop, nil
}

// updateEntity replaces the synthesized properties of e, keeping its unique
// attributes, and checks that the version advanced.
func (r *Run) updateEntity(ctx context.Context, w Workload, requirement, typeName string, e *instance.Entity) (*instance.Entity, error) {
	props, err := r.Synth.AllProperties(typeName)
	if err != nil {
		return nil, err
	}
	for _, u := range r.uniqueAttributes(typeName) {
		if v, ok := e.Properties[u]; ok {
			props[u] = v
		} else {
			delete(props, u)
		}
	}
	guid, before := e.GUID, e.Version
	res := invoke(ctx, r, Call{
		Method:      repository.OpUpdateEntityProperties,
		Description: "update " + typeName + " properties",
		Params:      map[string]any{"type": typeName, "guid": guid, "properties": props},
		Attribution: w.attr(requirement),
	}, func(ctx context.Context) (*instance.Entity, error) {
		return r.Repo.UpdateEntityProperties(ctx, guid, props)
	})
	if !res.OK() {
		return nil, res.Stop()
	}
	if err := r.Verify(res.Value != nil && res.Value.Version > before, w.attr("version-increases"),
		repository.OpUpdateEntityProperties, map[string]any{"guid": guid, "version": before},
		"version did not increase past %d", before); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// deleteEntity soft-deletes guid and checks the returned status.
func (r *Run) deleteEntity(ctx context.Context, at Attribution, typeName, guid string) error {
	res := invoke(ctx, r, Call{
		Method:      repository.OpDeleteEntity,
		Description: "delete " + typeName + " entity",
		Params:      map[string]any{"guid": guid},
		Attribution: at,
	}, func(ctx context.Context) (*instance.Entity, error) {
		return r.Repo.DeleteEntity(ctx, guid)
	})
	if !res.OK() {
		return res.Stop()
	}
	return r.Verify(res.Value != nil && res.Value.IsDeleted(), at, repository.OpDeleteEntity, map[string]any{"guid": guid},
		"deleted entity does not report deleted status")
}

func updateEntities(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadUpdate.attr("find-by-type"), typeName, nil, r.batch())
	if err != nil {
		return err
	}
	if pop, err = r.topUp(ctx, WorkloadUpdate.attr("add-entity"), typeName, pop, r.batch()); err != nil {
		return err
	}
	for _, e := range pop {
		if _, err := r.updateEntity(ctx, WorkloadUpdate, "update-properties", typeName, e); err != nil {
			return err
		}
	}
	r.Discover(ctx, "updated", len(pop))
	return nil
}

func undoEntityUpdates(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadUndo.attr("find-by-type"), typeName, nil, 0)
	if err != nil {
		return err
	}
	var targets []*instance.Entity
	for _, e := range pop {
		if len(targets) == r.batch() {
			break
		}
		if e.Version >= 2 {
			targets = append(targets, e)
		}
	}
	// Entities with no prior version get one update to undo.
	if short := r.batch() - len(targets); short > 0 {
		fresh, err := r.topUp(ctx, WorkloadUndo.attr("add-entity"), typeName, nil, short)
		if err != nil {
			return err
		}
		for _, e := range fresh {
			updated, err := r.updateEntity(ctx, WorkloadUndo, "update-before-undo", typeName, e)
			if err != nil {
				return err
			}
			targets = append(targets, updated)
		}
	}

	at := WorkloadUndo.attr("undo-update")
	for _, e := range targets {
		guid, before := e.GUID, e.Version
		res := invoke(ctx, r, Call{
			Method:      repository.OpUndoEntityUpdate,
			Description: "undo " + typeName + " update",
			Params:      map[string]any{"guid": guid},
			Attribution: at,
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.UndoEntityUpdate(ctx, guid)
		})
		if !res.OK() {
			return res.Stop()
		}
		if err := r.Verify(res.Value != nil && res.Value.Version > before, WorkloadUndo.attr("version-increases"),
			repository.OpUndoEntityUpdate, map[string]any{"guid": guid, "version": before},
			"undo did not advance the version past %d", before); err != nil {
			return err
		}
	}
	r.Discover(ctx, "undone", len(targets))
	return nil
}

func classifyEntities(ctx context.Context, r *Run, typeName string) error {
	cls := r.Classification
	if cls == "" {
		r.Discover(ctx, "skipped", "no classification configured")
		return nil
	}
	def, ok := r.Types.Lookup(cls)
	if !ok || def.Category != instance.CategoryClassification {
		return fmt.Errorf("classification type %q is not defined", cls)
	}
	if !classifies(r.Types, def, typeName) {
		r.Discover(ctx, "skipped", fmt.Sprintf("%s does not apply to %s", cls, typeName))
		return nil
	}
	props, err := r.Synth.AllProperties(cls)
	if err != nil {
		return err
	}

	pop, err := r.population(ctx, WorkloadClassify.attr("find-by-type"), typeName, nil, r.batch())
	if err != nil {
		return err
	}
	if pop, err = r.topUp(ctx, WorkloadClassify.attr("add-entity"), typeName, pop, r.batch()); err != nil {
		return err
	}
	var targets []string
	for _, e := range pop {
		if _, already := e.Classification(cls); !already {
			targets = append(targets, e.GUID)
		}
	}

	at := WorkloadClassify.attr("classify")
	for _, guid := range targets {
		res := invoke(ctx, r, Call{
			Method:      repository.OpClassifyEntity,
			Description: "classify " + typeName + " as " + cls,
			Params:      map[string]any{"guid": guid, "classification": cls, "properties": props},
			Attribution: at,
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.ClassifyEntity(ctx, guid, cls, props)
		})
		if !res.OK() {
			return res.Stop()
		}
		attached := false
		if res.Value != nil {
			_, attached = res.Value.Classification(cls)
		}
		if err := r.Verify(attached, at, repository.OpClassifyEntity, map[string]any{"guid": guid},
			"classification %s missing from returned entity", cls); err != nil {
			return err
		}
	}

	findAt := WorkloadClassify.attr("find-by-classification")
	found := invoke(ctx, r, Call{
		Method:      repository.OpFindEntitiesByClassification,
		Description: "find " + typeName + " entities classified " + cls,
		Params:      map[string]any{"type": typeName, "classification": cls},
		Attribution: findAt,
	}, func(ctx context.Context) ([]*instance.Entity, error) {
		return r.Repo.FindEntitiesByClassification(ctx, cls, repository.FindRequest{TypeName: typeName})
	})
	if !found.OK() {
		return found.Stop()
	}
	seen := map[string]bool{}
	for _, e := range found.Value {
		seen[e.GUID] = true
	}
	for _, guid := range targets {
		if err := r.Verify(seen[guid], findAt, repository.OpFindEntitiesByClassification, map[string]any{"guid": guid},
			"classified entity not returned by classification search"); err != nil {
			return err
		}
	}

	for _, guid := range targets {
		res := invoke(ctx, r, Call{
			Method:      repository.OpUpdateEntityClassification,
			Description: "update " + cls + " classification",
			Params:      map[string]any{"guid": guid, "classification": cls},
			Attribution: WorkloadClassify.attr("reclassify"),
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.UpdateEntityClassification(ctx, guid, cls, props)
		})
		if !res.OK() {
			return res.Stop()
		}
	}
	for _, guid := range targets {
		res := invoke(ctx, r, Call{
			Method:      repository.OpDeclassifyEntity,
			Description: "declassify " + typeName,
			Params:      map[string]any{"guid": guid, "classification": cls},
			Attribution: WorkloadClassify.attr("declassify"),
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.DeclassifyEntity(ctx, guid, cls)
		})
		if !res.OK() {
			return res.Stop()
		}
	}
	r.Discover(ctx, "classified", len(targets))
	return nil
}

func classifies(types *lattice.Lattice, def lattice.TypeDef, entityType string) bool {
	if len(def.ValidEntityTypes) == 0 {
		return true
	}
	for _, t := range def.ValidEntityTypes {
		if types.IsSubtypeOf(entityType, t) {
			return true
		}
	}
	return false
}

// retypeTarget picks a supported type in typeName's lineage that a
// mandatory-only instance can move to: the supertype if supported, otherwise
// the first supported subtype that demands no extra mandatory attributes.
func (r *Run) retypeTarget(typeName string) (string, bool) {
	def, ok := r.Types.Lookup(typeName)
	if !ok {
		return "", false
	}
	if def.Supertype != "" && r.Supported.Has(def.Supertype) {
		return def.Supertype, true
	}
	own, err := r.Synth.MandatoryProperties(typeName)
	if err != nil {
		return "", false
	}
	subs, err := r.Types.Subtypes(typeName)
	if err != nil {
		return "", false
	}
	slices.Sort(subs)
	for _, sub := range subs {
		if sub == typeName || !r.Supported.Has(sub) {
			continue
		}
		need, err := r.Synth.MandatoryProperties(sub)
		if err != nil {
			continue
		}
		fits := true
		for k := range need {
			if _, ok := own[k]; !ok {
				fits = false
				break
			}
		}
		if fits {
			return sub, true
		}
	}
	return "", false
}

func retypeEntity(ctx context.Context, r *Run, typeName string) error {
	target, ok := r.retypeTarget(typeName)
	if !ok {
		r.Discover(ctx, "skipped", "no supported type in the lineage of "+typeName)
		return nil
	}
	props, err := r.entityProperties(typeName, 0, true)
	if err != nil {
		return err
	}
	e, err := r.addEntity(ctx, WorkloadRetype.attr("setup"), typeName, props)
	if err != nil {
		return err
	}

	at := WorkloadRetype.attr("retype")
	guid, version := e.GUID, e.Version
	for _, to := range []string{target, typeName} {
		res := invoke(ctx, r, Call{
			Method:      repository.OpRetypeEntity,
			Description: "retype entity to " + to,
			Params:      map[string]any{"guid": guid, "type": to},
			Attribution: at,
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.RetypeEntity(ctx, guid, to)
		})
		if !res.OK() {
			return res.Stop()
		}
		got := res.Value
		if err := r.Verify(got != nil && got.Type.Name == to && got.GUID == guid && got.Version > version, at,
			repository.OpRetypeEntity, map[string]any{"guid": guid, "type": to},
			"entity was not retyped to %s with its GUID kept and version advanced", to); err != nil {
			return err
		}
		version = got.Version
	}
	r.Discover(ctx, "retype_target", target)
	return nil
}

func rehomeEntity(ctx context.Context, r *Run, typeName string) error {
	e, err := r.oneEntity(ctx, WorkloadRehome.attr("setup"), typeName)
	if err != nil {
		return err
	}

	at := WorkloadRehome.attr("rehome")
	remote := r.Repo.CollectionID() + "-probe-remote"
	guid, version := e.GUID, e.Version
	for _, home := range []struct{ id, name string }{
		{remote, "probe remote collection"},
		{e.HomeCollectionID, e.HomeCollectionName},
	} {
		res := invoke(ctx, r, Call{
			Method:      repository.OpRehomeEntity,
			Description: "rehome entity to " + home.id,
			Params:      map[string]any{"guid": guid, "home": home.id},
			Attribution: at,
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.RehomeEntity(ctx, guid, home.id, home.name)
		})
		if !res.OK() {
			return res.Stop()
		}
		got := res.Value
		if err := r.Verify(got != nil && got.HomeCollectionID == home.id && got.GUID == guid && got.Version > version, at,
			repository.OpRehomeEntity, map[string]any{"guid": guid, "home": home.id},
			"entity was not rehomed to %s with its GUID kept and version advanced", home.id); err != nil {
			return err
		}
		version = got.Version
	}
	return nil
}

func reidentifyEntity(ctx context.Context, r *Run, typeName string) error {
	e, err := r.oneEntity(ctx, WorkloadReidentify.attr("setup"), typeName)
	if err != nil {
		return err
	}

	at := WorkloadReidentify.attr("reidentify")
	oldGUID, newGUID := e.GUID, r.GUIDs.NewGUID()
	res := invoke(ctx, r, Call{
		Method:      repository.OpReidentifyEntity,
		Description: "reidentify " + typeName + " entity",
		Params:      map[string]any{"guid": oldGUID, "new_guid": newGUID},
		Attribution: at,
	}, func(ctx context.Context) (*instance.Entity, error) {
		return r.Repo.ReidentifyEntity(ctx, oldGUID, newGUID)
	})
	if !res.OK() {
		return res.Stop()
	}
	params := map[string]any{"guid": oldGUID, "new_guid": newGUID}
	if err := r.Verify(res.Value != nil && res.Value.GUID == newGUID, at, repository.OpReidentifyEntity, params,
		"returned entity does not carry the new GUID"); err != nil {
		return err
	}

	lookupAt := WorkloadReidentify.attr("old-guid-retired")
	old := invoke(ctx, r, Call{
		Method:      repository.OpGetEntity,
		Description: "get entity by retired GUID",
		Params:      params,
		Attribution: lookupAt,
	}, func(ctx context.Context) (bool, error) {
		_, err := r.Repo.GetEntity(ctx, oldGUID)
		if repository.IsNotFound(err) {
			return false, nil
		}
		return err == nil, err
	})
	if !old.OK() {
		return old.Stop()
	}
	return r.Verify(!old.Value, lookupAt, repository.OpGetEntity, params, "retired GUID still resolves")
}

func deleteEntities(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadDelete.attr("find-by-type"), typeName, nil, r.batch())
	if err != nil {
		return err
	}
	if pop, err = r.topUp(ctx, WorkloadDelete.attr("add-entity"), typeName, pop, r.batch()); err != nil {
		return err
	}
	at := WorkloadDelete.attr("soft-delete")
	for _, e := range pop {
		if err := r.deleteEntity(ctx, at, typeName, e.GUID); err != nil {
			return err
		}
	}
	r.Discover(ctx, "deleted", len(pop))
	return nil
}

func restoreEntities(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadRestore.attr("find-deleted"), typeName, []instance.Status{instance.StatusDeleted}, r.batch())
	if err != nil {
		return err
	}
	// Too few deleted instances: create and delete the rest.
	if short := r.batch() - len(pop); short > 0 {
		fresh, err := r.topUp(ctx, WorkloadRestore.attr("add-entity"), typeName, nil, short)
		if err != nil {
			return err
		}
		for _, e := range fresh {
			if err := r.deleteEntity(ctx, WorkloadRestore.attr("delete-before-restore"), typeName, e.GUID); err != nil {
				return err
			}
		}
		pop = append(pop, fresh...)
	}
	at := WorkloadRestore.attr("restore")
	for _, e := range pop {
		guid := e.GUID
		res := invoke(ctx, r, Call{
			Method:      repository.OpRestoreEntity,
			Description: "restore " + typeName + " entity",
			Params:      map[string]any{"guid": guid},
			Attribution: at,
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.RestoreEntity(ctx, guid)
		})
		if !res.OK() {
			return res.Stop()
		}
		if err := r.Verify(res.Value != nil && !res.Value.IsDeleted(), at, repository.OpRestoreEntity, map[string]any{"guid": guid},
			"restored entity is still deleted"); err != nil {
			return err
		}
	}
	r.Discover(ctx, "restored", len(pop))
	return nil
}

func purgeEntities(ctx context.Context, r *Run, typeName string) error {
	pop, err := r.population(ctx, WorkloadPurge.attr("find-by-type"), typeName, nil, r.batch())
	if err != nil {
		return err
	}
	if pop, err = r.topUp(ctx, WorkloadPurge.attr("add-entity"), typeName, pop, r.batch()); err != nil {
		return err
	}
	for _, e := range pop {
		guid := e.GUID
		del := invoke(ctx, r, Call{
			Method:      repository.OpDeleteEntity,
			Description: "delete " + typeName + " entity before purge",
			Params:      map[string]any{"guid": guid},
			Attribution: WorkloadPurge.attr("soft-delete"),
		}, func(ctx context.Context) (*instance.Entity, error) {
			return r.Repo.DeleteEntity(ctx, guid)
		})
		if !del.OK() {
			return del.Stop()
		}

		at := WorkloadPurge.attr("purge")
		res := invoke(ctx, r, Call{
			Method:      repository.OpPurgeEntity,
			Description: "purge " + typeName + " entity",
			Params:      map[string]any{"guid": guid},
			Attribution: at,
		}, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.Repo.PurgeEntity(ctx, guid)
		})
		if !res.OK() {
			return res.Stop()
		}

		gone := invoke(ctx, r, Call{
			Method:      repository.OpGetEntity,
			Description: "get purged entity",
			Params:      map[string]any{"guid": guid},
			Attribution: at,
		}, func(ctx context.Context) (bool, error) {
			_, err := r.Repo.GetEntity(ctx, guid)
			if repository.IsNotFound(err) {
				return true, nil
			}
			return false, err
		})
		if !gone.OK() {
			return gone.Stop()
		}
		if err := r.Verify(gone.Value, at, repository.OpGetEntity, map[string]any{"guid": guid},
			"purged entity still resolves"); err != nil {
			return err
		}
	}
	r.Discover(ctx, "purged", len(pop))
	return nil
}

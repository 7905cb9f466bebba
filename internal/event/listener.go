package event

import (
	"context"
	"fmt"
)

// Listener consumes lifecycle events. There is one method per kind, and a
// listener must implement all of them: a kind it does not act on is
// declined explicitly by returning nil (see Decline).
type Listener interface {
	OnNewEntity(ctx context.Context, origin Originator, p NewEntity) error
	OnUpdatedEntity(ctx context.Context, origin Originator, p UpdatedEntity) error
	OnUndoneEntity(ctx context.Context, origin Originator, p UndoneEntity) error
	OnClassifiedEntity(ctx context.Context, origin Originator, p ClassifiedEntity) error
	OnDeclassifiedEntity(ctx context.Context, origin Originator, p DeclassifiedEntity) error
	OnReclassifiedEntity(ctx context.Context, origin Originator, p ReclassifiedEntity) error
	OnDeletedEntity(ctx context.Context, origin Originator, p DeletedEntity) error
	OnPurgedEntity(ctx context.Context, origin Originator, p PurgedEntity) error
	OnRestoredEntity(ctx context.Context, origin Originator, p RestoredEntity) error
	OnRetypedEntity(ctx context.Context, origin Originator, p RetypedEntity) error
	OnRehomedEntity(ctx context.Context, origin Originator, p RehomedEntity) error
	OnReidentifiedEntity(ctx context.Context, origin Originator, p ReidentifiedEntity) error
	OnRefreshEntityRequest(ctx context.Context, origin Originator, p RefreshEntityRequest) error
	OnRefreshedEntity(ctx context.Context, origin Originator, p RefreshedEntity) error

	OnNewRelationship(ctx context.Context, origin Originator, p NewRelationship) error
	OnUpdatedRelationship(ctx context.Context, origin Originator, p UpdatedRelationship) error
	OnUndoneRelationship(ctx context.Context, origin Originator, p UndoneRelationship) error
	OnDeletedRelationship(ctx context.Context, origin Originator, p DeletedRelationship) error
	OnPurgedRelationship(ctx context.Context, origin Originator, p PurgedRelationship) error
	OnRestoredRelationship(ctx context.Context, origin Originator, p RestoredRelationship) error
	OnRetypedRelationship(ctx context.Context, origin Originator, p RetypedRelationship) error
	OnRehomedRelationship(ctx context.Context, origin Originator, p RehomedRelationship) error
	OnReidentifiedRelationship(ctx context.Context, origin Originator, p ReidentifiedRelationship) error
	OnRefreshRelationshipRequest(ctx context.Context, origin Originator, p RefreshRelationshipRequest) error
	OnRefreshedRelationship(ctx context.Context, origin Originator, p RefreshedRelationship) error

	OnConflictingInstances(ctx context.Context, origin Originator, p ConflictingInstances) error
	OnConflictingType(ctx context.Context, origin Originator, p ConflictingType) error
}

// Dispatch calls the listener method matching e's kind.
func Dispatch(ctx context.Context, l Listener, e Event) error {
	o := e.Originator
	switch p := e.Payload.(type) {
	case NewEntity:
		return l.OnNewEntity(ctx, o, p)
	case UpdatedEntity:
		return l.OnUpdatedEntity(ctx, o, p)
	case UndoneEntity:
		return l.OnUndoneEntity(ctx, o, p)
	case ClassifiedEntity:
		return l.OnClassifiedEntity(ctx, o, p)
	case DeclassifiedEntity:
		return l.OnDeclassifiedEntity(ctx, o, p)
	case ReclassifiedEntity:
		return l.OnReclassifiedEntity(ctx, o, p)
	case DeletedEntity:
		return l.OnDeletedEntity(ctx, o, p)
	case PurgedEntity:
		return l.OnPurgedEntity(ctx, o, p)
	case RestoredEntity:
		return l.OnRestoredEntity(ctx, o, p)
	case RetypedEntity:
		return l.OnRetypedEntity(ctx, o, p)
	case RehomedEntity:
		return l.OnRehomedEntity(ctx, o, p)
	case ReidentifiedEntity:
		return l.OnReidentifiedEntity(ctx, o, p)
	case RefreshEntityRequest:
		return l.OnRefreshEntityRequest(ctx, o, p)
	case RefreshedEntity:
		return l.OnRefreshedEntity(ctx, o, p)

	case NewRelationship:
		return l.OnNewRelationship(ctx, o, p)
	case UpdatedRelationship:
		return l.OnUpdatedRelationship(ctx, o, p)
	case UndoneRelationship:
		return l.OnUndoneRelationship(ctx, o, p)
	case DeletedRelationship:
		return l.OnDeletedRelationship(ctx, o, p)
	case PurgedRelationship:
		return l.OnPurgedRelationship(ctx, o, p)
	case RestoredRelationship:
		return l.OnRestoredRelationship(ctx, o, p)
	case RetypedRelationship:
		return l.OnRetypedRelationship(ctx, o, p)
	case RehomedRelationship:
		return l.OnRehomedRelationship(ctx, o, p)
	case ReidentifiedRelationship:
		return l.OnReidentifiedRelationship(ctx, o, p)
	case RefreshRelationshipRequest:
		return l.OnRefreshRelationshipRequest(ctx, o, p)
	case RefreshedRelationship:
		return l.OnRefreshedRelationship(ctx, o, p)

	case ConflictingInstances:
		return l.OnConflictingInstances(ctx, o, p)
	case ConflictingType:
		return l.OnConflictingType(ctx, o, p)
	default:
		return fmt.Errorf("dispatch: unknown payload %T", e.Payload)
	}
}

// Decline implements every Listener method as an explicit no-op. Embed it
// and override the kinds the listener acts on.
type Decline struct{}

func (Decline) OnNewEntity(context.Context, Originator, NewEntity) error             { return nil }
func (Decline) OnUpdatedEntity(context.Context, Originator, UpdatedEntity) error     { return nil }
func (Decline) OnUndoneEntity(context.Context, Originator, UndoneEntity) error       { return nil }
func (Decline) OnClassifiedEntity(context.Context, Originator, ClassifiedEntity) error {
	return nil
}
func (Decline) OnDeclassifiedEntity(context.Context, Originator, DeclassifiedEntity) error {
	return nil
}
func (Decline) OnReclassifiedEntity(context.Context, Originator, ReclassifiedEntity) error {
	return nil
}
func (Decline) OnDeletedEntity(context.Context, Originator, DeletedEntity) error   { return nil }
func (Decline) OnPurgedEntity(context.Context, Originator, PurgedEntity) error     { return nil }
func (Decline) OnRestoredEntity(context.Context, Originator, RestoredEntity) error { return nil }
func (Decline) OnRetypedEntity(context.Context, Originator, RetypedEntity) error   { return nil }
func (Decline) OnRehomedEntity(context.Context, Originator, RehomedEntity) error   { return nil }
func (Decline) OnReidentifiedEntity(context.Context, Originator, ReidentifiedEntity) error {
	return nil
}
func (Decline) OnRefreshEntityRequest(context.Context, Originator, RefreshEntityRequest) error {
	return nil
}
func (Decline) OnRefreshedEntity(context.Context, Originator, RefreshedEntity) error { return nil }

func (Decline) OnNewRelationship(context.Context, Originator, NewRelationship) error { return nil }
func (Decline) OnUpdatedRelationship(context.Context, Originator, UpdatedRelationship) error {
	return nil
}
func (Decline) OnUndoneRelationship(context.Context, Originator, UndoneRelationship) error {
	return nil
}
func (Decline) OnDeletedRelationship(context.Context, Originator, DeletedRelationship) error {
	return nil
}
func (Decline) OnPurgedRelationship(context.Context, Originator, PurgedRelationship) error {
	return nil
}
func (Decline) OnRestoredRelationship(context.Context, Originator, RestoredRelationship) error {
	return nil
}
func (Decline) OnRetypedRelationship(context.Context, Originator, RetypedRelationship) error {
	return nil
}
func (Decline) OnRehomedRelationship(context.Context, Originator, RehomedRelationship) error {
	return nil
}
func (Decline) OnReidentifiedRelationship(context.Context, Originator, ReidentifiedRelationship) error {
	return nil
}
func (Decline) OnRefreshRelationshipRequest(context.Context, Originator, RefreshRelationshipRequest) error {
	return nil
}
func (Decline) OnRefreshedRelationship(context.Context, Originator, RefreshedRelationship) error {
	return nil
}

func (Decline) OnConflictingInstances(context.Context, Originator, ConflictingInstances) error {
	return nil
}
func (Decline) OnConflictingType(context.Context, Originator, ConflictingType) error { return nil }

var _ Listener = Decline{}

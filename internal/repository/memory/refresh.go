package memory

import (
	"context"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/repository"
)

// Responder answers cohort refresh requests for instances homed in the
// repository by republishing their current version. Requests for other
// home collections are declined.
type Responder struct {
	event.Decline
	repo *Repository
}

// Responder returns the repository's refresh listener. Subscribe it to the
// cohort topic.
func (r *Repository) Responder() *Responder {
	return &Responder{repo: r}
}

// OnRefreshEntityRequest republishes a locally homed entity.
func (s *Responder) OnRefreshEntityRequest(ctx context.Context, _ event.Originator, p event.RefreshEntityRequest) error {
	r := s.repo
	if p.HomeCollectionID != r.id {
		return nil
	}
	const op = repository.OpGetEntity

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.entities[p.GUID]
	if !ok {
		r.logger.Info("refresh requested for unknown entity", "guid", p.GUID)
		return nil
	}
	r.publish(ctx, op, event.RefreshedEntity{Entity: rec.current.Clone()})
	return nil
}

// OnRefreshRelationshipRequest republishes a locally homed relationship.
func (s *Responder) OnRefreshRelationshipRequest(ctx context.Context, _ event.Originator, p event.RefreshRelationshipRequest) error {
	r := s.repo
	if p.HomeCollectionID != r.id {
		return nil
	}
	const op = repository.OpGetRelationship

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.relationships[p.GUID]
	if !ok {
		r.logger.Info("refresh requested for unknown relationship", "guid", p.GUID)
		return nil
	}
	r.publish(ctx, op, event.RefreshedRelationship{Relationship: rec.current.Clone()})
	return nil
}

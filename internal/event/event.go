package event

import (
	"errors"
	"fmt"

	"github.com/roach88/cohort/internal/instance"
)

// Originator identifies the cohort member that produced an event.
type Originator struct {
	SourceName       string `json:"source_name"`
	HomeCollectionID string `json:"home_collection_id"`
	ServerName       string `json:"server_name"`
	ServerType       string `json:"server_type"`
	Organization     string `json:"organization,omitempty"`
}

// Event is one lifecycle notification.
type Event struct {
	ID         string     `json:"id"` // content-addressed, see New
	Originator Originator `json:"originator"`
	Payload    Payload    `json:"payload"`
}

// Kind returns the payload's kind.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Subject returns the GUID the event is about.
func (e Event) Subject() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Subject()
}

// New validates payload and returns an event with a content id.
// The id is stable for the same originator, kind, subject, version and
// properties, so a redelivered event is recognisable.
func New(origin Originator, payload Payload) (Event, error) {
	if err := validatePayload(payload); err != nil {
		return Event{}, err
	}
	id, err := instance.ContentID(instance.DomainEvent, digest(origin, payload))
	if err != nil {
		return Event{}, fmt.Errorf("event id: %w", err)
	}
	return Event{ID: id, Originator: origin, Payload: payload}, nil
}

// MustNew is like New but panics on error. For tests and literals only.
func MustNew(origin Originator, payload Payload) Event {
	e, err := New(origin, payload)
	if err != nil {
		panic(err)
	}
	return e
}

// Validate checks the event's originator and payload shape.
func Validate(e Event) error {
	if e.Originator.SourceName == "" && e.Originator.ServerName == "" {
		return &InvalidError{Kind: e.Kind(), Reason: "originator has no source or server name"}
	}
	return validatePayload(e.Payload)
}

func digest(origin Originator, p Payload) map[string]any {
	d := map[string]any{
		"kind":    string(p.Kind()),
		"source":  origin.SourceName,
		"server":  origin.ServerName,
		"home":    origin.HomeCollectionID,
		"subject": p.Subject(),
	}
	var h *instance.Header
	var props instance.Properties
	if e := snapshotEntity(p); e != nil {
		h, props = &e.Header, e.Properties
	} else if r := snapshotRelationship(p); r != nil {
		h, props = &r.Header, r.Properties
	}
	if h != nil {
		d["guid"] = h.GUID
		d["type"] = h.Type.Name
		d["version"] = h.Version
		d["status"] = string(h.Status)
		d["properties"] = props
	}
	return d
}

// snapshotEntity returns the entity snapshot carried by p, if any.
func snapshotEntity(p Payload) *instance.Entity {
	switch v := p.(type) {
	case NewEntity:
		return v.Entity
	case UpdatedEntity:
		return v.New
	case UndoneEntity:
		return v.Entity
	case ClassifiedEntity:
		return v.Entity
	case DeclassifiedEntity:
		return v.Entity
	case ReclassifiedEntity:
		return v.Entity
	case DeletedEntity:
		return v.Entity
	case RestoredEntity:
		return v.Entity
	case RetypedEntity:
		return v.Entity
	case RehomedEntity:
		return v.Entity
	case ReidentifiedEntity:
		return v.Entity
	case RefreshedEntity:
		return v.Entity
	}
	return nil
}

// snapshotRelationship returns the relationship snapshot carried by p, if any.
func snapshotRelationship(p Payload) *instance.Relationship {
	switch v := p.(type) {
	case NewRelationship:
		return v.Relationship
	case UpdatedRelationship:
		return v.New
	case UndoneRelationship:
		return v.Relationship
	case DeletedRelationship:
		return v.Relationship
	case RestoredRelationship:
		return v.Relationship
	case RetypedRelationship:
		return v.Relationship
	case RehomedRelationship:
		return v.Relationship
	case ReidentifiedRelationship:
		return v.Relationship
	case RefreshedRelationship:
		return v.Relationship
	}
	return nil
}

// Entity returns the entity snapshot carried by e, if any.
func (e Event) Entity() *instance.Entity {
	return snapshotEntity(e.Payload)
}

// Relationship returns the relationship snapshot carried by e, if any.
func (e Event) Relationship() *instance.Relationship {
	return snapshotRelationship(e.Payload)
}

// ErrInvalid is matched by every *InvalidError.
var ErrInvalid = errors.New("invalid event")

// InvalidError reports a payload that violates its kind's shape.
type InvalidError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s event: %s", e.Kind, e.Reason)
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

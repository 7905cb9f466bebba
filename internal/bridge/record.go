package bridge

import (
	"fmt"
	"time"
)

// Action is a foreign change notification type.
type Action string

const (
	ActionCreate                 Action = "CREATE"
	ActionModify                 Action = "MODIFY"
	ActionDelete                 Action = "DELETE"
	ActionAssignedRelationship   Action = "ASSIGNED_RELATIONSHIP"
	ActionUnassignedRelationship Action = "UNASSIGNED_RELATIONSHIP"
	ActionAddClassification      Action = "ADD_CLASSIFICATION"
	ActionRemoveClassification   Action = "REMOVE_CLASSIFICATION"
)

// Actions lists every action with a canonical equivalent.
var Actions = []Action{
	ActionCreate,
	ActionModify,
	ActionDelete,
	ActionAssignedRelationship,
	ActionUnassignedRelationship,
	ActionAddClassification,
	ActionRemoveClassification,
}

// Known reports whether a has a canonical equivalent.
func (a Action) Known() bool {
	for _, k := range Actions {
		if a == k {
			return true
		}
	}
	return false
}

// ChangeRecord is one foreign change notification.
//
// For relationship actions GUID is the first end and RelatedGUID the second.
// For classification actions Classification names the foreign
// classification and Properties holds its properties.
type ChangeRecord struct {
	Action             Action         `json:"action"`
	GUID               string         `json:"guid"`
	TypeName           string         `json:"type,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
	PreviousProperties map[string]any `json:"previous_properties,omitempty"`
	RelatedGUID        string         `json:"related_guid,omitempty"`
	RelationshipType   string         `json:"relationship_type,omitempty"`
	Classification     string         `json:"classification,omitempty"`
	Version            int64          `json:"version,omitempty"`
	Modified           time.Time      `json:"modified,omitzero"`
}

// version is the foreign version, or the modification time in
// milliseconds when the source does not version its entities.
func (r ChangeRecord) version() int64 {
	if r.Version > 0 || r.Modified.IsZero() {
		return r.Version
	}
	return r.Modified.UnixMilli()
}

func (r ChangeRecord) String() string {
	if r.RelatedGUID != "" {
		return fmt.Sprintf("%s %s %s->%s", r.Action, r.RelationshipType, r.GUID, r.RelatedGUID)
	}
	return fmt.Sprintf("%s %s %s", r.Action, r.TypeName, r.GUID)
}

package event

import (
	"github.com/roach88/cohort/internal/instance"
)

func invalid(k Kind, reason string) error {
	return &InvalidError{Kind: k, Reason: reason}
}

func checkHeader(k Kind, h instance.Header) error {
	switch {
	case h.GUID == "":
		return invalid(k, "instance has no guid")
	case h.Type.Name == "":
		return invalid(k, "instance has no type")
	case h.Version < 0:
		return invalid(k, "negative version")
	}
	return nil
}

func checkEntity(k Kind, e *instance.Entity) error {
	if e == nil {
		return invalid(k, "missing entity snapshot")
	}
	return checkHeader(k, e.Header)
}

func checkRelationship(k Kind, r *instance.Relationship) error {
	if r == nil {
		return invalid(k, "missing relationship snapshot")
	}
	if err := checkHeader(k, r.Header); err != nil {
		return err
	}
	if r.End1.Entity.GUID == "" || r.End2.Entity.GUID == "" {
		return invalid(k, "relationship end has no entity guid")
	}
	return nil
}

func checkTransition(k Kind, oldH, newH instance.Header) error {
	if oldH.GUID != newH.GUID {
		return invalid(k, "old and new snapshots have different guids")
	}
	if newH.Version <= oldH.Version {
		return invalid(k, "new version does not exceed old version")
	}
	return nil
}

func checkPurge(k Kind, typeName, guid string) error {
	if guid == "" {
		return invalid(k, "purge has no guid")
	}
	if typeName == "" {
		return invalid(k, "purge has no type")
	}
	return nil
}

func checkRefresh(k Kind, typeName, guid, home string) error {
	if guid == "" || typeName == "" {
		return invalid(k, "refresh request needs guid and type")
	}
	if home == "" {
		return invalid(k, "refresh request needs a home collection")
	}
	return nil
}

// validatePayload enforces the shape each kind promises to consumers.
func validatePayload(p Payload) error {
	if p == nil {
		return invalid("", "missing payload")
	}
	k := p.Kind()
	switch v := p.(type) {
	case NewEntity:
		return checkEntity(k, v.Entity)
	case UpdatedEntity:
		if err := checkEntity(k, v.New); err != nil {
			return err
		}
		if v.Old != nil {
			return checkTransition(k, v.Old.Header, v.New.Header)
		}
	case UndoneEntity:
		return checkEntity(k, v.Entity)
	case ClassifiedEntity:
		if v.Classification.Name == "" {
			return invalid(k, "classification has no name")
		}
		return checkEntity(k, v.Entity)
	case DeclassifiedEntity:
		if v.Classification.Name == "" {
			return invalid(k, "classification has no name")
		}
		return checkEntity(k, v.Entity)
	case ReclassifiedEntity:
		if v.Original.Name == "" || v.Original.Name != v.Updated.Name {
			return invalid(k, "original and updated classification names differ")
		}
		return checkEntity(k, v.Entity)
	case DeletedEntity:
		if err := checkEntity(k, v.Entity); err != nil {
			return err
		}
		if !v.Entity.IsDeleted() {
			return invalid(k, "deleted snapshot is not in deleted status")
		}
	case PurgedEntity:
		return checkPurge(k, v.TypeName, v.GUID)
	case RestoredEntity:
		if err := checkEntity(k, v.Entity); err != nil {
			return err
		}
		if v.Entity.IsDeleted() {
			return invalid(k, "restored snapshot is still deleted")
		}
	case RetypedEntity:
		if err := checkEntity(k, v.Entity); err != nil {
			return err
		}
		if v.OriginalType.Name == "" || v.OriginalType.Name == v.Entity.Type.Name {
			return invalid(k, "original type missing or unchanged")
		}
	case RehomedEntity:
		if err := checkEntity(k, v.Entity); err != nil {
			return err
		}
		if v.OriginalHomeCollectionID == "" || v.OriginalHomeCollectionID == v.Entity.HomeCollectionID {
			return invalid(k, "original home collection missing or unchanged")
		}
	case ReidentifiedEntity:
		if err := checkEntity(k, v.Entity); err != nil {
			return err
		}
		if v.OriginalGUID == "" || v.OriginalGUID == v.Entity.GUID {
			return invalid(k, "original guid missing or unchanged")
		}
	case RefreshEntityRequest:
		return checkRefresh(k, v.TypeName, v.GUID, v.HomeCollectionID)
	case RefreshedEntity:
		return checkEntity(k, v.Entity)

	case NewRelationship:
		return checkRelationship(k, v.Relationship)
	case UpdatedRelationship:
		if err := checkRelationship(k, v.New); err != nil {
			return err
		}
		if v.Old != nil {
			return checkTransition(k, v.Old.Header, v.New.Header)
		}
	case UndoneRelationship:
		return checkRelationship(k, v.Relationship)
	case DeletedRelationship:
		if err := checkRelationship(k, v.Relationship); err != nil {
			return err
		}
		if !v.Relationship.IsDeleted() {
			return invalid(k, "deleted snapshot is not in deleted status")
		}
	case PurgedRelationship:
		return checkPurge(k, v.TypeName, v.GUID)
	case RestoredRelationship:
		if err := checkRelationship(k, v.Relationship); err != nil {
			return err
		}
		if v.Relationship.IsDeleted() {
			return invalid(k, "restored snapshot is still deleted")
		}
	case RetypedRelationship:
		if err := checkRelationship(k, v.Relationship); err != nil {
			return err
		}
		if v.OriginalType.Name == "" || v.OriginalType.Name == v.Relationship.Type.Name {
			return invalid(k, "original type missing or unchanged")
		}
	case RehomedRelationship:
		if err := checkRelationship(k, v.Relationship); err != nil {
			return err
		}
		if v.OriginalHomeCollectionID == "" || v.OriginalHomeCollectionID == v.Relationship.HomeCollectionID {
			return invalid(k, "original home collection missing or unchanged")
		}
	case ReidentifiedRelationship:
		if err := checkRelationship(k, v.Relationship); err != nil {
			return err
		}
		if v.OriginalGUID == "" || v.OriginalGUID == v.Relationship.GUID {
			return invalid(k, "original guid missing or unchanged")
		}
	case RefreshRelationshipRequest:
		return checkRefresh(k, v.TypeName, v.GUID, v.HomeCollectionID)
	case RefreshedRelationship:
		return checkRelationship(k, v.Relationship)

	case ConflictingInstances:
		if v.TargetGUID == "" || v.OtherGUID == "" {
			return invalid(k, "conflict report needs both guids")
		}
	case ConflictingType:
		if v.TargetGUID == "" || v.OtherType.Name == "" {
			return invalid(k, "conflict report needs target guid and other type")
		}
	default:
		return invalid(k, "unknown payload type")
	}
	return nil
}

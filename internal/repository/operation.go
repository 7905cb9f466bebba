package repository

import (
	"fmt"
)

// Operation names a call on the repository boundary. The names appear in
// errors, assertion records and the unsupported-operations option.
type Operation string

const (
	OpFindEntities                 Operation = "findEntitiesByProperty"
	OpFindEntitiesByClassification Operation = "findEntitiesByClassification"
	OpGetEntity                    Operation = "getEntity"
	OpAddEntity                    Operation = "addEntity"
	OpUpdateEntityProperties       Operation = "updateEntityProperties"
	OpUndoEntityUpdate             Operation = "undoEntityUpdate"
	OpClassifyEntity               Operation = "classifyEntity"
	OpUpdateEntityClassification   Operation = "updateEntityClassification"
	OpDeclassifyEntity             Operation = "declassifyEntity"
	OpDeleteEntity                 Operation = "deleteEntity"
	OpPurgeEntity                  Operation = "purgeEntity"
	OpRestoreEntity                Operation = "restoreEntity"
	OpRetypeEntity                 Operation = "reTypeEntity"
	OpRehomeEntity                 Operation = "reHomeEntity"
	OpReidentifyEntity             Operation = "reIdentifyEntity"

	OpFindRelationships            Operation = "findRelationshipsByProperty"
	OpGetRelationship              Operation = "getRelationship"
	OpAddRelationship              Operation = "addRelationship"
	OpUpdateRelationshipProperties Operation = "updateRelationshipProperties"
	OpUndoRelationshipUpdate       Operation = "undoRelationshipUpdate"
	OpDeleteRelationship           Operation = "deleteRelationship"
	OpPurgeRelationship            Operation = "purgeRelationship"
	OpRestoreRelationship          Operation = "restoreRelationship"
	OpRetypeRelationship           Operation = "reTypeRelationship"
	OpRehomeRelationship           Operation = "reHomeRelationship"
	OpReidentifyRelationship       Operation = "reIdentifyRelationship"

	OpSupportedTypes Operation = "getSupportedTypes"
	OpTypeDefByName  Operation = "getTypeDefByName"
)

var operations = []Operation{
	OpFindEntities, OpFindEntitiesByClassification, OpGetEntity, OpAddEntity,
	OpUpdateEntityProperties, OpUndoEntityUpdate, OpClassifyEntity,
	OpUpdateEntityClassification, OpDeclassifyEntity, OpDeleteEntity,
	OpPurgeEntity, OpRestoreEntity, OpRetypeEntity, OpRehomeEntity,
	OpReidentifyEntity,
	OpFindRelationships, OpGetRelationship, OpAddRelationship,
	OpUpdateRelationshipProperties, OpUndoRelationshipUpdate,
	OpDeleteRelationship, OpPurgeRelationship, OpRestoreRelationship,
	OpRetypeRelationship, OpRehomeRelationship, OpReidentifyRelationship,
	OpSupportedTypes, OpTypeDefByName,
}

// Operations returns every operation in declaration order.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

// ParseOperation accepts an operation name as it appears in Operations.
func ParseOperation(s string) (Operation, error) {
	for _, op := range operations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown repository operation %q", s)
}

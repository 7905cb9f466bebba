package bridge

import (
	"errors"
	"fmt"
)

// DropReason says why a record produced no event.
type DropReason string

const (
	DropUnmappedAction DropReason = "unmapped_action"
	DropUnmappedType   DropReason = "unmapped_type"
	DropUnresolvedEnd  DropReason = "unresolved_end"
	DropForeignFailure DropReason = "foreign_failure"
	DropInvalidRecord  DropReason = "invalid_record"
	DropMalformed      DropReason = "malformed"
)

// DropError reports a record the bridge cannot translate. GUID is the
// identifier the bridge attempted to resolve, when that is the cause.
type DropError struct {
	Reason DropReason
	Record ChangeRecord
	GUID   string
	Err    error
}

func (e *DropError) Error() string {
	msg := fmt.Sprintf("dropped %s: %s", e.Record, e.Reason)
	if e.GUID != "" {
		msg += " (guid " + e.GUID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DropError) Unwrap() error {
	return e.Err
}

// IsDrop reports whether err is a *DropError.
func IsDrop(err error) bool {
	var de *DropError
	return errors.As(err, &de)
}

func drop(reason DropReason, rec ChangeRecord, guid string, err error) *DropError {
	return &DropError{Reason: reason, Record: rec, GUID: guid, Err: err}
}

// ErrNotFound is returned by a ForeignRepository for an unknown GUID.
var ErrNotFound = errors.New("foreign entity not found")

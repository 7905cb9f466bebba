package instance

import (
	"strings"

	"github.com/google/uuid"
)

// GUIDGenerator allocates instance GUIDs.
// Implemented by RandomGUIDs (production) and testutil.SequentialGUIDs (tests).
type GUIDGenerator interface {
	NewGUID() string
}

// RandomGUIDs generates time-sortable UUIDv7 GUIDs.
//
// Thread-safety: RandomGUIDs is stateless and safe for concurrent use.
type RandomGUIDs struct{}

// NewGUID panics if the system random source fails (should never happen).
func (RandomGUIDs) NewGUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// guidNamespace scopes derived GUIDs to this protocol.
var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:cohort:instance"))

// DeriveGUID returns a deterministic UUIDv5 for the given parts. Used where a
// foreign source has no identifier of its own, e.g. relationships that only
// exist as a pair of entity references.
func DeriveGUID(parts ...string) string {
	return uuid.NewSHA1(guidNamespace, []byte(strings.Join(parts, "\x00"))).String()
}

// ValidGUID reports whether s parses as a UUID.
func ValidGUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

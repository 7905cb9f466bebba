package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainEvent     = "cohort/event/v1"
	DomainAssertion = "cohort/assertion/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID computes a stable id for v under the given domain.
// v must be canonically marshalable (see MarshalCanonical).
func ContentID(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content id %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustContentID is like ContentID but panics on error.
// Use only when inputs are known to be valid.
func MustContentID(domain string, v any) string {
	id, err := ContentID(domain, v)
	if err != nil {
		panic(err)
	}
	return id
}

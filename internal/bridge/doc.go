// Package bridge translates a foreign repository's change feed into
// lifecycle events.
//
// A Bridge is stateless per record. The only lookup it performs is the
// synchronous fetch of referenced entities from the ForeignRepository when
// a record names an entity it does not carry in full (relationship ends,
// classification targets). Records with no canonical equivalent, unmapped
// types, or unresolvable references are dropped with exactly one logged
// diagnostic; the feed keeps moving.
//
// Records are processed strictly in delivery order. A relationship event
// may therefore reference an entity whose own event has not been published
// yet; consumers are expected to tolerate this.
package bridge

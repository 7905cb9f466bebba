// Package instance defines the canonical representation of metadata instances
// exchanged by cohort members: typed property values, entities, relationships,
// classifications and the headers that carry identity, version and ownership.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import instance; instance imports nothing internal.
//
// Key invariants:
//   - A GUID is immutable for the life of an instance. Re-identify is the only
//     sanctioned GUID change and is announced as its own event.
//   - Version strictly increases with every mutating operation on a GUID.
//   - Property values form a closed set (see PropertyValue). Non-primitive
//     values (enum, array, map, struct) are carried opaque.
//   - Content ids are computed over canonical JSON with domain separation.
package instance

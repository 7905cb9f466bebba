// Package lattice indexes type definitions and answers inheritance queries.
//
// A Lattice is built once from a flat list of TypeDefs. Supertype links are
// resolved to arena indexes and validated at load time: duplicate names,
// unknown supertypes, supertypes of another category and cycles are all
// rejected by New. After construction the lattice is read-only and safe for
// concurrent use.
//
// The two core queries are ResolveAttributes (root-first attribute list over
// the supertype chain) and MostSpecificKnownSubtype (breadth-first downward
// search for a type the caller supports).
package lattice

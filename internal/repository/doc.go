// Package repository defines the boundary between cohort tooling and a
// metadata repository: the calls a cohort member answers and the errors it
// may signal.
//
// A MetadataCollection is an EntityStore, a RelationshipStore and a
// TypeGallery. Every call either returns a result or fails with an *Error
// whose Code is one of invalid-parameter, not-found, function-not-supported
// or server-error. Callers branch on the code with IsNotSupported,
// IsNotFound and IsInvalidParameter; anything else is a server error.
//
// The probe and the bridge depend only on these interfaces. The in-memory
// reference implementation lives in package memory.
package repository

// Package search defines the predicate IR used by find-by-property and
// find-by-classification requests.
//
// Predicate is a sealed interface, so Match, Validate and Describe can switch
// exhaustively over its node types. A nil predicate matches everything.
//
// Predicate types:
//   - Equals: property holds exactly the given value
//   - Prefix: string-valued property starts with the given text
//   - Exists: property is present
//   - And, Or, Not: boolean combinators
//
// FromProperties builds a predicate from a match-properties bag the way
// repository searches are usually phrased: every property must match
// (MatchAll), at least one (MatchAny), or none (MatchNone).
package search

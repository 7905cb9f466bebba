// Package probe drives a repository through the instance lifecycle protocol
// and records what it does in an assertion ledger.
//
// A probe run is a list of test cases. Each case targets one type and moves
// through NOT_RUN → RUNNING → {PASSED, FAILED, NOT_SUPPORTED}. Every remote
// call goes through invoke, which times the call and classifies the result
// with an explicit outcome tag:
//
//   - pass: the call returned; a timed pass assertion is recorded.
//   - not supported: the repository declined the operation; one
//     not-supported assertion is recorded and the case stops.
//   - fail: anything else; the call is wrapped in a *ProbeError, which the
//     Runner records as one fail assertion before moving to the next case.
//
// The Runner serializes cases that target the same type and runs different
// types concurrently. Cancellation takes effect between cases only; calls
// already in flight complete and are recorded.
package probe

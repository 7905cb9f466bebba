// Package event defines the lifecycle event contract shared by every cohort
// member.
//
// An Event is an Originator plus one of a closed set of payloads, one per
// (transition, instance kind) pair and two cohort-wide conflict reports.
// Producers construct events with New, which validates the payload shape
// and assigns a content id. Consumers implement Listener, which has one
// method per kind; Dispatch routes an event to the matching method.
// Listeners that do not act on a kind must say so by returning nil from
// that method, typically by embedding Decline.
//
// Events travel as self-describing CBOR records (Encode/Decode) with core
// deterministic encoding.
package event

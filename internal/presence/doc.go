// Package presence holds the hub's in-memory state: the session registry,
// the last-known-location store, and the per-identity sliding-window rate
// limiter.
//
// The store types are plain synchronous structures and are NOT safe for
// concurrent use. The hub owns them and serializes all access; passing them
// around as explicit values keeps ownership and test isolation obvious.
package presence

// Package hub implements the real-time presence and location-broadcast core:
// the per-connection protocol state machine, the fan-out broadcast engine,
// and the janitor sweep that evicts stale state.
//
// A connection enters unregistered and must send a register message before
// the registration timeout fires. Once registered, location updates are rate
// limited per identity and fanned out to every open connection. Delivery is
// fire-and-forget: a send failure to one peer is counted and logged, never
// escalated.
package hub

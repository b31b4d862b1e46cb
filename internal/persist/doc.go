// Package persist implements the optional shared-location store behind the
// REST API. It is deliberately separate from the hub: the hub's presence
// state lives in memory only, while this package durably stores locations
// that users choose to publish.
//
// Two backends implement Repository: Postgres (pgx) and Redis. Which one is
// active is a deployment decision made through configuration.
package persist

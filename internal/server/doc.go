// Package server exposes the HTTP surface: the WebSocket endpoint, the
// REST location API, health and stats endpoints, Prometheus metrics, and
// the static client. Connection admission (global, per-IP, and rate
// limits) happens here, before a socket ever reaches the hub.
package server

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks WebSocket connections currently open
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of currently open WebSocket connections",
		},
	)

	// HubRegisteredSessions tracks identities currently registered
	HubRegisteredSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_registered_sessions",
			Help: "Number of identities currently registered with the hub",
		},
	)

	// HubSharedLocations tracks locations currently held in the store
	HubSharedLocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_shared_locations",
			Help: "Number of locations currently held in the store",
		},
	)

	// HubMessagesTotal tracks inbound messages by type and outcome
	HubMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_total",
			Help: "Inbound hub messages by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// HubMessageDuration tracks inbound message handling latency in seconds
	HubMessageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_message_duration_seconds",
			Help:    "Inbound message handling duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// HubBroadcastsTotal tracks fan-out broadcasts
	HubBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total fan-out broadcasts",
		},
	)

	// HubBroadcastFailuresTotal tracks per-recipient delivery failures
	HubBroadcastFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcast_failures_total",
			Help: "Per-recipient broadcast delivery failures (dropped messages)",
		},
	)

	// HubRateLimitedTotal tracks messages rejected by the rate limiter
	HubRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_rate_limited_total",
			Help: "Messages rejected by the per-identity rate limiter",
		},
	)

	// HubRegistrationTimeoutsTotal tracks connections dropped for not registering
	HubRegistrationTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_registration_timeouts_total",
			Help: "Connections closed because no registration arrived in time",
		},
	)
)

// Janitor metrics
var (
	// JanitorEvictedLocationsTotal tracks locations evicted for staleness
	JanitorEvictedLocationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "janitor_evicted_locations_total",
			Help: "Stale locations removed by the janitor sweep",
		},
	)

	// JanitorSweepDuration tracks janitor sweep latency in seconds
	JanitorSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "janitor_sweep_duration_seconds",
			Help:    "Janitor sweep duration in seconds",
			Buckets: []float64{.0001, .001, .01, .1, 1},
		},
	)
)

// Connection limit metrics
var (
	// ConnectionsRejectedTotal tracks upgrade rejections by limit reason
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connections_rejected_total",
			Help: "WebSocket upgrade rejections by limit reason",
		},
		[]string{"reason"},
	)
)

// Persistence metrics
var (
	// PersistOpsTotal tracks repository operations by operation and status
	PersistOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persist_operations_total",
			Help: "Location repository operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// PersistOpDuration tracks repository operation latency in seconds
	PersistOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persist_operation_duration_seconds",
			Help:    "Location repository operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// PersistBreakerState tracks the write circuit breaker (0=closed, 1=half-open, 2=open)
	PersistBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "persist_breaker_state",
			Help: "Write circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

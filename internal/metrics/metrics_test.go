package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	// Verify all metrics are registered without conflicts
	// This test ensures no duplicate metric names

	metrics := []prometheus.Collector{
		// Hub metrics
		HubConnectedClients,
		HubRegisteredSessions,
		HubSharedLocations,
		HubMessagesTotal,
		HubMessageDuration,
		HubBroadcastsTotal,
		HubBroadcastFailuresTotal,
		HubRateLimitedTotal,
		HubRegistrationTimeoutsTotal,

		// Janitor metrics
		JanitorEvictedLocationsTotal,
		JanitorSweepDuration,

		// Connection limit metrics
		ConnectionsRejectedTotal,

		// Persistence metrics
		PersistOpsTotal,
		PersistOpDuration,
		PersistBreakerState,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestGaugeMetrics(t *testing.T) {
	HubRegisteredSessions.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(HubRegisteredSessions))

	HubRegisteredSessions.Set(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(HubRegisteredSessions))
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(HubMessagesTotal.WithLabelValues("ping", "ok"))
	HubMessagesTotal.WithLabelValues("ping", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(HubMessagesTotal.WithLabelValues("ping", "ok")))
}

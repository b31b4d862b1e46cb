package hub

import (
	"log/slog"

	"github.com/Nonith-Rao/Live-Tracking/internal/metrics"
)

// runJanitor sweeps stale state on a fixed interval, independent of client
// traffic. Expired locations leave silently: unlike stop_sharing, eviction
// broadcasts no location_stop.
func (h *Hub) runJanitor() {
	ticker := h.clock.NewTicker(h.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.janitorDone:
			return
		case <-ticker.Chan():
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	start := h.clock.Now()

	h.mu.Lock()
	evicted := h.locations.SweepExpired(start, h.opts.LocationTTL)
	h.limiter.Sweep(start)
	remaining := h.locations.Count()
	h.mu.Unlock()

	metrics.JanitorSweepDuration.Observe(h.clock.Since(start).Seconds())
	if evicted > 0 {
		metrics.JanitorEvictedLocationsTotal.Add(float64(evicted))
		metrics.HubSharedLocations.Set(float64(remaining))
		slog.Debug("Janitor evicted stale locations", "evicted", evicted, "remaining", remaining)
	}
}

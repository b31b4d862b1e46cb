package hub

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestJanitor_EvictsStaleLocations(t *testing.T) {
	fc := clockwork.NewFakeClock()
	opts := DefaultOptions()
	opts.LocationTTL = 5 * time.Minute
	opts.JanitorInterval = time.Minute

	h := New(opts, fc)
	t.Cleanup(h.Stop)

	// Wait until the janitor ticker is armed before advancing
	fc.BlockUntil(1)

	h.mu.Lock()
	h.locations.Upsert("stale", 1, 1, "", fc.Now())
	h.locations.Upsert("fresh", 2, 2, "", fc.Now().Add(5*time.Minute))
	h.mu.Unlock()

	// One TTL plus a tick later the stale entry is gone, silently
	fc.Advance(opts.LocationTTL + time.Millisecond)
	fc.Advance(opts.JanitorInterval)

	assert.Eventually(t, func() bool {
		return h.Stats().SharedLocations == 1
	}, time.Second, 5*time.Millisecond)

	h.mu.Lock()
	_, staleOK := h.locations.Get("stale")
	_, freshOK := h.locations.Get("fresh")
	h.mu.Unlock()
	assert.False(t, staleOK)
	assert.True(t, freshOK)
}

func TestJanitor_DropsExpiredRateWindows(t *testing.T) {
	fc := clockwork.NewFakeClock()
	opts := DefaultOptions()
	opts.RateLimitWindow = time.Second
	opts.JanitorInterval = time.Minute

	h := New(opts, fc)
	t.Cleanup(h.Stop)

	fc.BlockUntil(1)

	h.mu.Lock()
	h.limiter.Allow("a", fc.Now())
	h.limiter.Allow("b", fc.Now())
	h.mu.Unlock()

	fc.Advance(opts.JanitorInterval)

	assert.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.limiter.Tracked() == 0
	}, time.Second, 5*time.Millisecond)
}

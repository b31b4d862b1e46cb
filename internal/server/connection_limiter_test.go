package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_AcquireRelease(t *testing.T) {
	limits := NewConnectionLimits(100, 10, 100.0, 100)

	ok, reason := limits.Acquire("192.168.1.1")
	assert.True(t, ok)
	assert.Equal(t, LimitReason(""), reason)
	assert.Equal(t, int64(1), limits.Current())
	assert.Equal(t, 1, limits.CountForIP("192.168.1.1"))

	limits.Release("192.168.1.1")
	assert.Equal(t, int64(0), limits.Current())
	assert.Equal(t, 0, limits.CountForIP("192.168.1.1"))
	assert.Equal(t, 0, limits.UniqueIPs())
}

func TestConnectionLimits_GlobalLimitExceeded(t *testing.T) {
	limits := NewConnectionLimits(2, 100, 100.0, 100)

	ok1, _ := limits.Acquire("192.168.1.1")
	ok2, _ := limits.Acquire("192.168.1.2")
	assert.True(t, ok1)
	assert.True(t, ok2)

	ok3, reason := limits.Acquire("192.168.1.3")
	assert.False(t, ok3)
	assert.Equal(t, LimitReasonGlobal, reason)

	limits.Release("192.168.1.1")
	limits.Release("192.168.1.2")
}

func TestConnectionLimits_PerIPLimitExceeded(t *testing.T) {
	limits := NewConnectionLimits(100, 2, 100.0, 100)

	ok1, _ := limits.Acquire("192.168.1.1")
	ok2, _ := limits.Acquire("192.168.1.1")
	assert.True(t, ok1)
	assert.True(t, ok2)

	ok3, reason := limits.Acquire("192.168.1.1")
	assert.False(t, ok3)
	assert.Equal(t, LimitReasonPerIP, reason)

	// The global slot taken before the per-IP check must be rolled back.
	assert.Equal(t, int64(2), limits.Current())

	ok4, _ := limits.Acquire("192.168.1.2")
	assert.True(t, ok4)

	limits.Release("192.168.1.1")
	limits.Release("192.168.1.1")
	limits.Release("192.168.1.2")
	assert.Equal(t, int64(0), limits.Current())
}

func TestConnectionLimits_RateLimitExceeded(t *testing.T) {
	limits := NewConnectionLimits(100, 100, 2.0, 2)

	ok1, _ := limits.Acquire("192.168.1.1")
	ok2, _ := limits.Acquire("192.168.1.1")
	assert.True(t, ok1)
	assert.True(t, ok2)

	ok3, reason := limits.Acquire("192.168.1.1")
	assert.False(t, ok3)
	assert.Equal(t, LimitReasonRate, reason)

	// Rate-limited attempts hold no slots.
	assert.Equal(t, int64(2), limits.Current())

	limits.Release("192.168.1.1")
	limits.Release("192.168.1.1")
}

func TestConnectionLimits_RatePerIPIndependence(t *testing.T) {
	limits := NewConnectionLimits(100, 100, 2.0, 2)

	assert.True(t, limits.allowRate("192.168.1.1"))
	assert.True(t, limits.allowRate("192.168.1.1"))
	assert.False(t, limits.allowRate("192.168.1.1"))

	// A second IP has its own bucket.
	assert.True(t, limits.allowRate("192.168.1.2"))
	assert.True(t, limits.allowRate("192.168.1.2"))
	assert.False(t, limits.allowRate("192.168.1.2"))
}

func TestConnectionLimits_RateTokenRefill(t *testing.T) {
	limits := NewConnectionLimits(100, 100, 10.0, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, limits.allowRate("192.168.1.1"))
	}
	assert.False(t, limits.allowRate("192.168.1.1"))

	// 100ms is one token at 10/sec
	time.Sleep(100 * time.Millisecond)
	assert.True(t, limits.allowRate("192.168.1.1"))
}

func TestConnectionLimits_BucketCleanup(t *testing.T) {
	limits := NewConnectionLimits(100, 100, 10.0, 5)

	limits.allowRate("192.168.1.1")
	limits.allowRate("192.168.1.2")
	limits.allowRate("192.168.1.3")

	limits.mu.Lock()
	limits.buckets["192.168.1.1"].lastSeen = time.Now().Add(-11 * time.Minute)
	limits.cleanupAt = time.Now().Add(-time.Second)
	limits.mu.Unlock()

	// Next call triggers the sweep and drops the idle bucket.
	limits.allowRate("192.168.1.2")

	limits.mu.Lock()
	defer limits.mu.Unlock()
	assert.Len(t, limits.buckets, 2)
}

func TestConnectionLimits_ZeroGlobalMax(t *testing.T) {
	limits := NewConnectionLimits(0, 10, 100.0, 100)

	ok, reason := limits.Acquire("192.168.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
}

func TestConnectionLimits_Concurrent(t *testing.T) {
	limits := NewConnectionLimits(50, 5, 1000.0, 1000)

	var wg sync.WaitGroup
	var admitted sync.Map
	var successCount int64

	// 10 IPs with 10 attempts each; per-IP cap of 5 yields 50 admits.
	// Nothing is released until the race settles, so the count is exact.
	start := make(chan struct{})
	for ip := 1; ip <= 10; ip++ {
		addr := fmt.Sprintf("192.168.1.%d", ip)
		for conn := 0; conn < 10; conn++ {
			wg.Add(1)
			go func(ip string) {
				defer wg.Done()
				<-start
				if ok, _ := limits.Acquire(ip); ok {
					n := atomic.AddInt64(&successCount, 1)
					admitted.Store(n, ip)
				}
			}(addr)
		}
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(50), atomic.LoadInt64(&successCount))
	assert.Equal(t, int64(50), limits.Current())
	assert.Equal(t, 10, limits.UniqueIPs())

	admitted.Range(func(_, ip any) bool {
		limits.Release(ip.(string))
		return true
	})
	assert.Equal(t, int64(0), limits.Current())
	assert.Equal(t, 0, limits.UniqueIPs())
}

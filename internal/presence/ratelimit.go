package presence

import "time"

// RateLimiter is a per-identity sliding-window request counter. A rejected
// attempt is not recorded, so hammering the hub does not extend the window.
type RateLimiter struct {
	window time.Duration
	max    int
	hits   map[string][]time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

// Allow reports whether a request for id at now is within budget. On accept
// the request is recorded against the window.
func (r *RateLimiter) Allow(id string, now time.Time) bool {
	cutoff := now.Add(-r.window)

	kept := r.hits[id][:0]
	for _, ts := range r.hits[id] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.max {
		r.hits[id] = kept
		return false
	}

	r.hits[id] = append(kept, now)
	return true
}

// Sweep drops out-of-window timestamps for every identity and deletes
// identities whose windows are empty, bounding memory under churn.
func (r *RateLimiter) Sweep(now time.Time) {
	cutoff := now.Add(-r.window)
	for id, timestamps := range r.hits {
		kept := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(r.hits, id)
		} else {
			r.hits[id] = kept
		}
	}
}

// Forget drops all state for id.
func (r *RateLimiter) Forget(id string) {
	delete(r.hits, id)
}

// Tracked returns the number of identities with recorded requests.
func (r *RateLimiter) Tracked() int {
	return len(r.hits)
}

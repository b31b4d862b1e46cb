package presence

import (
	"math"
	"time"
)

// Location is the last reported position for an identity with its freshness
// timestamp. The identity need not have a live session.
type Location struct {
	UserID    string
	Name      string
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}

// Locations maps identities to their last-known location, preserving
// insertion order for deterministic snapshots.
type Locations struct {
	byID  map[string]*Location
	order []string
}

func NewLocations() *Locations {
	return &Locations{byID: make(map[string]*Location)}
}

// ValidCoordinates reports whether lat/lng are finite and within range:
// latitude in [-90, 90], longitude in [-180, 180].
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Upsert stores the location for id with now as its freshness timestamp.
// Callers must validate coordinates first; Upsert does not.
func (l *Locations) Upsert(id string, lat, lng float64, name string, now time.Time) *Location {
	if name == "" {
		name = DefaultName
	}
	loc := &Location{
		UserID:    id,
		Name:      name,
		Latitude:  lat,
		Longitude: lng,
		UpdatedAt: now,
	}
	if _, exists := l.byID[id]; !exists {
		l.order = append(l.order, id)
	}
	l.byID[id] = loc
	return loc
}

func (l *Locations) Get(id string) (*Location, bool) {
	loc, ok := l.byID[id]
	return loc, ok
}

// Remove deletes the location for id, reporting whether one existed.
func (l *Locations) Remove(id string) bool {
	if _, ok := l.byID[id]; !ok {
		return false
	}
	l.remove(id)
	return true
}

func (l *Locations) remove(id string) {
	delete(l.byID, id)
	for i, other := range l.order {
		if other == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *Locations) Count() int {
	return len(l.byID)
}

// ActiveSnapshot returns all locations younger than ttl, in insertion order.
// Entries at or beyond ttl are filtered but not removed; eviction is the
// janitor's job.
func (l *Locations) ActiveSnapshot(now time.Time, ttl time.Duration) []Location {
	active := make([]Location, 0, len(l.order))
	for _, id := range l.order {
		loc := l.byID[id]
		if now.Sub(loc.UpdatedAt) < ttl {
			active = append(active, *loc)
		}
	}
	return active
}

// Active reports whether id has a location younger than ttl.
func (l *Locations) Active(id string, now time.Time, ttl time.Duration) (*Location, bool) {
	loc, ok := l.byID[id]
	if !ok || now.Sub(loc.UpdatedAt) >= ttl {
		return nil, false
	}
	return loc, true
}

// SweepExpired removes every location whose age is at least ttl and returns
// how many were evicted.
func (l *Locations) SweepExpired(now time.Time, ttl time.Duration) int {
	var expired []string
	for id, loc := range l.byID {
		if now.Sub(loc.UpdatedAt) >= ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		l.remove(id)
	}
	return len(expired)
}

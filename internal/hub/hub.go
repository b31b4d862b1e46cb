package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Nonith-Rao/Live-Tracking/internal/metrics"
	"github.com/Nonith-Rao/Live-Tracking/internal/presence"
)

// Options configures a Hub.
type Options struct {
	MaxSessions         int
	RegistrationTimeout time.Duration
	LocationTTL         time.Duration
	JanitorInterval     time.Duration
	RateLimitWindow     time.Duration
	RateLimitMax        int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxSessions:         100,
		RegistrationTimeout: 30 * time.Second,
		LocationTTL:         5 * time.Minute,
		JanitorInterval:     60 * time.Second,
		RateLimitWindow:     time.Second,
		RateLimitMax:        10,
	}
}

// Stats is a point-in-time view of hub state for the stats endpoint.
type Stats struct {
	ConnectedClients   int `json:"connected_clients"`
	RegisteredSessions int `json:"registered_sessions"`
	SharedLocations    int `json:"shared_locations"`
	ActiveLocations    int `json:"active_locations"`
}

// Hub owns all presence state and serializes every mutation behind one
// mutex, so a disconnect can never race a location update for the same
// identity. Outbound sends are non-blocking buffered writes, so holding the
// lock across a fan-out is safe.
type Hub struct {
	opts  Options
	clock clockwork.Clock

	mu         sync.Mutex
	sessions   *presence.Sessions
	locations  *presence.Locations
	limiter    *presence.RateLimiter
	clients    map[*Client]struct{}
	identity   map[*Client]string
	byIdentity map[string]*Client
	stopped    bool

	stopOnce    sync.Once
	janitorDone chan struct{}
}

// New creates a hub and starts its janitor goroutine.
func New(opts Options, clock clockwork.Clock) *Hub {
	h := &Hub{
		opts:        opts,
		clock:       clock,
		sessions:    presence.NewSessions(),
		locations:   presence.NewLocations(),
		limiter:     presence.NewRateLimiter(opts.RateLimitWindow, opts.RateLimitMax),
		clients:     make(map[*Client]struct{}),
		identity:    make(map[*Client]string),
		byIdentity:  make(map[string]*Client),
		janitorDone: make(chan struct{}),
	}
	go h.runJanitor()
	return h
}

// Connect admits a freshly upgraded connection. The client enters the
// unregistered state with its registration timer armed and receives a
// welcome notice.
func (h *Hub) Connect(conn *websocket.Conn) *Client {
	c := &Client{
		id:     uuid.New(),
		addr:   conn.RemoteAddr().String(),
		writer: newClientWriter(conn, h.clock),
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		c.writer.stopWithClose(websocket.CloseGoingAway, "Server shutting down")
		return c
	}
	h.clients[c] = struct{}{}
	c.regTimer = h.clock.AfterFunc(h.opts.RegistrationTimeout, func() {
		h.registrationTimeout(c)
	})
	h.sendToLocked(c, welcomeMessage{Type: typeWelcome, Message: "Connected to location sharing server"})
	connected := len(h.clients)
	h.mu.Unlock()

	metrics.HubConnectedClients.Set(float64(connected))
	slog.Debug("Client connected", "connection_id", c.id.String(), "remote_addr", c.addr, "connected", connected)
	return c
}

// HandleMessage processes one inbound text frame for c. Malformed input
// yields an error reply and leaves the connection open; nothing a client
// sends can take the hub down.
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	start := h.clock.Now()
	defer func() {
		metrics.HubMessageDuration.Observe(h.clock.Since(start).Seconds())
	}()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.HubMessagesTotal.WithLabelValues("invalid", "rejected").Inc()
		h.sendTo(c, newErrorMessage(errInvalidJSON))
		return
	}
	if env.Type == "" {
		metrics.HubMessagesTotal.WithLabelValues("invalid", "rejected").Inc()
		h.sendTo(c, newErrorMessage(errInvalidFormat))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, open := h.clients[c]; !open {
		return
	}

	now := h.clock.Now()

	// The rate limit is per identity, so it only applies once registered.
	if id, registered := h.identity[c]; registered && !h.limiter.Allow(id, now) {
		metrics.HubRateLimitedTotal.Inc()
		metrics.HubMessagesTotal.WithLabelValues(env.Type, "rate_limited").Inc()
		h.sendToLocked(c, newErrorMessage(errRateLimited))
		return
	}

	outcome := "ok"
	switch env.Type {
	case typeRegister:
		outcome = h.handleRegister(c, &env, now)
	case typeLocationUpdate:
		outcome = h.handleLocationUpdate(c, &env, now)
	case typeStopSharing:
		outcome = h.handleStopSharing(c, &env, now)
	case typeTrackUser:
		outcome = h.handleTrackUser(c, &env, now)
	case typePing:
		h.sendToLocked(c, pongMessage{Type: typePong})
	default:
		outcome = "unknown_type"
		h.sendToLocked(c, newErrorMessage(fmt.Sprintf("Unknown message type: %s", env.Type)))
	}
	metrics.HubMessagesTotal.WithLabelValues(env.Type, outcome).Inc()
}

func (h *Hub) handleRegister(c *Client, env *envelope, now time.Time) string {
	if c.regTimer != nil {
		c.regTimer.Stop()
	}

	id, ok := env.userIDString()
	if !ok {
		h.sendToLocked(c, newErrorMessage(errUserIDRequired))
		return "rejected"
	}

	if _, exists := h.sessions.Get(id); !exists && h.sessions.Count() >= h.opts.MaxSessions {
		slog.Warn("Rejecting registration: server at capacity",
			"user_id", id,
			"max_sessions", h.opts.MaxSessions,
		)
		h.sendToLocked(c, newErrorMessage(errServerFull))
		go c.writer.stopWithClose(websocket.CloseTryAgainLater, errServerFull)
		return "capacity"
	}

	// Re-registration overwrites: an identity moving to a new connection
	// strips the binding from the old one, and a connection switching
	// identity drops its previous session.
	if old, bound := h.byIdentity[id]; bound && old != c {
		delete(h.identity, old)
	}
	if oldID, bound := h.identity[c]; bound && oldID != id {
		h.sessions.Remove(oldID)
		delete(h.byIdentity, oldID)
	}

	sess := h.sessions.Upsert(id, env.Name, now)
	h.identity[c] = id
	h.byIdentity[id] = c
	metrics.HubRegisteredSessions.Set(float64(h.sessions.Count()))

	slog.Info("Client registered", "user_id", id, "name", sess.Name, "sessions", h.sessions.Count())

	h.sendToLocked(c, registrationSuccessMessage{Type: typeRegistrationSuccess, UserID: id})
	h.broadcastUserListLocked(now)

	// Push the current location snapshot to the newcomer only.
	for _, loc := range h.locations.ActiveSnapshot(now, h.opts.LocationTTL) {
		h.sendToLocked(c, newLocationUpdateMessage(&loc))
	}
	return "ok"
}

func (h *Hub) handleLocationUpdate(c *Client, env *envelope, now time.Time) string {
	id, registered := h.identity[c]
	if !registered {
		h.sendToLocked(c, newErrorMessage(errNotRegistered))
		return "rejected"
	}

	if !env.Lat.Valid || !env.Lng.Valid || !presence.ValidCoordinates(env.Lat.Value, env.Lng.Value) {
		h.sendToLocked(c, newErrorMessage(errInvalidLocation))
		return "rejected"
	}

	name := env.Name
	if name == "" {
		if sess, ok := h.sessions.Get(id); ok {
			name = sess.Name
		}
	}

	loc := h.locations.Upsert(id, env.Lat.Value, env.Lng.Value, name, now)
	h.sessions.Touch(id, now)
	metrics.HubSharedLocations.Set(float64(h.locations.Count()))

	h.broadcastLocked(newLocationUpdateMessage(loc))
	return "ok"
}

func (h *Hub) handleStopSharing(c *Client, env *envelope, now time.Time) string {
	id, registered := h.identity[c]
	if !registered {
		h.sendToLocked(c, newErrorMessage(errNotRegistered))
		return "rejected"
	}

	target := id
	if s, ok := env.userIDString(); ok {
		target = s
	}

	// No location for the target is a silent no-op, not an error.
	if h.locations.Remove(target) {
		metrics.HubSharedLocations.Set(float64(h.locations.Count()))
		h.broadcastLocked(locationStopMessage{
			Type:      typeLocationStop,
			UserID:    target,
			Timestamp: now.UnixMilli(),
		})
	}
	return "ok"
}

func (h *Hub) handleTrackUser(c *Client, env *envelope, now time.Time) string {
	if env.TargetUserID == "" {
		h.sendToLocked(c, newErrorMessage(errTargetRequired))
		return "rejected"
	}

	// A target without an active location gets no reply at all.
	if loc, ok := h.locations.Active(env.TargetUserID, now, h.opts.LocationTTL); ok {
		h.sendToLocked(c, newLocationUpdateMessage(loc))
	}
	return "ok"
}

// Disconnect removes c from the hub and tears down any session it owned.
// Safe to call more than once; only the first call broadcasts.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	if c.regTimer != nil {
		c.regTimer.Stop()
	}

	now := h.clock.Now()
	if id, registered := h.identity[c]; registered {
		delete(h.identity, c)
		if h.byIdentity[id] == c {
			delete(h.byIdentity, id)
		}
		h.sessions.Remove(id)
		h.limiter.Forget(id)

		if h.locations.Remove(id) {
			h.broadcastLocked(locationStopMessage{
				Type:      typeLocationStop,
				UserID:    id,
				Timestamp: now.UnixMilli(),
			})
		}
		h.broadcastUserListLocked(now)

		metrics.HubRegisteredSessions.Set(float64(h.sessions.Count()))
		metrics.HubSharedLocations.Set(float64(h.locations.Count()))
		slog.Info("Client disconnected", "user_id", id, "sessions", h.sessions.Count())
	} else {
		slog.Debug("Unregistered client disconnected", "connection_id", c.id.String())
	}
	connected := len(h.clients)
	h.mu.Unlock()

	metrics.HubConnectedClients.Set(float64(connected))
	c.writer.stop()
}

// registrationTimeout fires when a connection failed to register in time.
func (h *Hub) registrationTimeout(c *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if _, open := h.clients[c]; !open {
		h.mu.Unlock()
		return
	}
	if _, registered := h.identity[c]; registered {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	metrics.HubRegistrationTimeoutsTotal.Inc()
	slog.Info("Closing connection: no registration", "connection_id", c.id.String())

	c.writer.stopWithClose(websocket.CloseNormalClosure, "no registration")
	h.Disconnect(c)
}

// Stats returns a consistent snapshot of hub counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	return Stats{
		ConnectedClients:   len(h.clients),
		RegisteredSessions: h.sessions.Count(),
		SharedLocations:    h.locations.Count(),
		ActiveLocations:    len(h.locations.ActiveSnapshot(now, h.opts.LocationTTL)),
	}
}

// Stop shuts the hub down: the janitor exits and every connection gets a
// going-away close frame. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.janitorDone)

		h.mu.Lock()
		h.stopped = true
		remaining := make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			remaining = append(remaining, c)
			if c.regTimer != nil {
				c.regTimer.Stop()
			}
		}
		h.clients = make(map[*Client]struct{})
		h.identity = make(map[*Client]string)
		h.byIdentity = make(map[string]*Client)
		h.mu.Unlock()

		for _, c := range remaining {
			c.writer.stopWithClose(websocket.CloseGoingAway, "Server shutting down")
		}

		metrics.HubConnectedClients.Set(0)
		metrics.HubRegisteredSessions.Set(0)
		slog.Info("Hub stopped", "disconnected_clients", len(remaining))
	})
}

// --- Fan-out ---

// broadcastLocked serializes v once and delivers it best-effort to every
// open connection, registered or not. Returns the delivered count; failures
// are counted and logged, never escalated.
func (h *Hub) broadcastLocked(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return 0
	}

	metrics.HubBroadcastsTotal.Inc()

	delivered := 0
	for c := range h.clients {
		if c.writer.trySend(data) {
			delivered++
		} else {
			metrics.HubBroadcastFailuresTotal.Inc()
			slog.Debug("Dropped broadcast to slow client", "connection_id", c.id.String())
		}
	}
	return delivered
}

func (h *Hub) broadcastUserListLocked(now time.Time) {
	h.broadcastLocked(userListMessage{
		Type:      typeUserList,
		Users:     h.sessions.Snapshot(),
		Timestamp: now.UnixMilli(),
	})
}

// sendToLocked delivers v to a single client with the same best-effort
// contract as a broadcast.
func (h *Hub) sendToLocked(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal message", "error", err)
		return
	}
	if !c.writer.trySend(data) {
		metrics.HubBroadcastFailuresTotal.Inc()
		slog.Debug("Dropped message to slow client", "connection_id", c.id.String())
	}
}

// sendTo is sendToLocked for callers not holding the hub lock.
func (h *Hub) sendTo(c *Client, v any) {
	h.sendToLocked(c, v)
}

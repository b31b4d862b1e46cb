package hub

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/Nonith-Rao/Live-Tracking/internal/presence"
)

// Inbound message types.
const (
	typeRegister       = "register"
	typeLocationUpdate = "location_update"
	typeStopSharing    = "stop_sharing"
	typeTrackUser      = "track_user"
	typePing           = "ping"
)

// Outbound message types.
const (
	typeWelcome             = "welcome"
	typeRegistrationSuccess = "registration_success"
	typeError               = "error"
	typeUserList            = "user_list"
	typeLocationStop        = "location_stop"
	typePong                = "pong"
)

// Error reply texts. Clients match on these strings, so they are part of the
// wire contract.
const (
	errInvalidJSON     = "Invalid JSON"
	errInvalidFormat   = "Invalid message format"
	errRateLimited     = "Rate limit exceeded"
	errNotRegistered   = "Not registered"
	errInvalidLocation = "Invalid location data"
	errUserIDRequired  = "User ID is required"
	errTargetRequired  = "Target user ID is required"
	errServerFull      = "Server at capacity"
)

// Coordinate accepts a JSON number or a numeric string. A value that is
// neither leaves Valid false instead of failing the whole envelope, so the
// handler can answer with a location-specific error.
type Coordinate struct {
	Value float64
	Valid bool
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	// Unmarshalling null into a float64 is a silent no-op, so catch it here.
	if string(data) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		c.Value = f
		c.Valid = !math.IsNaN(f) && !math.IsInf(f, 0)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			c.Value = f
			c.Valid = true
		}
		return nil
	}

	return nil
}

// envelope is the first-stage decode of an inbound frame. UserID is typed any
// so a numeric or missing userId yields a protocol error reply instead of a
// decode failure.
type envelope struct {
	Type         string     `json:"type"`
	UserID       any        `json:"userId"`
	Name         string     `json:"name"`
	Lat          Coordinate `json:"lat"`
	Lng          Coordinate `json:"lng"`
	TargetUserID string     `json:"targetUserId"`
}

// userIDString returns the userId field if it is a non-empty string.
func (e *envelope) userIDString() (string, bool) {
	s, ok := e.UserID.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// --- Outbound shapes ---

type welcomeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type registrationSuccessMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type userListMessage struct {
	Type      string                 `json:"type"`
	Users     []presence.SessionInfo `json:"users"`
	Timestamp int64                  `json:"timestamp"`
}

type locationUpdateMessage struct {
	Type      string  `json:"type"`
	UserID    string  `json:"userId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"`
}

type locationStopMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type pongMessage struct {
	Type string `json:"type"`
}

func newErrorMessage(text string) errorMessage {
	return errorMessage{Type: typeError, Message: text}
}

func newLocationUpdateMessage(loc *presence.Location) locationUpdateMessage {
	return locationUpdateMessage{
		Type:      typeLocationUpdate,
		UserID:    loc.UserID,
		Lat:       loc.Latitude,
		Lng:       loc.Longitude,
		Name:      loc.Name,
		Timestamp: loc.UpdatedAt.UnixMilli(),
	}
}

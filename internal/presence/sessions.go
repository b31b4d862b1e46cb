package presence

import "time"

// DefaultName is used when a client registers without a display name.
const DefaultName = "Anonymous"

// Session is the live binding of an identity to a connection plus its
// display metadata.
type Session struct {
	UserID      string
	Name        string
	ConnectedAt time.Time
	LastSeen    time.Time
}

// SessionInfo is the wire-facing view of a session used in user lists.
type SessionInfo struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	ConnectedAt int64  `json:"connectedAt"`
}

// Sessions maps identities to their session metadata, preserving insertion
// order so snapshots are deterministic.
type Sessions struct {
	byID  map[string]*Session
	order []string
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*Session)}
}

// Upsert creates or overwrites the session for id. An empty name falls back
// to DefaultName. Re-registration resets ConnectedAt; the identity keeps its
// original position in the snapshot order.
func (s *Sessions) Upsert(id, name string, now time.Time) *Session {
	if name == "" {
		name = DefaultName
	}
	sess := &Session{
		UserID:      id,
		Name:        name,
		ConnectedAt: now,
		LastSeen:    now,
	}
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	s.byID[id] = sess
	return sess
}

// Touch refreshes LastSeen for id. Unknown identities are ignored.
func (s *Sessions) Touch(id string, now time.Time) {
	if sess, ok := s.byID[id]; ok {
		sess.LastSeen = now
	}
}

func (s *Sessions) Get(id string) (*Session, bool) {
	sess, ok := s.byID[id]
	return sess, ok
}

// Remove deletes the session for id, reporting whether one existed.
func (s *Sessions) Remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Sessions) Count() int {
	return len(s.byID)
}

// Snapshot returns the current sessions in insertion order.
func (s *Sessions) Snapshot() []SessionInfo {
	infos := make([]SessionInfo, 0, len(s.order))
	for _, id := range s.order {
		sess := s.byID[id]
		infos = append(infos, SessionInfo{
			UserID:      sess.UserID,
			Name:        sess.Name,
			ConnectedAt: sess.ConnectedAt.UnixMilli(),
		})
	}
	return infos
}

// Package realtime implements the connection registry, room router and
// event dispatcher that deliver lifecycle events to live participants.
package realtime

import (
	"sync"

	"closedesk/domain/events"
	"closedesk/pkg/auth"
)

// Session is the live binding between a connection and an identity. A
// session starts unauthenticated; UserID and Role are set exactly once
// by a successful authenticate call.
type Session struct {
	ConnectionID string
	UserID       string
	Role         auth.Role
	Rooms        map[events.RoomID]struct{}
}

// Authenticated reports whether the session carries an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// ConnectionStore tracks sessions and room membership. The in-memory
// implementation below serves a single service instance; a shared
// external store (see the Redis bridge under infrastructure/realtime)
// is the extension point for running several instances.
//
// Membership is mutated only through these methods; no other component
// touches it.
type ConnectionStore interface {
	// Register creates an unauthenticated session stub.
	Register(connectionID string)
	// Authenticate binds an identity to the session. It returns the
	// connection ID of a previous session held by the same user, if
	// any, so the caller can evict it: a user maps to at most one
	// active session per instance.
	Authenticate(connectionID, userID string, role auth.Role) (previous string, ok bool)
	// Join adds the session to a room. Joining twice is a no-op.
	Join(connectionID string, room events.RoomID)
	// Leave removes the session from a room. Leaving a room not joined
	// is a no-op.
	Leave(connectionID string, room events.RoomID)
	// Members returns the connection IDs currently in a room. An
	// unknown room yields an empty slice, not an error.
	Members(room events.RoomID) []string
	// Get returns a snapshot of the session.
	Get(connectionID string) (Session, bool)
	// Deregister removes the session from every room and drops it.
	// This is the only path that frees membership state.
	Deregister(connectionID string)
}

// MemoryStore is the in-process ConnectionStore. All maps are guarded
// by one mutex; reads and writes are never assumed atomic for free.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[events.RoomID]map[string]struct{}
	byUser   map[string]string // userID -> connectionID
}

// NewMemoryStore creates an empty in-memory connection store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		rooms:    make(map[events.RoomID]map[string]struct{}),
		byUser:   make(map[string]string),
	}
}

func (s *MemoryStore) Register(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[connectionID]; exists {
		return
	}
	s.sessions[connectionID] = &Session{
		ConnectionID: connectionID,
		Rooms:        make(map[events.RoomID]struct{}),
	}
}

func (s *MemoryStore) Authenticate(connectionID, userID string, role auth.Role) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[connectionID]
	if !exists {
		return "", false
	}

	previous := ""
	if prev, taken := s.byUser[userID]; taken && prev != connectionID {
		previous = prev
	}

	sess.UserID = userID
	sess.Role = role
	s.byUser[userID] = connectionID
	return previous, true
}

func (s *MemoryStore) Join(connectionID string, room events.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[connectionID]
	if !exists {
		return
	}
	if _, joined := sess.Rooms[room]; joined {
		return
	}
	sess.Rooms[room] = struct{}{}
	if s.rooms[room] == nil {
		s.rooms[room] = make(map[string]struct{})
	}
	s.rooms[room][connectionID] = struct{}{}
}

func (s *MemoryStore) Leave(connectionID string, room events.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveLocked(connectionID, room)
}

func (s *MemoryStore) leaveLocked(connectionID string, room events.RoomID) {
	sess, exists := s.sessions[connectionID]
	if !exists {
		return
	}
	delete(sess.Rooms, room)
	if members, ok := s.rooms[room]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
}

func (s *MemoryStore) Members(room events.RoomID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

func (s *MemoryStore) Get(connectionID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[connectionID]
	if !exists {
		return Session{}, false
	}
	snapshot := Session{
		ConnectionID: sess.ConnectionID,
		UserID:       sess.UserID,
		Role:         sess.Role,
		Rooms:        make(map[events.RoomID]struct{}, len(sess.Rooms)),
	}
	for room := range sess.Rooms {
		snapshot.Rooms[room] = struct{}{}
	}
	return snapshot, true
}

func (s *MemoryStore) Deregister(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[connectionID]
	if !exists {
		return
	}
	for room := range sess.Rooms {
		s.leaveLocked(connectionID, room)
	}
	if sess.UserID != "" && s.byUser[sess.UserID] == connectionID {
		delete(s.byUser, sess.UserID)
	}
	delete(s.sessions, connectionID)
}

package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/game"
	"github.com/recallhq/recall/internal/hooks"
)

type room struct {
	id         string
	ownerID    uuid.UUID
	minPlayers int
	maxSize    int
	sessions   map[string]*session
}

// roomManager tracks rooms and session membership. It implements
// game.RoomManager and fires lifecycle hooks on every membership change.
type roomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	byRoomOf map[string]string // session id -> room id
	bus      *hooks.Registry
}

func newRoomManager(bus *hooks.Registry) *roomManager {
	return &roomManager{
		rooms:    make(map[string]*room),
		byRoomOf: make(map[string]string),
		bus:      bus,
	}
}

// GetRoomForSession implements game.RoomManager.
func (m *roomManager) GetRoomForSession(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.byRoomOf[sessionID]
	return roomID, ok
}

// GetRoomInfo implements game.RoomManager.
func (m *roomManager) GetRoomInfo(roomID string) (game.RoomInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return game.RoomInfo{}, false
	}
	return game.RoomInfo{OwnerID: r.ownerID, MinPlayers: r.minPlayers, MaxSize: r.maxSize}, true
}

func (m *roomManager) ownerOf(roomID string) uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rooms[roomID]; ok {
		return r.ownerID
	}
	return uuid.Nil
}

func (m *roomManager) createRoom(sess *session, minPlayers, maxSize int) (string, error) {
	if minPlayers < 2 {
		minPlayers = 2
	}
	if maxSize < minPlayers {
		maxSize = 6
	}
	roomID := uuid.NewString()[:8]

	m.mu.Lock()
	if _, in := m.byRoomOf[sess.id]; in {
		m.mu.Unlock()
		return "", fmt.Errorf("session already in a room")
	}
	r := &room{
		id:         roomID,
		ownerID:    sess.userID,
		minPlayers: minPlayers,
		maxSize:    maxSize,
		sessions:   map[string]*session{sess.id: sess},
	}
	m.rooms[roomID] = r
	m.byRoomOf[sess.id] = roomID
	m.mu.Unlock()

	m.bus.Trigger(hooks.RoomCreated, hooks.Event{
		RoomID:     roomID,
		SessionID:  sess.id,
		UserID:     sess.userID,
		OwnerID:    sess.userID,
		MinPlayers: minPlayers,
		MaxSize:    maxSize,
	}, "")
	m.bus.Trigger(hooks.RoomJoined, hooks.Event{
		RoomID:    roomID,
		SessionID: sess.id,
		UserID:    sess.userID,
		OwnerID:   sess.userID,
		Data:      map[string]any{"username": sess.username},
	}, "")
	return roomID, nil
}

func (m *roomManager) joinRoom(sess *session, roomID string) error {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("room %s not found", roomID)
	}
	if _, in := m.byRoomOf[sess.id]; in {
		m.mu.Unlock()
		return fmt.Errorf("session already in a room")
	}
	if r.maxSize > 0 && len(r.sessions) >= r.maxSize {
		m.mu.Unlock()
		return fmt.Errorf("room %s is full", roomID)
	}
	r.sessions[sess.id] = sess
	m.byRoomOf[sess.id] = roomID
	owner := r.ownerID
	m.mu.Unlock()

	m.bus.Trigger(hooks.RoomJoined, hooks.Event{
		RoomID:    roomID,
		SessionID: sess.id,
		UserID:    sess.userID,
		OwnerID:   owner,
		Data:      map[string]any{"username": sess.username},
	}, "")
	return nil
}

// leaveRoom removes the session from its room, closing the room when the
// owner leaves or the room empties.
func (m *roomManager) leaveRoom(sess *session) {
	m.mu.Lock()
	roomID, in := m.byRoomOf[sess.id]
	if !in {
		m.mu.Unlock()
		return
	}
	r := m.rooms[roomID]
	delete(r.sessions, sess.id)
	delete(m.byRoomOf, sess.id)
	closing := sess.userID == r.ownerID || len(r.sessions) == 0
	var remaining []*session
	if closing {
		for _, other := range r.sessions {
			remaining = append(remaining, other)
			delete(m.byRoomOf, other.id)
		}
		delete(m.rooms, roomID)
	}
	owner := r.ownerID
	m.mu.Unlock()

	m.bus.Trigger(hooks.LeaveRoom, hooks.Event{
		RoomID:    roomID,
		SessionID: sess.id,
		UserID:    sess.userID,
		OwnerID:   owner,
	}, "")
	if closing {
		for _, other := range remaining {
			m.bus.Trigger(hooks.LeaveRoom, hooks.Event{
				RoomID:    roomID,
				SessionID: other.id,
				UserID:    other.userID,
				OwnerID:   owner,
			}, "")
		}
		m.bus.Trigger(hooks.RoomClosed, hooks.Event{
			RoomID:  roomID,
			OwnerID: owner,
		}, "")
	}
}

// sessionsIn snapshots the sessions currently in a room.
func (m *roomManager) sessionsIn(roomID string) []*session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

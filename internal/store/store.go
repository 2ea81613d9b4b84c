// Package store holds the authoritative per-room game state. Each room's
// state lives behind its own lock, so mutations to one room serialize while
// different rooms proceed independently.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
)

// RoomGameState is the full authoritative state of one room's round.
type RoomGameState struct {
	GameID       uuid.UUID        `json:"gameId"`
	GameName     string           `json:"gameName"`
	Players      []*models.Player `json:"players"`
	DrawPile     []uuid.UUID      `json:"-"`
	DiscardPile  []*models.Card   `json:"-"`
	OriginalDeck []*models.Card   `json:"-"`
	Phase        models.GamePhase `json:"phase"`
	IsGameActive bool             `json:"isGameActive"`
	MinPlayers   int              `json:"minPlayers"`
	MaxPlayers   int              `json:"maxPlayers"`
	LastUpdated  time.Time        `json:"lastUpdated"`
}

// PlayerCount is always derived from the player list, never stored.
func (s *RoomGameState) PlayerCount() int {
	return len(s.Players)
}

// CardByID resolves a card identifier against the room's card universe.
// Linear scan; deck sizes are bounded.
func (s *RoomGameState) CardByID(id uuid.UUID) *models.Card {
	for _, c := range s.OriginalDeck {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// PlayerByID returns the seated player with the given ID, or nil.
func (s *RoomGameState) PlayerByID(id uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

type entry struct {
	mu    sync.Mutex
	state *RoomGameState
}

// Store maps room IDs to their game state.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

// New returns an empty store.
func New() *Store {
	return &Store{rooms: make(map[string]*entry)}
}

func defaultState() *RoomGameState {
	return &RoomGameState{
		Phase:       models.PhaseWaitingForPlayers,
		MinPlayers:  2,
		MaxPlayers:  6,
		LastUpdated: time.Now(),
	}
}

func (st *Store) entryFor(roomID string) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.rooms[roomID]
	if !ok {
		e = &entry{state: defaultState()}
		st.rooms[roomID] = e
	}
	return e
}

// Ensure makes sure a state skeleton exists for the room. Never fails.
func (st *Store) Ensure(roomID string) {
	st.entryFor(roomID)
}

// MergeRoot applies fn to the room's state under the room lock and stamps
// LastUpdated. The room is created if missing. fn must not retain the
// state pointer past its return.
func (st *Store) MergeRoot(roomID string, fn func(*RoomGameState)) {
	e := st.entryFor(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
	e.state.LastUpdated = time.Now()
}

// SetGameState replaces the room's entire state.
func (st *Store) SetGameState(roomID string, state *RoomGameState) {
	e := st.entryFor(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()
	state.LastUpdated = time.Now()
	e.state = state
}

// View runs fn with read access to the room's state under the room lock.
// Returns false if the room has no state.
func (st *Store) View(roomID string, fn func(*RoomGameState)) bool {
	st.mu.RLock()
	e, ok := st.rooms[roomID]
	st.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
	return true
}

// GetCardByID looks a card up in the room's original deck. The original
// deck is the card universe for the room, so any card that exists in a
// hand or pile is found here.
func (st *Store) GetCardByID(roomID string, cardID uuid.UUID) (*models.Card, bool) {
	var found *models.Card
	ok := st.View(roomID, func(s *RoomGameState) {
		for _, c := range s.OriginalDeck {
			if c.ID == cardID {
				found = c
				return
			}
		}
	})
	if !ok || found == nil {
		return nil, false
	}
	return found, true
}

// Clear drops the room's state entirely.
func (st *Store) Clear(roomID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.rooms, roomID)
}

package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
)

// Transport delivers outbound messages. Implementations must not call back
// into the round synchronously; sends are fire-and-forget.
type Transport interface {
	SendToSession(sessionID string, message any)
	BroadcastToRoom(roomID string, message any)
	BroadcastToRoomExcept(roomID string, message any, excludeSessionID string)
	GetRoomOwner(roomID string) uuid.UUID
}

// RoomInfo is the room metadata the engine needs from the room manager.
type RoomInfo struct {
	OwnerID    uuid.UUID
	MinPlayers int
	MaxSize    int
}

// RoomManager resolves sessions to rooms. Owned by the transport layer.
type RoomManager interface {
	GetRoomForSession(sessionID string) (string, bool)
	GetRoomInfo(roomID string) (RoomInfo, bool)
}

// Historian records one audit entry per handled action. Implementations
// must return quickly; publishing happens off the hot path.
type Historian interface {
	Record(action models.GameAction)
}

// Persister stores round snapshots outside the process. Best-effort; the
// round never blocks on it.
type Persister interface {
	SaveInitialDeal(roomID string, gameID uuid.UUID, players []*models.Player)
	SaveResults(roomID string, gameID uuid.UUID, results []PlayerResult)
}

// Config carries the tunable round parameters.
type Config struct {
	CardsPerPlayer        int
	SameRankWindow        time.Duration
	TurnTimer             time.Duration
	RecallAllowedFromTurn int
}

// DefaultConfig mirrors the standard table rules.
func DefaultConfig() Config {
	return Config{
		CardsPerPlayer:        4,
		SameRankWindow:        5 * time.Second,
		TurnTimer:             15 * time.Second,
		RecallAllowedFromTurn: 0,
	}
}

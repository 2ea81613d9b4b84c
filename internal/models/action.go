package models

import (
	"time"

	"github.com/google/uuid"
)

// GameAction is one audit record for the action historian. One record is
// published per handled player action, accepted or rejected.
type GameAction struct {
	GameID    uuid.UUID      `json:"gameId"`
	PlayerID  uuid.UUID      `json:"playerId"`
	Event     string         `json:"event"`
	Accepted  bool           `json:"accepted"`
	ErrorCode string         `json:"errorCode,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

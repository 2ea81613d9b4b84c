package game

import (
	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// SnapshotPlayer is the public view of one seat. Hand faces never appear
// here; they travel only through private events.
type SnapshotPlayer struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	IsHuman         bool                `json:"isHuman"`
	Status          models.PlayerStatus `json:"status"`
	HandCount       int                 `json:"handCount"`
	Connected       bool                `json:"connected"`
	HasCalledRecall bool                `json:"hasCalledRecall"`
	HasDrawnCard    bool                `json:"hasDrawnCard"`
}

// Snapshot is the public room state broadcast on every change.
type Snapshot struct {
	GameID          uuid.UUID        `json:"gameId"`
	GameName        string           `json:"gameName,omitempty"`
	Phase           models.GamePhase `json:"phase"`
	IsGameActive    bool             `json:"isGameActive"`
	CurrentPlayerID uuid.UUID        `json:"currentPlayerId,omitempty"`
	TurnNumber      int              `json:"turnNumber"`
	DrawPileCount   int              `json:"drawPileCount"`
	DiscardCount    int              `json:"discardCount"`
	DiscardTop      *EventCard       `json:"discardTop,omitempty"`
	Players         []SnapshotPlayer `json:"players"`
	MinPlayers      int              `json:"minPlayers"`
	MaxPlayers      int              `json:"maxPlayers"`
	RecallCalledBy  uuid.UUID        `json:"recallCalledBy,omitempty"`
}

// buildSnapshot renders the public view of the room.
// Assumes lock is held by caller.
func buildSnapshot(r *Round, s *store.RoomGameState) *Snapshot {
	snap := &Snapshot{
		GameID:         s.GameID,
		GameName:       s.GameName,
		Phase:          s.Phase,
		IsGameActive:   s.IsGameActive,
		TurnNumber:     r.turnNumber,
		DrawPileCount:  len(s.DrawPile),
		DiscardCount:   len(s.DiscardPile),
		MinPlayers:     s.MinPlayers,
		MaxPlayers:     s.MaxPlayers,
		RecallCalledBy: r.recallCallerID,
	}
	if (s.Phase == models.PhaseActive || s.Phase == models.PhaseRecallCalled) &&
		r.currentPlayerIndex >= 0 && r.currentPlayerIndex < len(s.Players) {
		snap.CurrentPlayerID = s.Players[r.currentPlayerIndex].ID
	}
	if n := len(s.DiscardPile); n > 0 {
		top := s.DiscardPile[n-1]
		snap.DiscardTop = openCard(top, uuid.Nil)
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, SnapshotPlayer{
			ID:              p.ID,
			Name:            p.Name,
			IsHuman:         p.IsHuman,
			Status:          p.Status,
			HandCount:       len(p.Hand),
			Connected:       p.Connected,
			HasCalledRecall: p.HasCalledRecall,
			HasDrawnCard:    p.DrawnCard != nil,
		})
	}
	return snap
}

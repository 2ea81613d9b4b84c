package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
)

// Outbound event types. Private events go to a single session; the rest
// are room broadcasts.
const (
	EventRoundStarted       = "round_started"
	EventGameStateUpdated   = "game_state_updated"
	EventTurnChanged        = "turn_changed"
	EventPlayerDrewCard     = "player_drew_card"
	EventCardPlayed         = "card_played"
	EventSameRankPlayed     = "same_rank_played"
	EventSameRankWindow     = "same_rank_window_opened"
	EventSameRankWindowEnd  = "same_rank_window_closed"
	EventJackSwapDone       = "jack_swap_done"
	EventRecallCalled       = "recall_called"
	EventRoundEnded         = "round_ended"
	EventRoundAborted       = "round_aborted"
	EventPrivateDrawnCard   = "private_drawn_card"
	EventPrivateRevealCards = "private_reveal_cards"
	EventPrivateQueenPeek   = "private_queen_peek"
)

// EventCard is the wire view of a card. Rank/suit/points are omitted for
// cards the recipient is not entitled to see.
type EventCard struct {
	ID      uuid.UUID `json:"id"`
	Rank    string    `json:"rank,omitempty"`
	Suit    string    `json:"suit,omitempty"`
	Points  int       `json:"points,omitempty"`
	OwnerID uuid.UUID `json:"ownerId,omitempty"`
}

// GameEvent is the single outbound message shape. Fields are omitted when
// empty so each event type carries only what it needs.
type GameEvent struct {
	Type      string         `json:"type"`
	RoomID    string         `json:"roomId,omitempty"`
	PlayerID  uuid.UUID      `json:"playerId,omitempty"`
	Card      *EventCard     `json:"card,omitempty"`
	Card1     *EventCard     `json:"card1,omitempty"`
	Card2     *EventCard     `json:"card2,omitempty"`
	Cards     []*EventCard   `json:"cards,omitempty"`
	Special   string         `json:"special,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	State     *Snapshot      `json:"state,omitempty"`
	Results   []PlayerResult `json:"results,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

func publicCard(c *models.Card, ownerID uuid.UUID) *EventCard {
	return &EventCard{ID: c.ID, OwnerID: ownerID}
}

func openCard(c *models.Card, ownerID uuid.UUID) *EventCard {
	return &EventCard{
		ID:      c.ID,
		Rank:    c.Rank,
		Suit:    c.Suit,
		Points:  c.Points,
		OwnerID: ownerID,
	}
}

func stamp(ev GameEvent) GameEvent {
	ev.Timestamp = time.Now().UnixMilli()
	return ev
}

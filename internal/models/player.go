package models

import "github.com/google/uuid"

// PlayerStatus is the per-player protocol state inside a round.
type PlayerStatus string

const (
	StatusIdle           PlayerStatus = "idle"
	StatusChoosingDeck   PlayerStatus = "choosing_deck"
	StatusChoosingCard   PlayerStatus = "choosing_card"
	StatusRevealCards    PlayerStatus = "reveal_cards"
	StatusSameRankWindow PlayerStatus = "same_rank_window"
	StatusJackSpecial    PlayerStatus = "jack_special"
	StatusQueenSpecial   PlayerStatus = "queen_special"
)

// GamePhase is the round-level lifecycle state.
type GamePhase string

const (
	PhaseWaitingForPlayers GamePhase = "waiting_for_players"
	PhaseSetup             GamePhase = "setup"
	PhaseActive            GamePhase = "active"
	PhaseRecallCalled      GamePhase = "recall_called"
	PhaseEnded             GamePhase = "ended"
)

type Player struct {
	ID        uuid.UUID    `json:"id"`
	SessionID string       `json:"-"`
	Name      string       `json:"name"`
	IsHuman   bool         `json:"isHuman"`
	Status    PlayerStatus `json:"status"`
	Hand      []*Card      `json:"hand"`
	Connected bool         `json:"connected"`

	// VisibleCards are the initial-peek cards the player chose during setup.
	VisibleCards []*Card `json:"-"`

	// KnownCards is the player's private memory of faces they have seen,
	// keyed by card ID. Survives swaps; only the owner ever receives it.
	KnownCards map[uuid.UUID]CardFace `json:"-"`

	// CollectionRankCards holds cards banked through accepted same-rank plays.
	CollectionRankCards []*Card `json:"-"`

	// DrawnCard holds the most recently drawn card (not yet discarded or swapped).
	DrawnCard *Card `json:"-"`

	Points          int  `json:"points"`
	HasCalledRecall bool `json:"hasCalledRecall"`
}

// NewPlayer returns a connected human player with empty memory.
func NewPlayer(id uuid.UUID, sessionID, name string) *Player {
	return &Player{
		ID:         id,
		SessionID:  sessionID,
		Name:       name,
		IsHuman:    true,
		Status:     StatusIdle,
		Connected:  true,
		KnownCards: make(map[uuid.UUID]CardFace),
	}
}

// NewComputerPlayer returns a bot seat used to top up a short table.
func NewComputerPlayer(name string) *Player {
	return &Player{
		ID:         uuid.New(),
		Name:       name,
		IsHuman:    false,
		Status:     StatusIdle,
		Connected:  true,
		KnownCards: make(map[uuid.UUID]CardFace),
	}
}

// RemoveFromHand detaches the card with the given ID from the hand and
// returns it, or nil if the player does not hold it.
func (p *Player) RemoveFromHand(cardID uuid.UUID) *Card {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c
		}
	}
	return nil
}

// HandCard returns the held card with the given ID, or nil.
func (p *Player) HandCard(cardID uuid.UUID) *Card {
	for _, c := range p.Hand {
		if c.ID == cardID {
			return c
		}
	}
	return nil
}

// HandPoints sums the point values of the cards still in hand.
func (p *Player) HandPoints() int {
	total := 0
	for _, c := range p.Hand {
		total += c.Points
	}
	return total
}

// Remember records that the player has seen the face of the given card.
func (p *Player) Remember(c *Card) {
	if p.KnownCards == nil {
		p.KnownCards = make(map[uuid.UUID]CardFace)
	}
	p.KnownCards[c.ID] = c.Face()
}

package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// HandleDrawCard moves one card from the named pile into the player's
// transient drawn slot. Legal only at the start of the player's own turn.
func (r *Round) HandleDrawCard(playerID uuid.UUID, source string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseActive {
			return reject(ErrWrongPhase, "drawing is only legal while the round is active")
		}
		p := s.PlayerByID(playerID)
		if p == nil {
			return reject(ErrUnknownPlayer, "player %s not in room", playerID)
		}
		if !r.isCurrentPlayer(s, playerID) {
			return reject(ErrNotYourTurn, "it is not your turn")
		}
		if p.Status != models.StatusChoosingDeck {
			return reject(ErrWrongPhase, "already drew this turn")
		}

		var card *models.Card
		switch source {
		case "", "deck":
			source = "deck"
			card = r.drawFromDrawPile(s)
			if card == nil {
				r.abortRound(s, "draw and discard piles exhausted")
				return reject(ErrDeckExhausted, "no cards left to draw")
			}
			// Face goes to the drawer only.
			r.broadcast(GameEvent{Type: EventPlayerDrewCard, RoomID: r.RoomID, PlayerID: p.ID,
				Card: publicCard(card, p.ID), Payload: map[string]any{"source": source, "drawPileSize": len(s.DrawPile)}})
		case "discard":
			if len(s.DiscardPile) == 0 {
				return reject(ErrInvalidSelection, "discard pile is empty")
			}
			card = s.DiscardPile[len(s.DiscardPile)-1]
			s.DiscardPile = s.DiscardPile[:len(s.DiscardPile)-1]
			// The discard top was public, so the whole room sees the face.
			r.broadcast(GameEvent{Type: EventPlayerDrewCard, RoomID: r.RoomID, PlayerID: p.ID,
				Card: openCard(card, p.ID), Payload: map[string]any{"source": source, "discardPileSize": len(s.DiscardPile)}})
		default:
			return reject(ErrInvalidPayload, "unknown draw source %q", source)
		}

		p.DrawnCard = card
		p.Remember(card)
		p.Status = models.StatusChoosingCard
		r.sendToPlayer(p, GameEvent{Type: EventPrivateDrawnCard, RoomID: r.RoomID,
			Card: openCard(card, p.ID), Payload: map[string]any{"source": source}})
		r.logAction(p.ID, "draw_card", true, "", map[string]any{"source": source, "cardId": card.ID})
		return nil
	})
}

// HandlePlayCard plays either the drawn card or an existing hand card onto
// the discard pile. Playing a hand card moves the drawn card into its
// slot. A special-power card opens its sub-protocol; all other players get
// a same-rank window on the played rank.
func (r *Round) HandlePlayCard(playerID, cardID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseActive && s.Phase != models.PhaseRecallCalled {
			return reject(ErrWrongPhase, "playing is only legal while the round is active")
		}
		p := s.PlayerByID(playerID)
		if p == nil {
			return reject(ErrUnknownPlayer, "player %s not in room", playerID)
		}
		if !r.isCurrentPlayer(s, playerID) {
			return reject(ErrNotYourTurn, "it is not your turn")
		}
		if p.Status != models.StatusChoosingCard || p.DrawnCard == nil {
			return reject(ErrWrongPhase, "must draw before playing")
		}

		drawn := p.DrawnCard
		var played *models.Card
		if cardID == drawn.ID {
			played = drawn
			p.DrawnCard = nil
		} else {
			held := p.HandCard(cardID)
			if held == nil {
				return reject(ErrCardNotFound, "card %s is not your drawn card or in your hand", cardID)
			}
			// The drawn card takes the played card's slot.
			for i, c := range p.Hand {
				if c.ID == held.ID {
					p.Hand[i] = drawn
					break
				}
			}
			p.DrawnCard = nil
			played = held
		}

		s.DiscardPile = append(s.DiscardPile, played)
		p.Status = models.StatusIdle
		if r.turnTimer != nil {
			r.turnTimer.Stop()
			r.turnTimer = nil
		}
		r.broadcast(GameEvent{Type: EventCardPlayed, RoomID: r.RoomID, PlayerID: p.ID, Card: openCard(played, p.ID)})
		r.logAction(p.ID, "play_card", true, "", map[string]any{"cardId": played.ID})

		if played.HasSpecial() {
			r.startSpecial(s, p, played)
		}
		r.openWindow(s, played.Rank, p.ID)
		r.broadcastState(s)
		r.tryAdvance(s)
		return nil
	})
}

// HandleSameRankPlay dumps a hand card matching the open window's rank
// onto the discard pile out of turn. One accepted play per player per
// window.
func (r *Round) HandleSameRankPlay(playerID, cardID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		w := r.window
		if w == nil {
			return reject(ErrWrongPhase, "no same-rank window is open")
		}
		p := s.PlayerByID(playerID)
		if p == nil {
			return reject(ErrUnknownPlayer, "player %s not in room", playerID)
		}
		if !w.eligible[p.ID] {
			return reject(ErrNotYourTurn, "you are not eligible for this window")
		}
		if w.acted[p.ID] {
			return reject(ErrInvalidSelection, "already played into this window")
		}
		card := p.HandCard(cardID)
		if card == nil {
			return reject(ErrCardNotFound, "card %s is not in your hand", cardID)
		}
		if card.Rank != w.rank {
			return reject(ErrInvalidSelection, "card rank %s does not match window rank %s", card.Rank, w.rank)
		}

		p.RemoveFromHand(card.ID)
		s.DiscardPile = append(s.DiscardPile, card)
		w.acted[p.ID] = true
		p.Status = models.StatusIdle
		r.broadcast(GameEvent{Type: EventSameRankPlayed, RoomID: r.RoomID, PlayerID: p.ID, Card: openCard(card, p.ID)})
		r.logAction(p.ID, "same_rank_play", true, "", map[string]any{"cardId": card.ID})
		if len(p.Hand) == 0 {
			log.Printf("Game %s: Player %s emptied their hand.", r.RoomID, p.ID)
		}

		if w.allActed() {
			r.closeWindow(s, "all eligible players acted")
		} else {
			r.broadcastState(s)
		}
		return nil
	})
}

// HandleCallRecall freezes the draw/play loop. The round ends once the
// caller's pending action, its window, and any special resolve.
func (r *Round) HandleCallRecall(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseActive {
			return reject(ErrWrongPhase, "recall can only be called while the round is active")
		}
		p := s.PlayerByID(playerID)
		if p == nil {
			return reject(ErrUnknownPlayer, "player %s not in room", playerID)
		}
		if !r.isCurrentPlayer(s, playerID) {
			return reject(ErrNotYourTurn, "recall is only available on your own turn")
		}
		if r.turnNumber < r.cfg.RecallAllowedFromTurn {
			return reject(ErrWrongPhase, "recall is not available before turn %d", r.cfg.RecallAllowedFromTurn)
		}

		p.HasCalledRecall = true
		r.recallCallerID = p.ID
		s.Phase = models.PhaseRecallCalled
		log.Printf("Game %s: Player %s called recall on turn %d.", r.RoomID, p.ID, r.turnNumber)
		r.broadcast(GameEvent{Type: EventRecallCalled, RoomID: r.RoomID, PlayerID: p.ID})
		r.logAction(p.ID, "call_recall", true, "", map[string]any{"turn": r.turnNumber})

		if p.DrawnCard == nil {
			// Nothing pending; end the turn loop here.
			p.Status = models.StatusIdle
			if r.turnTimer != nil {
				r.turnTimer.Stop()
				r.turnTimer = nil
			}
			r.tryAdvance(s)
		}
		return nil
	})
}

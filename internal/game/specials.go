package game

import (
	"log"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// Selection is one card pick inside a special sub-protocol, identified by
// the owning player and the card.
type Selection struct {
	OwnerID uuid.UUID
	CardID  uuid.UUID
}

// specialState tracks a pending jack or queen sub-protocol for the player
// who played the card.
type specialState struct {
	playerID   uuid.UUID
	power      models.SpecialPower
	selections []Selection
}

func requiredSelections(power models.SpecialPower) int {
	if power == models.SpecialSwap {
		return 2
	}
	return 1
}

// startSpecial opens the sub-protocol for the played card's power.
// Computer players never reach here; they skip powers entirely.
// Assumes lock is held by caller.
func (r *Round) startSpecial(s *store.RoomGameState, p *models.Player, played *models.Card) {
	if !p.IsHuman || !p.Connected {
		return
	}
	r.special = &specialState{playerID: p.ID, power: played.Special}
	switch played.Special {
	case models.SpecialSwap:
		p.Status = models.StatusJackSpecial
	case models.SpecialPeek:
		p.Status = models.StatusQueenSpecial
	}
	log.Printf("Game %s: Player %s opened %s sub-protocol.", r.RoomID, p.ID, played.Special)
	r.broadcast(GameEvent{Type: EventCardPlayed + "_special", RoomID: r.RoomID, PlayerID: p.ID,
		Special: string(played.Special)})
	// A stalled selection must not block the round; the timeout path skips
	// the pending power.
	r.scheduleTurnTimer(p.ID)
}

// HandleSpecialSelection feeds one card selection into the pending
// sub-protocol. A queen resolves on the first selection, a jack on the
// second; surplus selections are rejected.
func (r *Round) HandleSpecialSelection(playerID uuid.UUID, sel Selection) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		sp := r.special
		if sp == nil || sp.playerID != playerID {
			return reject(ErrWrongPhase, "no special action pending for you")
		}
		owner := s.PlayerByID(sel.OwnerID)
		if owner == nil {
			return reject(ErrUnknownPlayer, "selection owner %s not in room", sel.OwnerID)
		}
		card := owner.HandCard(sel.CardID)
		if card == nil {
			return reject(ErrCardNotFound, "card %s is not in player %s's hand", sel.CardID, sel.OwnerID)
		}
		if len(sp.selections) >= requiredSelections(sp.power) {
			return reject(ErrInvalidSelection, "selection limit already reached")
		}
		for _, prev := range sp.selections {
			if prev.CardID == sel.CardID {
				return reject(ErrInvalidSelection, "card %s already selected", sel.CardID)
			}
		}

		sp.selections = append(sp.selections, sel)
		if len(sp.selections) < requiredSelections(sp.power) {
			// Swap still needs its second pick.
			return nil
		}

		// An earlier pick may have left its hand through a same-rank play
		// while the sub-protocol was pending. Drop stale picks and ask again.
		kept := sp.selections[:0]
		for _, prev := range sp.selections {
			if o := s.PlayerByID(prev.OwnerID); o != nil && o.HandCard(prev.CardID) != nil {
				kept = append(kept, prev)
			}
		}
		if len(kept) < requiredSelections(sp.power) {
			sp.selections = kept
			return reject(ErrInvalidSelection, "a selected card is no longer available, select again")
		}

		switch sp.power {
		case models.SpecialPeek:
			r.resolvePeek(s, sp)
		case models.SpecialSwap:
			r.resolveSwap(s, sp)
		}
		return nil
	})
}

// resolvePeek reveals the selected card's face to the acting player only.
// Assumes lock is held by caller.
func (r *Round) resolvePeek(s *store.RoomGameState, sp *specialState) {
	actor := s.PlayerByID(sp.playerID)
	sel := sp.selections[0]
	owner := s.PlayerByID(sel.OwnerID)
	card := owner.HandCard(sel.CardID)

	actor.Remember(card)
	actor.Status = models.StatusIdle
	r.sendToPlayer(actor, GameEvent{Type: EventPrivateQueenPeek, RoomID: r.RoomID,
		Card: openCard(card, owner.ID)})
	r.logAction(actor.ID, "queen_peek", true, "", map[string]any{"cardId": card.ID, "ownerId": owner.ID})

	r.special = nil
	r.tryAdvance(s)
}

// resolveSwap exchanges the two selected cards between their hands without
// revealing either face. Assumes lock is held by caller.
func (r *Round) resolveSwap(s *store.RoomGameState, sp *specialState) {
	actor := s.PlayerByID(sp.playerID)
	a, b := sp.selections[0], sp.selections[1]
	ownerA := s.PlayerByID(a.OwnerID)
	ownerB := s.PlayerByID(b.OwnerID)
	idxA := handIndex(ownerA, a.CardID)
	idxB := handIndex(ownerB, b.CardID)

	ownerA.Hand[idxA], ownerB.Hand[idxB] = ownerB.Hand[idxB], ownerA.Hand[idxA]
	actor.Status = models.StatusIdle
	log.Printf("Game %s: Player %s swapped card %s (player %s) with card %s (player %s).",
		r.RoomID, actor.ID, a.CardID, a.OwnerID, b.CardID, b.OwnerID)
	r.broadcast(GameEvent{Type: EventJackSwapDone, RoomID: r.RoomID, PlayerID: actor.ID,
		Card1: publicCard(ownerA.Hand[idxA], ownerB.ID), Card2: publicCard(ownerB.Hand[idxB], ownerA.ID)})
	r.logAction(actor.ID, "jack_swap", true, "", map[string]any{
		"cardA": a.CardID, "ownerA": a.OwnerID, "cardB": b.CardID, "ownerB": b.OwnerID,
	})

	r.special = nil
	r.broadcastState(s)
	r.tryAdvance(s)
}

// skipSpecial abandons a pending sub-protocol, used on timeout and
// disconnect. Assumes lock is held by caller.
func (r *Round) skipSpecial(s *store.RoomGameState) {
	sp := r.special
	if sp == nil {
		return
	}
	if actor := s.PlayerByID(sp.playerID); actor != nil {
		actor.Status = models.StatusIdle
	}
	log.Printf("Game %s: Skipping pending %s sub-protocol for player %s.", r.RoomID, sp.power, sp.playerID)
	r.special = nil
	r.tryAdvance(s)
}

func handIndex(p *models.Player, cardID uuid.UUID) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// Package game implements the authoritative round engine: the turn and
// phase state machine, special-power sub-protocols, the same-rank window,
// recall resolution, and scoring. One Round instance exists per room and
// all of its handlers serialize on the round mutex.
package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/deck"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// Round is the live game instance for one room. All exported Handle*
// methods lock the round mutex; internal helpers assume it is held.
type Round struct {
	RoomID string
	GameID uuid.UUID

	Mu sync.Mutex

	store     *store.Store
	transport Transport
	cfg       Config
	deckSpec  deck.Spec
	historian Historian
	persister Persister

	// OnRoundEnd fires once, after scoring, with the final results.
	OnRoundEnd func(results []PlayerResult)

	currentPlayerIndex int
	turnNumber         int
	turnID             int
	recallCallerID     uuid.UUID

	window   *windowState
	windowID int
	special  *specialState

	turnTimer   *time.Timer
	windowTimer *time.Timer

	revealDone map[uuid.UUID]bool
	disposed   bool
	rng        *rand.Rand
}

// NewRound constructs a round bound to its room. The store entry is
// created if missing.
func NewRound(roomID string, st *store.Store, transport Transport, cfg Config, spec deck.Spec) *Round {
	st.Ensure(roomID)
	if cfg.CardsPerPlayer <= 0 {
		cfg = DefaultConfig()
	}
	return &Round{
		RoomID:     roomID,
		GameID:     uuid.New(),
		store:      st,
		transport:  transport,
		cfg:        cfg,
		deckSpec:   spec,
		revealDone: make(map[uuid.UUID]bool),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetHistorian wires the optional action audit sink.
func (r *Round) SetHistorian(h Historian) { r.historian = h }

// SetPersister wires the optional snapshot store.
func (r *Round) SetPersister(p Persister) { r.persister = p }

// withState runs fn against the room's state under the store's room lock.
// Assumes the round mutex is held, which orders the two locks.
func (r *Round) withState(fn func(*store.RoomGameState) error) error {
	var err error
	r.store.MergeRoot(r.RoomID, func(s *store.RoomGameState) {
		err = fn(s)
	})
	return err
}

// AddPlayer seats a new player. Legal only before the match starts.
func (r *Round) AddPlayer(playerID uuid.UUID, sessionID, name string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseWaitingForPlayers {
			return reject(ErrWrongPhase, "cannot join once the match has started")
		}
		if s.MaxPlayers > 0 && len(s.Players) >= s.MaxPlayers {
			return reject(ErrInvalidSelection, "room is full")
		}
		if s.PlayerByID(playerID) != nil {
			// Rejoin before start; just refresh the session binding.
			p := s.PlayerByID(playerID)
			p.SessionID = sessionID
			p.Connected = true
			return nil
		}
		s.Players = append(s.Players, models.NewPlayer(playerID, sessionID, name))
		log.Printf("Game %s: Player %s (%s) added.", r.RoomID, playerID, name)
		r.broadcastState(s)
		return nil
	})
}

// PlayerBySession resolves a seated player from a session identifier.
func (r *Round) PlayerBySession(sessionID string) *models.Player {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	var found *models.Player
	r.store.View(r.RoomID, func(s *store.RoomGameState) {
		for _, p := range s.Players {
			if p.SessionID == sessionID {
				found = p
				return
			}
		}
	})
	return found
}

// HandleLeave handles a player leaving the room. Before the match starts
// the seat is removed; afterwards the player is marked disconnected and,
// if it was their turn, the turn is force-resolved.
func (r *Round) HandleLeave(sessionID string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	_ = r.withState(func(s *store.RoomGameState) error {
		for i, p := range s.Players {
			if p.SessionID != sessionID {
				continue
			}
			if s.Phase == models.PhaseWaitingForPlayers {
				s.Players = append(s.Players[:i], s.Players[i+1:]...)
				if i < r.currentPlayerIndex {
					r.currentPlayerIndex--
				}
			} else {
				p.Connected = false
				log.Printf("Game %s: Player %s disconnected.", r.RoomID, p.ID)
				if r.isCurrentPlayer(s, p.ID) && (s.Phase == models.PhaseActive || s.Phase == models.PhaseRecallCalled) {
					r.forceResolveTurn(s, p)
				}
			}
			r.broadcastState(s)
			return nil
		}
		return nil
	})
}

// StartMatch validates the start request, tops the table up with computer
// players to the room minimum, and deals.
func (r *Round) StartMatch(sessionID string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseWaitingForPlayers {
			return reject(ErrWrongPhase, "match already started")
		}
		caller := playerBySession(s, sessionID)
		if caller == nil {
			return reject(ErrUnknownPlayer, "session %s is not seated in this room", sessionID)
		}
		owner := r.transport.GetRoomOwner(r.RoomID)
		if owner != uuid.Nil && caller.ID != owner {
			return reject(ErrNotYourTurn, "only the room owner may start the match")
		}
		if len(s.Players) == 0 {
			return reject(ErrUnknownPlayer, "no players seated")
		}

		// Top up with computer players to the room minimum.
		for i := 1; len(s.Players) < s.MinPlayers && (s.MaxPlayers == 0 || len(s.Players) < s.MaxPlayers); i++ {
			bot := models.NewComputerPlayer(fmt.Sprintf("CPU %d", i))
			s.Players = append(s.Players, bot)
			log.Printf("Game %s: Added computer player %s.", r.RoomID, bot.Name)
		}
		if len(s.Players) < s.MinPlayers {
			return reject(ErrInvalidSelection, "room cannot reach its player minimum")
		}

		s.Phase = models.PhaseSetup
		return r.initializeRound(s)
	})
}

// initializeRound builds and deals the deck, seeds the piles, and moves
// every player into the pre-game reveal. Refuses to re-deal.
// Assumes lock is held by caller.
func (r *Round) initializeRound(s *store.RoomGameState) error {
	if s.IsGameActive {
		return reject(ErrWrongPhase, "round already dealt")
	}

	cards, err := deck.Build(r.deckSpec, r.GameID)
	if err != nil {
		return reject(ErrInternal, "deck build failed: %v", err)
	}
	deck.Shuffle(cards)

	// Deal plus the discard seed plus at least one drawable card.
	if len(cards) < len(s.Players)*r.cfg.CardsPerPlayer+2 {
		return reject(ErrInternal, "deck has %d cards, not enough for %d players", len(cards), len(s.Players))
	}

	s.GameID = r.GameID
	s.OriginalDeck = cards
	s.DiscardPile = nil
	s.IsGameActive = true

	next := 0
	for _, p := range s.Players {
		p.Hand = make([]*models.Card, 0, r.cfg.CardsPerPlayer)
		for i := 0; i < r.cfg.CardsPerPlayer; i++ {
			p.Hand = append(p.Hand, cards[next])
			next++
		}
		p.Status = models.StatusRevealCards
		p.KnownCards = make(map[uuid.UUID]models.CardFace)
		p.VisibleCards = nil
		p.DrawnCard = nil
		p.HasCalledRecall = false
	}

	// One card seeds the discard pile; the rest become the draw pile.
	s.DiscardPile = append(s.DiscardPile, cards[next])
	next++
	s.DrawPile = s.DrawPile[:0]
	for ; next < len(cards); next++ {
		s.DrawPile = append(s.DrawPile, cards[next].ID)
	}

	// Computer players reveal nothing and are ready immediately.
	r.revealDone = make(map[uuid.UUID]bool)
	for _, p := range s.Players {
		if !p.IsHuman {
			p.Status = models.StatusIdle
			r.revealDone[p.ID] = true
		}
	}

	log.Printf("Game %s: Dealt %d cards to %d players, %d left in draw pile.",
		r.RoomID, r.cfg.CardsPerPlayer, len(s.Players), len(s.DrawPile))

	if r.persister != nil {
		r.persister.SaveInitialDeal(r.RoomID, r.GameID, s.Players)
	}
	r.broadcast(GameEvent{Type: EventRoundStarted, RoomID: r.RoomID, State: buildSnapshot(r, s)})
	r.logAction(uuid.Nil, EventRoundStarted, true, "", nil)

	r.maybeBeginTurns(s)
	return nil
}

// HandleRevealCards records a player's one-time look at exactly two of
// their own face-down cards during setup.
func (r *Round) HandleRevealCards(playerID uuid.UUID, cardIDs []uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.withState(func(s *store.RoomGameState) error {
		if s.Phase != models.PhaseSetup {
			return reject(ErrWrongPhase, "reveal is only available during setup")
		}
		p := s.PlayerByID(playerID)
		if p == nil {
			return reject(ErrUnknownPlayer, "player %s not in room", playerID)
		}
		if p.Status != models.StatusRevealCards || r.revealDone[p.ID] {
			return reject(ErrWrongPhase, "cards already revealed")
		}
		if len(cardIDs) != 2 || cardIDs[0] == cardIDs[1] {
			return reject(ErrInvalidSelection, "must select exactly 2 distinct cards, got %d", len(cardIDs))
		}
		var picked []*models.Card
		for _, id := range cardIDs {
			c := p.HandCard(id)
			if c == nil {
				return reject(ErrCardNotFound, "card %s is not in your hand", id)
			}
			picked = append(picked, c)
		}

		var faces []*EventCard
		for _, c := range picked {
			p.VisibleCards = append(p.VisibleCards, c)
			p.Remember(c)
			faces = append(faces, openCard(c, p.ID))
		}
		r.revealDone[p.ID] = true
		p.Status = models.StatusIdle
		r.sendToPlayer(p, GameEvent{Type: EventPrivateRevealCards, RoomID: r.RoomID, Cards: faces})
		r.logAction(p.ID, "reveal_cards", true, "", map[string]any{"count": 2})
		r.broadcastState(s)

		r.maybeBeginTurns(s)
		return nil
	})
}

// maybeBeginTurns flips setup to active once every player has revealed.
// Assumes lock is held by caller.
func (r *Round) maybeBeginTurns(s *store.RoomGameState) {
	if s.Phase != models.PhaseSetup {
		return
	}
	for _, p := range s.Players {
		if !r.revealDone[p.ID] {
			return
		}
	}
	s.Phase = models.PhaseActive
	r.currentPlayerIndex = 0
	r.turnNumber = 0
	r.beginTurn(s)
}

// beginTurn hands the turn to the player at currentPlayerIndex.
// Assumes lock is held by caller.
func (r *Round) beginTurn(s *store.RoomGameState) {
	if s.Phase != models.PhaseActive && s.Phase != models.PhaseRecallCalled {
		return
	}
	// Bots play synchronously and disconnected humans are force-resolved,
	// so a table with nobody left would advance turns forever. Stop here.
	if !hasConnectedHuman(s) {
		r.abortRound(s, "no connected human players remain")
		return
	}
	r.turnID++
	for _, p := range s.Players {
		if p.Status != models.StatusRevealCards {
			p.Status = models.StatusIdle
		}
	}
	cur := s.Players[r.currentPlayerIndex]
	cur.Status = models.StatusChoosingDeck

	r.broadcast(GameEvent{Type: EventTurnChanged, RoomID: r.RoomID, PlayerID: cur.ID})
	r.broadcastState(s)

	if !cur.IsHuman {
		r.playComputerTurn(s, cur)
		return
	}
	if !cur.Connected {
		r.forceResolveTurn(s, cur)
		return
	}
	r.scheduleTurnTimer(cur.ID)
}

// advanceTurn moves to the next seat and starts its turn.
// Assumes lock is held by caller.
func (r *Round) advanceTurn(s *store.RoomGameState) {
	if len(s.Players) == 0 {
		return
	}
	r.currentPlayerIndex = (r.currentPlayerIndex + 1) % len(s.Players)
	r.turnNumber++
	r.beginTurn(s)
}

// tryAdvance advances the turn once nothing is pending: the same-rank
// window is closed and no special sub-protocol is in flight. A pending
// recall resolves the round instead.
// Assumes lock is held by caller.
func (r *Round) tryAdvance(s *store.RoomGameState) {
	if r.window != nil || r.special != nil {
		return
	}
	if s.Phase == models.PhaseRecallCalled {
		r.finishRound(s)
		return
	}
	r.advanceTurn(s)
}

func (r *Round) isCurrentPlayer(s *store.RoomGameState, playerID uuid.UUID) bool {
	if r.currentPlayerIndex < 0 || r.currentPlayerIndex >= len(s.Players) {
		return false
	}
	return s.Players[r.currentPlayerIndex].ID == playerID
}

// scheduleTurnTimer arms the auto-resolve timer for the current turn.
// Stale callbacks are detected via the captured turn id.
// Assumes lock is held by caller.
func (r *Round) scheduleTurnTimer(playerID uuid.UUID) {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.cfg.TurnTimer <= 0 || r.disposed {
		return
	}
	expectedTurnID := r.turnID
	r.turnTimer = time.AfterFunc(r.cfg.TurnTimer, func() {
		go func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			if r.disposed || r.turnID != expectedTurnID {
				return
			}
			_ = r.withState(func(s *store.RoomGameState) error {
				if !r.isCurrentPlayer(s, playerID) {
					return nil
				}
				p := s.PlayerByID(playerID)
				if p == nil {
					return nil
				}
				log.Printf("Game %s: Player %s timed out on turn %d.", r.RoomID, playerID, r.turnID)
				r.logAction(playerID, "player_timeout", true, "", map[string]any{"turn": r.turnID})
				r.forceResolveTurn(s, p)
				return nil
			})
		}()
	})
}

// forceResolveTurn plays the minimal legal action for a player who cannot
// act: discard the drawn card if one is held, otherwise draw and discard.
// A pending special is skipped rather than resolved.
// Assumes lock is held by caller.
func (r *Round) forceResolveTurn(s *store.RoomGameState, p *models.Player) {
	if r.special != nil && r.special.playerID == p.ID {
		r.skipSpecial(s)
		return
	}
	switch p.Status {
	case models.StatusChoosingDeck, models.StatusChoosingCard:
	default:
		// Turn already resolved; the window or special path advances.
		return
	}
	card := p.DrawnCard
	if card == nil {
		card = r.drawFromDrawPile(s)
		if card == nil {
			r.abortRound(s, "draw and discard piles exhausted")
			return
		}
	}
	p.DrawnCard = nil
	p.Status = models.StatusIdle
	s.DiscardPile = append(s.DiscardPile, card)
	r.broadcast(GameEvent{Type: EventCardPlayed, RoomID: r.RoomID, PlayerID: p.ID, Card: openCard(card, p.ID)})
	// No special trigger and no window on a forced discard.
	r.tryAdvance(s)
}

// playComputerTurn runs a bot's whole turn: draw from the pile, discard
// the drawn card, let the resulting window run its course. Bots never use
// special powers and never contest windows.
// Assumes lock is held by caller.
func (r *Round) playComputerTurn(s *store.RoomGameState, bot *models.Player) {
	card := r.drawFromDrawPile(s)
	if card == nil {
		r.abortRound(s, "draw and discard piles exhausted")
		return
	}
	r.broadcast(GameEvent{Type: EventPlayerDrewCard, RoomID: r.RoomID, PlayerID: bot.ID,
		Card: publicCard(card, bot.ID), Payload: map[string]any{"source": "deck", "drawPileSize": len(s.DrawPile)}})

	bot.Status = models.StatusIdle
	s.DiscardPile = append(s.DiscardPile, card)
	r.broadcast(GameEvent{Type: EventCardPlayed, RoomID: r.RoomID, PlayerID: bot.ID, Card: openCard(card, bot.ID)})
	r.logAction(bot.ID, "computer_play", true, "", map[string]any{"cardId": card.ID})

	r.openWindow(s, card.Rank, bot.ID)
	r.tryAdvance(s)
}

// drawFromDrawPile pops the next draw-pile card, recycling the discard
// pile (minus its top card) when the pile runs dry. Returns nil when both
// piles are exhausted.
// Assumes lock is held by caller.
func (r *Round) drawFromDrawPile(s *store.RoomGameState) *models.Card {
	if len(s.DrawPile) == 0 {
		if len(s.DiscardPile) <= 1 {
			log.Printf("Game %s: Draw pile empty and discard pile has %d card(s). Cannot draw.", r.RoomID, len(s.DiscardPile))
			return nil
		}
		top := s.DiscardPile[len(s.DiscardPile)-1]
		recycled := s.DiscardPile[:len(s.DiscardPile)-1]
		log.Printf("Game %s: Draw pile empty. Recycling %d card(s) from discard pile.", r.RoomID, len(recycled))
		for _, c := range recycled {
			s.DrawPile = append(s.DrawPile, c.ID)
		}
		s.DiscardPile = []*models.Card{top}
		r.rng.Shuffle(len(s.DrawPile), func(i, j int) {
			s.DrawPile[i], s.DrawPile[j] = s.DrawPile[j], s.DrawPile[i]
		})
	}
	id := s.DrawPile[0]
	s.DrawPile = s.DrawPile[1:]
	card := s.CardByID(id)
	if card == nil {
		// Draw pile referenced a card outside the deck universe; the room
		// state is unrecoverable.
		log.Printf("Game %s: Draw pile card %s missing from original deck.", r.RoomID, id)
		return nil
	}
	return card
}

// abortRound terminates the round without scoring after a fatal condition.
// Assumes lock is held by caller.
func (r *Round) abortRound(s *store.RoomGameState, reason string) {
	log.Printf("Game %s: Aborting round: %s.", r.RoomID, reason)
	r.stopTimers()
	r.window = nil
	r.special = nil
	s.Phase = models.PhaseEnded
	s.IsGameActive = false
	for _, p := range s.Players {
		p.Status = models.StatusIdle
	}
	r.broadcast(GameEvent{Type: EventRoundAborted, RoomID: r.RoomID, Payload: map[string]any{"reason": reason}})
	r.broadcastState(s)
}

// stopTimers halts all scheduled work. Assumes lock is held by caller.
func (r *Round) stopTimers() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.windowTimer != nil {
		r.windowTimer.Stop()
		r.windowTimer = nil
	}
}

// Dispose stops all timers and marks the round dead. Safe to call once;
// the registry guarantees that.
func (r *Round) Dispose() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.disposed = true
	r.stopTimers()
	log.Printf("Game %s: Disposed.", r.RoomID)
}

func hasConnectedHuman(s *store.RoomGameState) bool {
	for _, p := range s.Players {
		if p.IsHuman && p.Connected {
			return true
		}
	}
	return false
}

func playerBySession(s *store.RoomGameState, sessionID string) *models.Player {
	for _, p := range s.Players {
		if p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

// broadcast sends a stamped event to the whole room.
// Assumes lock is held by caller; sends must not re-enter the round.
func (r *Round) broadcast(ev GameEvent) {
	if r.transport == nil {
		log.Printf("Warning: Game %s: transport is nil, cannot broadcast event type %s.", r.RoomID, ev.Type)
		return
	}
	r.transport.BroadcastToRoom(r.RoomID, stamp(ev))
}

// sendToPlayer delivers a private event to one player's session.
// Assumes lock is held by caller.
func (r *Round) sendToPlayer(p *models.Player, ev GameEvent) {
	if r.transport == nil || p.SessionID == "" {
		return
	}
	r.transport.SendToSession(p.SessionID, stamp(ev))
}

// broadcastState pushes the public snapshot to the room.
// Assumes lock is held by caller.
func (r *Round) broadcastState(s *store.RoomGameState) {
	r.broadcast(GameEvent{Type: EventGameStateUpdated, RoomID: r.RoomID, State: buildSnapshot(r, s)})
}

func (r *Round) logAction(playerID uuid.UUID, event string, accepted bool, code ErrorCode, payload map[string]any) {
	if r.historian == nil {
		return
	}
	r.historian.Record(models.GameAction{
		GameID:    r.GameID,
		PlayerID:  playerID,
		Event:     event,
		Accepted:  accepted,
		ErrorCode: string(code),
		Payload:   payload,
		At:        time.Now(),
	})
}

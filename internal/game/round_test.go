package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/deck"
	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// mockTransport captures engine events for test assertions.
type mockTransport struct {
	mu            sync.Mutex
	roomEvents    []GameEvent
	sessionEvents map[string][]GameEvent
	owner         uuid.UUID
}

func newMockTransport() *mockTransport {
	return &mockTransport{sessionEvents: make(map[string][]GameEvent)}
}

func (mt *mockTransport) SendToSession(sessionID string, message any) {
	ev, ok := message.(GameEvent)
	if !ok {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.sessionEvents[sessionID] = append(mt.sessionEvents[sessionID], ev)
}

func (mt *mockTransport) BroadcastToRoom(roomID string, message any) {
	ev, ok := message.(GameEvent)
	if !ok {
		return
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.roomEvents = append(mt.roomEvents, ev)
}

func (mt *mockTransport) BroadcastToRoomExcept(roomID string, message any, exclude string) {
	mt.BroadcastToRoom(roomID, message)
}

func (mt *mockTransport) GetRoomOwner(roomID string) uuid.UUID {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.owner
}

func (mt *mockTransport) clear() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.roomEvents = nil
	mt.sessionEvents = make(map[string][]GameEvent)
}

func (mt *mockTransport) findEventByType(eventType string) *GameEvent {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for i := len(mt.roomEvents) - 1; i >= 0; i-- {
		if mt.roomEvents[i].Type == eventType {
			return &mt.roomEvents[i]
		}
	}
	return nil
}

func (mt *mockTransport) lastSessionEvent(sessionID string) *GameEvent {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	events := mt.sessionEvents[sessionID]
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func mkCard(rank, suit string, points int, special models.SpecialPower) *models.Card {
	return &models.Card{ID: uuid.New(), Rank: rank, Suit: suit, Points: points, Special: special}
}

func testConfig() Config {
	return Config{
		CardsPerPlayer:        4,
		SameRankWindow:        80 * time.Millisecond,
		TurnTimer:             0,
		RecallAllowedFromTurn: 0,
	}
}

// setupFixedRound builds an active round with explicit hands and piles so
// tests control exactly which cards are where. Player 0 is on turn.
func setupFixedRound(t *testing.T, cfg Config, hands [][]*models.Card, drawPile, discard []*models.Card) (*Round, []*models.Player, *mockTransport, *store.Store) {
	t.Helper()
	st := store.New()
	mt := newMockTransport()
	r := NewRound("room-1", st, mt, cfg, deck.TestingSpec())

	players := make([]*models.Player, len(hands))
	for i := range hands {
		p := models.NewPlayer(uuid.New(), fmt.Sprintf("sess-%d", i), "Player"+string(rune('A'+i)))
		p.Hand = hands[i]
		players[i] = p
	}
	mt.owner = players[0].ID

	st.MergeRoot("room-1", func(s *store.RoomGameState) {
		s.GameID = r.GameID
		s.Players = players
		s.Phase = models.PhaseActive
		s.IsGameActive = true
		for _, hand := range hands {
			s.OriginalDeck = append(s.OriginalDeck, hand...)
		}
		s.OriginalDeck = append(s.OriginalDeck, drawPile...)
		s.OriginalDeck = append(s.OriginalDeck, discard...)
		for _, c := range drawPile {
			s.DrawPile = append(s.DrawPile, c.ID)
		}
		s.DiscardPile = append(s.DiscardPile, discard...)
	})
	r.currentPlayerIndex = 0
	players[0].Status = models.StatusChoosingDeck
	mt.clear()
	return r, players, mt, st
}

func totalCards(s *store.RoomGameState) int {
	n := len(s.DrawPile) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand)
		if p.DrawnCard != nil {
			n++
		}
	}
	return n
}

func snapshotOf(r *Round, st *store.Store) *Snapshot {
	var snap *Snapshot
	st.View(r.RoomID, func(s *store.RoomGameState) {
		snap = buildSnapshot(r, s)
	})
	return snap
}

func assertConservation(t *testing.T, st *store.Store, roomID string) {
	t.Helper()
	st.View(roomID, func(s *store.RoomGameState) {
		assert.Equal(t, len(s.OriginalDeck), totalCards(s), "card conservation violated")
	})
}

func TestStartMatchAutoFillsComputerPlayer(t *testing.T) {
	st := store.New()
	mt := newMockTransport()
	r := NewRound("room-1", st, mt, testConfig(), deck.StandardSpec())

	humanID := uuid.New()
	mt.owner = humanID
	require.NoError(t, r.AddPlayer(humanID, "sess-0", "Alice"))

	require.NoError(t, r.StartMatch("sess-0"))

	var human *models.Player
	st.View("room-1", func(s *store.RoomGameState) {
		require.Equal(t, 2, s.PlayerCount(), "expected exactly one computer player added")
		assert.Equal(t, models.PhaseSetup, s.Phase)
		assert.False(t, s.Players[1].IsHuman)
		human = s.Players[0]
		for _, p := range s.Players {
			assert.Len(t, p.Hand, 4)
		}
	})

	// Re-deal must be refused.
	err := r.StartMatch("sess-0")
	require.Error(t, err)
	assert.Equal(t, ErrWrongPhase, CodeOf(err))

	// The human reveals two cards; the bot is auto-ready, so turns begin.
	require.NoError(t, r.HandleRevealCards(human.ID, []uuid.UUID{human.Hand[0].ID, human.Hand[1].ID}))

	update := mt.findEventByType(EventGameStateUpdated)
	require.NotNil(t, update)
	require.NotNil(t, update.State)
	assert.Equal(t, models.PhaseActive, update.State.Phase)
	require.Len(t, update.State.Players, 2)
	for _, p := range update.State.Players {
		assert.NotZero(t, p.HandCount)
	}
	assert.NotZero(t, update.State.DrawPileCount)
	assert.Equal(t, human.ID, update.State.CurrentPlayerID)

	assertConservation(t, st, "room-1")
}

func TestStartMatchRequiresOwner(t *testing.T) {
	st := store.New()
	mt := newMockTransport()
	r := NewRound("room-1", st, mt, testConfig(), deck.StandardSpec())

	ownerID, otherID := uuid.New(), uuid.New()
	mt.owner = ownerID
	require.NoError(t, r.AddPlayer(ownerID, "sess-0", "Alice"))
	require.NoError(t, r.AddPlayer(otherID, "sess-1", "Bob"))

	err := r.StartMatch("sess-1")
	require.Error(t, err)
	assert.Equal(t, ErrNotYourTurn, CodeOf(err))

	st.View("room-1", func(s *store.RoomGameState) {
		assert.Equal(t, models.PhaseWaitingForPlayers, s.Phase)
	})
}

func TestRevealCardsValidation(t *testing.T) {
	st := store.New()
	mt := newMockTransport()
	r := NewRound("room-1", st, mt, testConfig(), deck.StandardSpec())

	aliceID, bobID := uuid.New(), uuid.New()
	mt.owner = aliceID
	require.NoError(t, r.AddPlayer(aliceID, "sess-0", "Alice"))
	require.NoError(t, r.AddPlayer(bobID, "sess-1", "Bob"))
	require.NoError(t, r.StartMatch("sess-0"))

	var alice, bob *models.Player
	st.View("room-1", func(s *store.RoomGameState) {
		alice = s.PlayerByID(aliceID)
		bob = s.PlayerByID(bobID)
	})

	// Wrong count.
	err := r.HandleRevealCards(aliceID, []uuid.UUID{alice.Hand[0].ID})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidSelection, CodeOf(err))

	// Duplicated selection.
	err = r.HandleRevealCards(aliceID, []uuid.UUID{alice.Hand[0].ID, alice.Hand[0].ID})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidSelection, CodeOf(err))

	// Someone else's card.
	err = r.HandleRevealCards(aliceID, []uuid.UUID{alice.Hand[0].ID, bob.Hand[0].ID})
	require.Error(t, err)
	assert.Equal(t, ErrCardNotFound, CodeOf(err))

	// Valid reveal, then a second attempt is refused.
	require.NoError(t, r.HandleRevealCards(aliceID, []uuid.UUID{alice.Hand[0].ID, alice.Hand[1].ID}))
	priv := mt.lastSessionEvent("sess-0")
	require.NotNil(t, priv)
	assert.Equal(t, EventPrivateRevealCards, priv.Type)
	assert.Len(t, priv.Cards, 2)
	assert.NotEmpty(t, priv.Cards[0].Rank)

	err = r.HandleRevealCards(aliceID, []uuid.UUID{alice.Hand[2].ID, alice.Hand[3].ID})
	require.Error(t, err)
	assert.Equal(t, ErrWrongPhase, CodeOf(err))

	// Memory recorded for the revealed pair only.
	assert.Len(t, alice.KnownCards, 2)
}

func TestLastHumanLeavingAbortsRound(t *testing.T) {
	hands := [][]*models.Card{
		{mkCard("5", "hearts", 5, "")},
		{mkCard("9", "spades", 9, "")},
	}
	drawPile := []*models.Card{mkCard("2", "clubs", 2, ""), mkCard("3", "clubs", 3, "")}
	discard := []*models.Card{mkCard("K", "spades", 13, "")}
	r, players, mt, st := setupFixedRound(t, testConfig(), hands, drawPile, discard)
	players[1].IsHuman = false

	// Only bots remain connected; the round must terminate instead of
	// cycling bot turns through the recycled piles forever.
	done := make(chan struct{})
	go func() {
		r.HandleLeave("sess-0")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("HandleLeave did not return")
	}

	require.NotNil(t, mt.findEventByType(EventRoundAborted))
	st.View("room-1", func(s *store.RoomGameState) {
		assert.Equal(t, models.PhaseEnded, s.Phase)
		assert.False(t, s.IsGameActive)
	})
	assertConservation(t, st, "room-1")
}

func TestDisposeStopsTimers(t *testing.T) {
	cfg := testConfig()
	cfg.TurnTimer = 50 * time.Millisecond
	hands := [][]*models.Card{
		{mkCard("5", "hearts", 5, "")},
		{mkCard("9", "spades", 9, "")},
	}
	drawPile := []*models.Card{mkCard("2", "clubs", 2, ""), mkCard("3", "clubs", 3, "")}
	discard := []*models.Card{mkCard("K", "spades", 13, "")}
	r, players, mt, st := setupFixedRound(t, cfg, hands, drawPile, discard)

	r.Mu.Lock()
	r.scheduleTurnTimer(players[0].ID)
	r.Mu.Unlock()

	r.Dispose()
	mt.clear()
	time.Sleep(120 * time.Millisecond)

	// No timer fired against the disposed round.
	assert.Nil(t, mt.findEventByType(EventCardPlayed))
	st.View("room-1", func(s *store.RoomGameState) {
		assert.Equal(t, models.PhaseActive, s.Phase)
	})
}

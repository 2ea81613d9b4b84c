package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

func TestQueenPeekRevealsPrivately(t *testing.T) {
	target := mkCard("9", "spades", 9, "")
	hands := [][]*models.Card{
		{mkCard("5", "hearts", 5, "")},
		{target},
	}
	queen := mkCard("Q", "hearts", 12, models.SpecialPeek)
	drawPile := []*models.Card{queen}
	r, players, mt, _ := setupFixedRound(t, testConfig(), hands, drawPile, nil)

	require.NoError(t, r.HandleDrawCard(players[0].ID, "deck"))
	require.NoError(t, r.HandlePlayCard(players[0].ID, queen.ID))
	assert.Equal(t, models.StatusQueenSpecial, players[0].Status)

	require.NoError(t, r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[1].ID, CardID: target.ID}))

	// The face went only to the acting player's session.
	priv := mt.lastSessionEvent("sess-0")
	require.NotNil(t, priv)
	assert.Equal(t, EventPrivateQueenPeek, priv.Type)
	assert.Equal(t, "9", priv.Card.Rank)
	assert.Nil(t, mt.lastSessionEvent("sess-1"))
	face, known := players[0].KnownCards[target.ID]
	require.True(t, known)
	assert.Equal(t, "9", face.Rank)

	// The card never moved.
	assert.Same(t, target, players[1].Hand[0])

	// The sub-protocol is spent; another selection is refused.
	err := r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[1].ID, CardID: target.ID})
	require.Error(t, err)
	assert.Equal(t, ErrWrongPhase, CodeOf(err))
}

func TestJackSwapCollectsExactlyTwoSelections(t *testing.T) {
	mine := mkCard("5", "hearts", 5, "")
	theirs := mkCard("9", "spades", 9, "")
	hands := [][]*models.Card{
		{mine},
		{theirs},
	}
	jack := mkCard("J", "clubs", 11, models.SpecialSwap)
	drawPile := []*models.Card{jack}
	r, players, mt, st := setupFixedRound(t, testConfig(), hands, drawPile, nil)

	require.NoError(t, r.HandleDrawCard(players[0].ID, "deck"))
	require.NoError(t, r.HandlePlayCard(players[0].ID, jack.ID))
	assert.Equal(t, models.StatusJackSpecial, players[0].Status)

	// First selection leaves the swap pending.
	require.NoError(t, r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[0].ID, CardID: mine.ID}))
	assert.Nil(t, mt.findEventByType(EventJackSwapDone))
	assert.Same(t, mine, players[0].Hand[0])

	// Second selection resolves atomically.
	require.NoError(t, r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[1].ID, CardID: theirs.ID}))
	require.NotNil(t, mt.findEventByType(EventJackSwapDone))
	assert.Same(t, theirs, players[0].Hand[0])
	assert.Same(t, mine, players[1].Hand[0])

	// Neither face was broadcast.
	done := mt.findEventByType(EventJackSwapDone)
	assert.Empty(t, done.Card1.Rank)
	assert.Empty(t, done.Card2.Rank)

	// Third selection arrives after resolution and is rejected.
	err := r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[0].ID, CardID: theirs.ID})
	require.Error(t, err)
	assert.Equal(t, ErrWrongPhase, CodeOf(err))

	assertConservation(t, st, "room-1")
}

func TestJackSwapRejectsDuplicateSelection(t *testing.T) {
	mine := mkCard("5", "hearts", 5, "")
	hands := [][]*models.Card{
		{mine},
		{mkCard("9", "spades", 9, "")},
	}
	jack := mkCard("J", "clubs", 11, models.SpecialSwap)
	drawPile := []*models.Card{jack}
	r, players, _, _ := setupFixedRound(t, testConfig(), hands, drawPile, nil)

	require.NoError(t, r.HandleDrawCard(players[0].ID, "deck"))
	require.NoError(t, r.HandlePlayCard(players[0].ID, jack.ID))

	require.NoError(t, r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[0].ID, CardID: mine.ID}))
	err := r.HandleSpecialSelection(players[0].ID, Selection{OwnerID: players[0].ID, CardID: mine.ID})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidSelection, CodeOf(err))
}

func TestSpecialSelectionFromWrongPlayerRejected(t *testing.T) {
	hands := [][]*models.Card{
		{mkCard("5", "hearts", 5, "")},
		{mkCard("9", "spades", 9, "")},
	}
	queen := mkCard("Q", "hearts", 12, models.SpecialPeek)
	drawPile := []*models.Card{queen}
	r, players, _, _ := setupFixedRound(t, testConfig(), hands, drawPile, nil)

	require.NoError(t, r.HandleDrawCard(players[0].ID, "deck"))
	require.NoError(t, r.HandlePlayCard(players[0].ID, queen.ID))

	err := r.HandleSpecialSelection(players[1].ID, Selection{OwnerID: players[0].ID, CardID: hands[0][0].ID})
	require.Error(t, err)
	assert.Equal(t, ErrWrongPhase, CodeOf(err))
}

func TestReplacedHandCardTriggersSpecial(t *testing.T) {
	heldQueen := mkCard("Q", "spades", 12, models.SpecialPeek)
	hands := [][]*models.Card{
		{heldQueen},
		{mkCard("9", "spades", 9, "")},
	}
	drawn := mkCard("3", "diamonds", 3, "")
	drawPile := []*models.Card{drawn}
	r, players, _, st := setupFixedRound(t, testConfig(), hands, drawPile, nil)

	require.NoError(t, r.HandleDrawCard(players[0].ID, "deck"))
	require.NoError(t, r.HandlePlayCard(players[0].ID, heldQueen.ID))

	// The queen landed on the discard pile, so its power is live.
	assert.Equal(t, models.StatusQueenSpecial, players[0].Status)
	st.View("room-1", func(s *store.RoomGameState) {
		assert.Equal(t, heldQueen.ID, s.DiscardPile[len(s.DiscardPile)-1].ID)
	})
	assert.Same(t, drawn, players[0].Hand[0])
}

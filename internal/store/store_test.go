package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/models"
)

func TestEnsureCreatesSkeleton(t *testing.T) {
	st := New()
	st.Ensure("room-1")

	ok := st.View("room-1", func(s *RoomGameState) {
		assert.Equal(t, models.PhaseWaitingForPlayers, s.Phase)
		assert.Equal(t, 2, s.MinPlayers)
		assert.Zero(t, s.PlayerCount())
	})
	require.True(t, ok)
}

func TestMergeRootStampsLastUpdated(t *testing.T) {
	st := New()
	st.Ensure("room-1")

	var before time.Time
	st.View("room-1", func(s *RoomGameState) { before = s.LastUpdated })

	time.Sleep(time.Millisecond)
	st.MergeRoot("room-1", func(s *RoomGameState) {
		s.GameName = "recall"
		s.MinPlayers = 3
	})

	st.View("room-1", func(s *RoomGameState) {
		assert.Equal(t, "recall", s.GameName)
		assert.Equal(t, 3, s.MinPlayers)
		assert.True(t, s.LastUpdated.After(before))
	})
}

func TestMergeRootCreatesMissingRoom(t *testing.T) {
	st := New()
	st.MergeRoot("fresh", func(s *RoomGameState) { s.GameName = "x" })
	ok := st.View("fresh", func(s *RoomGameState) {
		assert.Equal(t, "x", s.GameName)
	})
	require.True(t, ok)
}

func TestGetCardByID(t *testing.T) {
	st := New()
	card := &models.Card{ID: uuid.New(), Rank: "Q", Suit: "hearts", Points: 12}
	st.MergeRoot("room-1", func(s *RoomGameState) {
		s.OriginalDeck = []*models.Card{card}
	})

	got, ok := st.GetCardByID("room-1", card.ID)
	require.True(t, ok)
	assert.Same(t, card, got)

	_, ok = st.GetCardByID("room-1", uuid.New())
	assert.False(t, ok)

	_, ok = st.GetCardByID("no-such-room", card.ID)
	assert.False(t, ok)
}

func TestClearDropsRoom(t *testing.T) {
	st := New()
	st.Ensure("room-1")
	st.Clear("room-1")
	assert.False(t, st.View("room-1", func(*RoomGameState) {}))
}

func TestConcurrentMergesSerializePerRoom(t *testing.T) {
	st := New()
	st.Ensure("room-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.MergeRoot("room-1", func(s *RoomGameState) {
				s.MinPlayers++
			})
		}()
	}
	wg.Wait()

	st.View("room-1", func(s *RoomGameState) {
		assert.Equal(t, 52, s.MinPlayers)
	})
}

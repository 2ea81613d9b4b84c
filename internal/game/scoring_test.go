package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/models"
)

func scoringPlayer(name string, cards ...*models.Card) *models.Player {
	p := models.NewPlayer(uuid.New(), "", name)
	p.Hand = cards
	return p
}

func winnersOf(results []PlayerResult) []string {
	var names []string
	for _, res := range results {
		if res.Winner {
			names = append(names, res.Name)
		}
	}
	return names
}

func TestEmptyHandWinsRegardlessOfPoints(t *testing.T) {
	a := scoringPlayer("A")
	b := scoringPlayer("B", mkCard("A", "hearts", 1, ""))
	results := computeResults([]*models.Player{a, b}, b.ID)
	assert.Equal(t, []string{"A"}, winnersOf(results))
}

func TestLowestPointsWins(t *testing.T) {
	a := scoringPlayer("A", mkCard("K", "hearts", 13, ""), mkCard("2", "clubs", 2, ""))
	b := scoringPlayer("B", mkCard("5", "hearts", 5, ""), mkCard("4", "clubs", 4, ""))
	results := computeResults([]*models.Player{a, b}, a.ID)
	assert.Equal(t, []string{"B"}, winnersOf(results))
	// Results come sorted winner-first.
	assert.Equal(t, "B", results[0].Name)
	assert.Equal(t, 9, results[0].Points)
	assert.Equal(t, 15, results[1].Points)
}

func TestEqualPointsFewerCardsWins(t *testing.T) {
	a := scoringPlayer("A", mkCard("K", "hearts", 13, ""))
	b := scoringPlayer("B", mkCard("5", "hearts", 5, ""), mkCard("8", "clubs", 8, ""))
	results := computeResults([]*models.Player{a, b}, b.ID)
	assert.Equal(t, []string{"A"}, winnersOf(results))
}

func TestFullTieFavorsRecallCaller(t *testing.T) {
	a := scoringPlayer("A", mkCard("7", "hearts", 7, ""))
	b := scoringPlayer("B", mkCard("7", "clubs", 7, ""))
	results := computeResults([]*models.Player{a, b}, b.ID)
	assert.Equal(t, []string{"B"}, winnersOf(results))
}

func TestFullTieWithoutCallerIsShared(t *testing.T) {
	a := scoringPlayer("A", mkCard("7", "hearts", 7, ""))
	b := scoringPlayer("B", mkCard("7", "clubs", 7, ""))
	c := scoringPlayer("C", mkCard("9", "spades", 9, ""))
	results := computeResults([]*models.Player{a, b, c}, c.ID)
	winners := winnersOf(results)
	require.Len(t, winners, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, winners)
}

func TestMultipleEmptyHandsTieBreakByCaller(t *testing.T) {
	a := scoringPlayer("A")
	b := scoringPlayer("B")
	c := scoringPlayer("C", mkCard("2", "clubs", 2, ""))
	results := computeResults([]*models.Player{a, b, c}, b.ID)
	assert.Equal(t, []string{"B"}, winnersOf(results))
}

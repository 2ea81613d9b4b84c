package game

import (
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// PlayerResult is one player's final line in the round results.
type PlayerResult struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Name         string    `json:"name"`
	Points       int       `json:"points"`
	CardsLeft    int       `json:"cardsLeft"`
	CalledRecall bool      `json:"calledRecall"`
	Winner       bool      `json:"winner"`
}

// computeResults applies the win ladder: an emptied hand wins outright,
// then fewest points, then fewest cards, then the recall caller among the
// tied. Multiple winners are possible on full ties without the caller.
func computeResults(players []*models.Player, callerID uuid.UUID) []PlayerResult {
	results := make([]PlayerResult, 0, len(players))
	for _, p := range players {
		p.Points = p.HandPoints()
		results = append(results, PlayerResult{
			PlayerID:     p.ID,
			Name:         p.Name,
			Points:       p.Points,
			CardsLeft:    len(p.Hand),
			CalledRecall: p.ID == callerID,
		})
	}

	pool := make([]int, 0, len(results))
	for i, res := range results {
		if res.CardsLeft == 0 {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range results {
			pool = append(pool, i)
		}
	}

	minPoints := results[pool[0]].Points
	for _, i := range pool {
		if results[i].Points < minPoints {
			minPoints = results[i].Points
		}
	}
	pool = filterIdx(pool, func(i int) bool { return results[i].Points == minPoints })

	minCards := results[pool[0]].CardsLeft
	for _, i := range pool {
		if results[i].CardsLeft < minCards {
			minCards = results[i].CardsLeft
		}
	}
	pool = filterIdx(pool, func(i int) bool { return results[i].CardsLeft == minCards })

	for _, i := range pool {
		if results[i].CalledRecall {
			pool = []int{i}
			break
		}
	}

	for _, i := range pool {
		results[i].Winner = true
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Winner != results[b].Winner {
			return results[a].Winner
		}
		if results[a].Points != results[b].Points {
			return results[a].Points < results[b].Points
		}
		return results[a].CardsLeft < results[b].CardsLeft
	})
	return results
}

func filterIdx(idx []int, keep func(int) bool) []int {
	out := idx[:0]
	for _, i := range idx {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// finishRound scores the round and broadcasts the results.
// Assumes lock is held by caller.
func (r *Round) finishRound(s *store.RoomGameState) {
	if s.Phase == models.PhaseEnded {
		return
	}
	r.stopTimers()
	r.window = nil
	r.special = nil
	s.Phase = models.PhaseEnded
	s.IsGameActive = false
	for _, p := range s.Players {
		p.Status = models.StatusIdle
		if p.DrawnCard != nil {
			// Never strand a card; an unresolved draw scores as discarded.
			s.DiscardPile = append(s.DiscardPile, p.DrawnCard)
			p.DrawnCard = nil
		}
	}

	results := computeResults(s.Players, r.recallCallerID)
	log.Printf("Game %s: Round ended, %d result line(s).", r.RoomID, len(results))
	r.broadcast(GameEvent{Type: EventRoundEnded, RoomID: r.RoomID, Results: results, State: buildSnapshot(r, s)})
	r.broadcastState(s)
	r.logAction(uuid.Nil, EventRoundEnded, true, "", map[string]any{"caller": r.recallCallerID})

	if r.persister != nil {
		r.persister.SaveResults(r.RoomID, r.GameID, results)
	}
	if r.OnRoundEnd != nil {
		r.OnRoundEnd(results)
	}
}

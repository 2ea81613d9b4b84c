package game

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
	"github.com/recallhq/recall/internal/store"
)

// windowState tracks one same-rank window instance. Eligibility is fixed
// at open time: every other player holding at least one card of the rank.
type windowState struct {
	id       int
	rank     string
	eligible map[uuid.UUID]bool
	acted    map[uuid.UUID]bool
}

func (w *windowState) allActed() bool {
	for id := range w.eligible {
		if !w.acted[id] {
			return false
		}
	}
	return true
}

// openWindow opens a same-rank window on the given rank for every player
// except the one who played. Closes immediately when nobody is eligible.
// Assumes lock is held by caller.
func (r *Round) openWindow(s *store.RoomGameState, rank string, playedBy uuid.UUID) {
	eligible := make(map[uuid.UUID]bool)
	for _, p := range s.Players {
		if p.ID == playedBy || !p.IsHuman || !p.Connected {
			continue
		}
		for _, c := range p.Hand {
			if c.Rank == rank {
				eligible[p.ID] = true
				break
			}
		}
	}
	if len(eligible) == 0 || r.cfg.SameRankWindow <= 0 {
		return
	}

	r.windowID++
	r.window = &windowState{
		id:       r.windowID,
		rank:     rank,
		eligible: eligible,
		acted:    make(map[uuid.UUID]bool),
	}
	for _, p := range s.Players {
		if eligible[p.ID] {
			p.Status = models.StatusSameRankWindow
		}
	}
	r.broadcast(GameEvent{Type: EventSameRankWindow, RoomID: r.RoomID,
		Payload: map[string]any{"rank": rank, "durationMs": r.cfg.SameRankWindow.Milliseconds()}})

	expectedID := r.windowID
	if r.windowTimer != nil {
		r.windowTimer.Stop()
	}
	r.windowTimer = time.AfterFunc(r.cfg.SameRankWindow, func() {
		go func() {
			r.Mu.Lock()
			defer r.Mu.Unlock()
			if r.disposed || r.window == nil || r.window.id != expectedID {
				return
			}
			_ = r.withState(func(s *store.RoomGameState) error {
				r.closeWindow(s, "timer elapsed")
				return nil
			})
		}()
	})
}

// closeWindow ends the current window and lets the turn move on.
// Assumes lock is held by caller.
func (r *Round) closeWindow(s *store.RoomGameState, reason string) {
	w := r.window
	if w == nil {
		return
	}
	r.window = nil
	if r.windowTimer != nil {
		r.windowTimer.Stop()
		r.windowTimer = nil
	}
	for _, p := range s.Players {
		if p.Status == models.StatusSameRankWindow {
			p.Status = models.StatusIdle
		}
	}
	log.Printf("Game %s: Same-rank window on rank %s closed (%s).", r.RoomID, w.rank, reason)
	r.broadcast(GameEvent{Type: EventSameRankWindowEnd, RoomID: r.RoomID,
		Payload: map[string]any{"rank": w.rank, "reason": reason}})
	r.broadcastState(s)
	r.tryAdvance(s)
}

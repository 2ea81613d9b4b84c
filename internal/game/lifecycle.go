package game

import (
	"log"

	"github.com/recallhq/recall/internal/hooks"
	"github.com/recallhq/recall/internal/store"
)

// BindLifecycle subscribes the engine to room-lifecycle hooks so the state
// store and round registry track room membership. Store bookkeeping runs
// before seat changes, teardown runs late so other subscribers still see
// the room.
func BindLifecycle(bus *hooks.Registry, reg *Registry, st *store.Store) {
	bus.RegisterCallback(hooks.RoomCreated, func(ev hooks.Event) error {
		st.Ensure(ev.RoomID)
		st.MergeRoot(ev.RoomID, func(s *store.RoomGameState) {
			s.GameName = "recall"
			if ev.MinPlayers > 0 {
				s.MinPlayers = ev.MinPlayers
			}
			if ev.MaxSize > 0 {
				s.MaxPlayers = ev.MaxSize
			}
		})
		reg.GetOrCreate(ev.RoomID)
		log.Printf("Game %s: Room created, state seeded.", ev.RoomID)
		return nil
	}, 10, "")

	bus.RegisterCallback(hooks.RoomJoined, func(ev hooks.Event) error {
		round := reg.GetOrCreate(ev.RoomID)
		name, _ := ev.Data["username"].(string)
		if name == "" {
			name = "Player " + ev.UserID.String()[:8]
		}
		return round.AddPlayer(ev.UserID, ev.SessionID, name)
	}, 20, "")

	bus.RegisterCallback(hooks.LeaveRoom, func(ev hooks.Event) error {
		if round, ok := reg.Get(ev.RoomID); ok {
			round.HandleLeave(ev.SessionID)
		}
		return nil
	}, 20, "")

	bus.RegisterCallback(hooks.RoomClosed, func(ev hooks.Event) error {
		reg.Dispose(ev.RoomID)
		log.Printf("Game %s: Room closed, round disposed.", ev.RoomID)
		return nil
	}, 90, "")
}

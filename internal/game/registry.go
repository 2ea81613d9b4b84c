package game

import (
	"log"
	"sync"

	"github.com/recallhq/recall/internal/deck"
	"github.com/recallhq/recall/internal/store"
)

// Registry maps room IDs to live rounds. Creation is lazy and idempotent;
// disposal stops the round's timers before the room state goes away.
type Registry struct {
	mu     sync.Mutex
	rounds map[string]*Round

	store     *store.Store
	transport Transport
	cfg       Config
	deckSpec  deck.Spec
	historian Historian
	persister Persister
}

// NewRegistry builds a registry whose rounds share the given dependencies.
func NewRegistry(st *store.Store, transport Transport, cfg Config, spec deck.Spec) *Registry {
	return &Registry{
		rounds:    make(map[string]*Round),
		store:     st,
		transport: transport,
		cfg:       cfg,
		deckSpec:  spec,
	}
}

// SetHistorian wires the audit sink into future rounds.
func (reg *Registry) SetHistorian(h Historian) { reg.historian = h }

// SetPersister wires the snapshot store into future rounds.
func (reg *Registry) SetPersister(p Persister) { reg.persister = p }

// GetOrCreate returns the room's round, constructing it on first use.
func (reg *Registry) GetOrCreate(roomID string) *Round {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rounds[roomID]; ok {
		return r
	}
	r := NewRound(roomID, reg.store, reg.transport, reg.cfg, reg.deckSpec)
	r.SetHistorian(reg.historian)
	r.SetPersister(reg.persister)
	reg.rounds[roomID] = r
	log.Printf("Game %s: Round created.", roomID)
	return r
}

// Get returns the room's round without creating one.
func (reg *Registry) Get(roomID string) (*Round, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rounds[roomID]
	return r, ok
}

// Dispose stops the round's timers synchronously, then drops the round and
// its room state. Safe to call for unknown rooms.
func (reg *Registry) Dispose(roomID string) {
	reg.mu.Lock()
	r, ok := reg.rounds[roomID]
	delete(reg.rounds, roomID)
	reg.mu.Unlock()
	if ok {
		r.Dispose()
	}
	reg.store.Clear(roomID)
}

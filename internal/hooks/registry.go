// Package hooks implements a synchronous lifecycle hook bus. Room-level
// events (creation, joins, departures, closure) are announced here and the
// game layer subscribes with prioritized callbacks.
package hooks

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Well-known hook names.
const (
	RoomCreated = "room_created"
	RoomJoined  = "room_joined"
	LeaveRoom   = "leave_room"
	RoomClosed  = "room_closed"
)

// Event is the payload delivered to hook callbacks.
type Event struct {
	Name       string
	RoomID     string
	SessionID  string
	UserID     uuid.UUID
	OwnerID    uuid.UUID
	MinPlayers int
	MaxSize    int
	Data       map[string]any
}

// Callback handles one hook event. A returned error is logged and does not
// stop delivery to the remaining callbacks.
type Callback func(Event) error

type subscription struct {
	fn       Callback
	priority int
	context  string
	seq      int
}

// Registry is a thread-safe hook bus. The zero value is not usable; use New.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string][]subscription
	seq   int
	log   *logrus.Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		hooks: make(map[string][]subscription),
		log:   logrus.WithField("component", "hooks"),
	}
}

// Register declares a hook name with no callbacks. Registering the same
// name twice is an error; RegisterCallback registers implicitly, so
// explicit Register is only for declaring hooks ahead of subscribers.
func (r *Registry) Register(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[name]; ok {
		return fmt.Errorf("hook %q already registered", name)
	}
	r.hooks[name] = nil
	return nil
}

// RegisterCallback subscribes fn to the named hook. Lower priority runs
// first; equal priorities keep registration order. A non-empty context
// restricts delivery to triggers carrying the same context.
func (r *Registry) RegisterCallback(name string, fn Callback, priority int, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	sub := subscription{fn: fn, priority: priority, context: context, seq: r.seq}

	subs := r.hooks[name]
	// Insert sorted by (priority, seq) so Trigger never sorts.
	pos := len(subs)
	for i, s := range subs {
		if sub.priority < s.priority {
			pos = i
			break
		}
	}
	subs = append(subs, subscription{})
	copy(subs[pos+1:], subs[pos:])
	subs[pos] = sub
	r.hooks[name] = subs
}

// Trigger delivers ev to every callback subscribed to name whose context
// is empty or equals the trigger context. Triggering an unseen name
// registers it, same as RegisterCallback. Callbacks run synchronously in
// priority order; a panic or returned error is logged and skipped so one
// bad subscriber cannot starve the rest.
func (r *Registry) Trigger(name string, ev Event, context string) {
	r.mu.Lock()
	if _, ok := r.hooks[name]; !ok {
		r.hooks[name] = nil
	}
	subs := make([]subscription, len(r.hooks[name]))
	copy(subs, r.hooks[name])
	r.mu.Unlock()

	ev.Name = name
	for _, s := range subs {
		if s.context != "" && s.context != context {
			continue
		}
		r.invoke(name, s, ev)
	}
}

func (r *Registry) invoke(name string, s subscription, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"hook":     name,
				"priority": s.priority,
			}).Errorf("hook callback panicked: %v", rec)
		}
	}()
	if err := s.fn(ev); err != nil {
		r.log.WithFields(logrus.Fields{
			"hook":     name,
			"priority": s.priority,
		}).WithError(err).Error("hook callback failed")
	}
}

// Clear removes every callback from the named hook. The hook itself stays
// registered so later RegisterCallback calls still work.
func (r *Registry) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[name]; ok {
		r.hooks[name] = nil
	}
}

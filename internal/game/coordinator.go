package game

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/models"
)

// Event names accepted from clients.
const (
	ActionStartMatch   = "start_match"
	ActionDrawCard     = "draw_card"
	ActionPlayCard     = "play_card"
	ActionSameRankPlay = "same_rank_play"
	ActionQueenPeek    = "queen_peek"
	ActionJackSwap     = "jack_swap"
	ActionRevealCards  = "reveal_cards"
	ActionCallRecall   = "call_recall"
)

// Coordinator is the single ingress for player actions: it resolves
// session to room to round, dispatches by event name, and answers every
// dispatch with exactly one acknowledgement or error.
type Coordinator struct {
	rounds    *Registry
	rooms     RoomManager
	transport Transport
	historian Historian
}

// NewCoordinator wires the coordinator to its collaborators.
func NewCoordinator(rounds *Registry, rooms RoomManager, transport Transport) *Coordinator {
	return &Coordinator{rounds: rounds, rooms: rooms, transport: transport}
}

// SetHistorian wires the audit sink for rejected actions.
func (c *Coordinator) SetHistorian(h Historian) { c.historian = h }

// Handle processes one inbound player event. Unknown event names are
// acknowledged as no-ops so protocol peers of other versions keep working.
// A panic inside a handler becomes an error response, never a crash.
func (c *Coordinator) Handle(sessionID, eventName string, payload map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Coordinator: panic handling %s for session %s: %v", eventName, sessionID, rec)
			c.sendError(sessionID, "", eventName, reject(ErrInternal, "internal error handling %s", eventName))
		}
	}()

	roomID, ok := c.rooms.GetRoomForSession(sessionID)
	if !ok {
		c.sendError(sessionID, "", eventName, reject(ErrNotInRoom, "session is not in a room"))
		return
	}
	if _, ok := c.rooms.GetRoomInfo(roomID); !ok {
		c.sendError(sessionID, roomID, eventName, reject(ErrUnknownRoom, "room %s no longer exists", roomID))
		return
	}
	round := c.rounds.GetOrCreate(roomID)
	player := round.PlayerBySession(sessionID)

	playerID := uuid.Nil
	if player != nil {
		playerID = player.ID
	}

	var err error
	switch eventName {
	case ActionStartMatch:
		err = round.StartMatch(sessionID)
	case ActionDrawCard:
		source, _ := payloadString(payload, "source", "from")
		err = c.requirePlayer(player, func() error {
			return round.HandleDrawCard(playerID, source)
		})
	case ActionPlayCard:
		err = c.requirePlayer(player, func() error {
			cardID, perr := payloadUUID(payload, "card_id", "cardId")
			if perr != nil {
				return perr
			}
			return round.HandlePlayCard(playerID, cardID)
		})
	case ActionSameRankPlay:
		err = c.requirePlayer(player, func() error {
			cardID, perr := payloadUUID(payload, "card_id", "cardId")
			if perr != nil {
				return perr
			}
			// An explicit player_id may name the acting player and must
			// match the session's seat.
			if claimed, cerr := payloadUUID(payload, "player_id", "playerId"); cerr == nil && claimed != playerID {
				return reject(ErrInvalidPayload, "player_id does not match your seat")
			}
			return round.HandleSameRankPlay(playerID, cardID)
		})
	case ActionQueenPeek, ActionJackSwap:
		err = c.requirePlayer(player, func() error {
			sel, perr := payloadSelection(payload, playerID)
			if perr != nil {
				return perr
			}
			return round.HandleSpecialSelection(playerID, sel)
		})
	case ActionRevealCards:
		err = c.requirePlayer(player, func() error {
			ids, perr := payloadUUIDList(payload, "card_ids", "cardIds")
			if perr != nil {
				return perr
			}
			return round.HandleRevealCards(playerID, ids)
		})
	case ActionCallRecall:
		err = c.requirePlayer(player, func() error {
			return round.HandleCallRecall(playerID)
		})
	default:
		// Forward-compatible no-op.
		log.Printf("Coordinator: acknowledging unknown event %q from session %s.", eventName, sessionID)
	}

	if err != nil {
		c.logRejection(round, playerID, eventName, err, payload)
		c.sendError(sessionID, roomID, eventName, err)
		return
	}
	c.transport.SendToSession(sessionID, stamp(GameEvent{
		Type:   eventName + "_acknowledged",
		RoomID: roomID,
	}))
}

func (c *Coordinator) requirePlayer(player *models.Player, fn func() error) error {
	if player == nil {
		return reject(ErrUnknownPlayer, "session is not seated in this room")
	}
	return fn()
}

func (c *Coordinator) sendError(sessionID, roomID, eventName string, err error) {
	msg := err.Error()
	if re, ok := err.(*RoundError); ok {
		msg = re.Message
	}
	c.transport.SendToSession(sessionID, stamp(GameEvent{
		Type:   eventName + "_error",
		RoomID: roomID,
		Payload: map[string]any{
			"code":    string(CodeOf(err)),
			"message": msg,
		},
	}))
}

func (c *Coordinator) logRejection(round *Round, playerID uuid.UUID, eventName string, err error, payload map[string]any) {
	if c.historian == nil {
		return
	}
	c.historian.Record(gameActionFor(round, playerID, eventName, err, payload))
}

// payloadString reads the first present key among aliases.
func payloadString(payload map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// payloadUUID reads and parses a UUID field, tolerating alias keys.
func payloadUUID(payload map[string]any, keys ...string) (uuid.UUID, error) {
	s, ok := payloadString(payload, keys...)
	if !ok {
		return uuid.Nil, reject(ErrInvalidPayload, "missing field %q", keys[0])
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, reject(ErrInvalidPayload, "field %q is not a valid id: %v", keys[0], err)
	}
	return id, nil
}

// payloadUUIDList reads a list of UUID strings, tolerating alias keys.
func payloadUUIDList(payload map[string]any, keys ...string) ([]uuid.UUID, error) {
	for _, k := range keys {
		raw, ok := payload[k]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, reject(ErrInvalidPayload, "field %q must be a list", k)
		}
		ids := make([]uuid.UUID, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, reject(ErrInvalidPayload, "field %q must contain id strings", k)
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, reject(ErrInvalidPayload, "field %q contains an invalid id: %v", k, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return nil, reject(ErrInvalidPayload, "missing field %q", keys[0])
}

// payloadSelection reads one {player_id, card_id} pair. The owner defaults
// to the acting player when omitted.
func payloadSelection(payload map[string]any, actor uuid.UUID) (Selection, error) {
	cardID, err := payloadUUID(payload, "card_id", "cardId")
	if err != nil {
		return Selection{}, err
	}
	ownerID := actor
	if _, present := payloadString(payload, "player_id", "playerId"); present {
		ownerID, err = payloadUUID(payload, "player_id", "playerId")
		if err != nil {
			return Selection{}, err
		}
	}
	return Selection{OwnerID: ownerID, CardID: cardID}, nil
}

func gameActionFor(round *Round, playerID uuid.UUID, eventName string, err error, payload map[string]any) models.GameAction {
	return models.GameAction{
		GameID:    round.GameID,
		PlayerID:  playerID,
		Event:     eventName,
		Accepted:  false,
		ErrorCode: string(CodeOf(err)),
		Payload:   payload,
		At:        time.Now(),
	}
}

// Package server is the websocket transport shim: session identity,
// room membership messages, and fan-out of engine events. Game semantics
// live in internal/game; this layer only moves messages.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/recallhq/recall/internal/game"
	"github.com/recallhq/recall/internal/hooks"
	"github.com/recallhq/recall/internal/models"
)

// session is one connected websocket client. Outbound messages go through
// a buffered channel and a dedicated writer goroutine so engine broadcasts
// never block on a slow peer.
type session struct {
	id       string
	userID   uuid.UUID
	username string
	conn     *websocket.Conn
	outbound chan any
	closed   chan struct{}
	once     sync.Once
}

func (s *session) send(message any) {
	select {
	case s.outbound <- message:
	case <-s.closed:
	default:
		// Slow consumer; drop rather than stall the room.
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.closed) })
}

// Server terminates websocket connections and routes inbound messages to
// the game event coordinator. It implements game.Transport.
type Server struct {
	jwtSecret string
	bus       *hooks.Registry
	rooms     *roomManager
	log       *logrus.Entry

	mu       sync.RWMutex
	sessions map[string]*session

	// Coordinator is set after construction to break the dependency cycle
	// between transport and engine wiring.
	Coordinator *game.Coordinator
}

// New builds the transport layer around the hook bus.
func New(jwtSecret string, bus *hooks.Registry) *Server {
	return &Server{
		jwtSecret: jwtSecret,
		bus:       bus,
		rooms:     newRoomManager(bus),
		sessions:  make(map[string]*session),
		log:       logrus.WithField("component", "server"),
	}
}

// RoomManager exposes the membership view consumed by the engine.
func (sv *Server) RoomManager() game.RoomManager {
	return sv.rooms
}

// SendToSession implements game.Transport.
func (sv *Server) SendToSession(sessionID string, message any) {
	sv.mu.RLock()
	sess, ok := sv.sessions[sessionID]
	sv.mu.RUnlock()
	if ok {
		sess.send(message)
	}
}

// BroadcastToRoom implements game.Transport.
func (sv *Server) BroadcastToRoom(roomID string, message any) {
	for _, sess := range sv.rooms.sessionsIn(roomID) {
		sess.send(message)
	}
}

// BroadcastToRoomExcept implements game.Transport.
func (sv *Server) BroadcastToRoomExcept(roomID string, message any, excludeSessionID string) {
	for _, sess := range sv.rooms.sessionsIn(roomID) {
		if sess.id != excludeSessionID {
			sess.send(message)
		}
	}
}

// GetRoomOwner implements game.Transport.
func (sv *Server) GetRoomOwner(roomID string) uuid.UUID {
	return sv.rooms.ownerOf(roomID)
}

// clientMessage is the inbound wire format.
type clientMessage struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Handler returns the HTTP mux for the websocket and auth endpoints.
func (sv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", sv.handleWS)
	mux.HandleFunc("/auth/guest", sv.handleGuest)
	return mux
}

// handleGuest mints an ephemeral identity so clients can connect without
// an account.
func (sv *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		username = "guest"
	}
	user := models.User{ID: uuid.New(), Username: username, IsEphemeral: true}
	token, err := NewToken(user.ID, user.Username, sv.jwtSecret)
	if err != nil {
		sv.log.WithError(err).Error("failed to mint guest token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}{Token: token, User: user})
}

func (sv *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, username, err := parseToken(token, sv.jwtSecret)
	if err != nil {
		sv.log.WithError(err).Info("rejected connection with bad token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		sv.log.WithError(err).Warn("websocket accept failed")
		return
	}

	sess := &session{
		id:       uuid.NewString(),
		userID:   userID,
		username: username,
		conn:     conn,
		outbound: make(chan any, 64),
		closed:   make(chan struct{}),
	}
	sv.mu.Lock()
	sv.sessions[sess.id] = sess
	sv.mu.Unlock()
	sv.log.WithFields(logrus.Fields{"session": sess.id, "user": username}).Info("session connected")

	ctx := r.Context()
	go sv.writeLoop(ctx, sess)
	sv.readLoop(ctx, sess)

	sess.close()
	sv.rooms.leaveRoom(sess)
	sv.mu.Lock()
	delete(sv.sessions, sess.id)
	sv.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "bye")
	sv.log.WithField("session", sess.id).Info("session disconnected")
}

func (sv *Server) writeLoop(ctx context.Context, sess *session) {
	for {
		select {
		case msg := <-sess.outbound:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, sess.conn, msg)
			cancel()
			if err != nil {
				sv.log.WithError(err).WithField("session", sess.id).Debug("write failed")
				return
			}
		case <-sess.closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (sv *Server) readLoop(ctx context.Context, sess *session) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, sess.conn, &msg); err != nil {
			return
		}
		sv.dispatch(sess, msg)
	}
}

// dispatch routes room membership messages locally and hands everything
// else to the game event coordinator.
func (sv *Server) dispatch(sess *session, msg clientMessage) {
	switch msg.Event {
	case "create_room":
		minPlayers, _ := intField(msg.Payload, "min_players", "minPlayers")
		maxSize, _ := intField(msg.Payload, "max_size", "maxSize")
		roomID, err := sv.rooms.createRoom(sess, minPlayers, maxSize)
		if err != nil {
			sess.send(map[string]any{"type": "create_room_error", "message": err.Error()})
			return
		}
		sess.send(map[string]any{"type": "create_room_acknowledged", "roomId": roomID})
	case "join_room":
		roomID, _ := msg.Payload["room_id"].(string)
		if roomID == "" {
			roomID, _ = msg.Payload["roomId"].(string)
		}
		if err := sv.rooms.joinRoom(sess, roomID); err != nil {
			sess.send(map[string]any{"type": "join_room_error", "message": err.Error()})
			return
		}
		sess.send(map[string]any{"type": "join_room_acknowledged", "roomId": roomID})
	case "leave_room":
		sv.rooms.leaveRoom(sess)
		sess.send(map[string]any{"type": "leave_room_acknowledged"})
	default:
		if sv.Coordinator != nil {
			sv.Coordinator.Handle(sess.id, msg.Event, msg.Payload)
		}
	}
}

// intField reads an integer that may arrive as a JSON number.
func intField(payload map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if f, ok := v.(float64); ok {
				return int(f), true
			}
		}
	}
	return 0, false
}

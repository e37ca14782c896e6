// Package server hosts game rooms over websockets: the room registry, the
// per-room supervisor that serialises engine calls, and the REST lobby API.
package server

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/example/hexsettlers/internal/archive"
	"github.com/example/hexsettlers/internal/auth"
	"github.com/example/hexsettlers/internal/game"
)

// DefaultRoomID is used when create or join omit a room name.
const DefaultRoomID = "default"

const (
	maxRoomIDLen       = 64
	defaultIdleTimeout = 2 * time.Minute
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomNameConflict = errors.New("room name already in use")
)

// Archiver stores finished games.
type Archiver interface {
	Write(archive.Record) error
}

type Options struct {
	TurnTimeout   time.Duration
	BotDelay      time.Duration
	BotChainDelay time.Duration
	LogSize       int
	ChatSize      int

	// IdleTimeout closes a room nobody has entered since it was created.
	// Zero uses defaultIdleTimeout.
	IdleTimeout time.Duration

	MessageRate  float64
	MessageBurst int

	// Room holds the settings new rooms start from.
	Room           game.Settings
	AllowedOrigins []string

	// Rand seeds each new room's engine. Nil uses a time-based seed.
	Rand func() *rand.Rand
}

type RoomInfo struct {
	ID         string        `json:"id"`
	Phase      game.Phase    `json:"phase"`
	Started    bool          `json:"started"`
	Players    int           `json:"playerCount"`
	Humans     int           `json:"humanCount"`
	Spectators int           `json:"spectatorCount"`
	Settings   game.Settings `json:"settings"`
}

type GameServer struct {
	opts     Options
	issuer   *auth.Issuer
	archive  Archiver
	rooms    map[string]*Room
	roomsMu  sync.RWMutex
	upgrader websocket.Upgrader
}

// NewGameServer builds a registry. arch may be nil to skip archiving.
func NewGameServer(opts Options, issuer *auth.Issuer, arch Archiver) *GameServer {
	gs := &GameServer{
		opts:    opts,
		issuer:  issuer,
		archive: arch,
		rooms:   make(map[string]*Room),
	}
	gs.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin")) },
	}
	return gs
}

func normalizeRoomID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultRoomID
	}
	if utf8.RuneCountInString(id) > maxRoomIDLen {
		id = string([]rune(id)[:maxRoomIDLen])
	}
	return id
}

// CreateRoom registers a new room. Names are unique across the server.
func (gs *GameServer) CreateRoom(id string, settings game.Settings) (*Room, error) {
	id = normalizeRoomID(id)
	gs.roomsMu.Lock()
	defer gs.roomsMu.Unlock()
	if _, ok := gs.rooms[id]; ok {
		return nil, ErrRoomNameConflict
	}
	room := newRoom(id, settings.Normalize(gs.opts.Room), gs.opts, gs.archive, gs.removeRoom)
	gs.rooms[id] = room
	log.Info().Str("room_id", id).Msg("room created")
	return room, nil
}

func (gs *GameServer) GetRoom(id string) (*Room, error) {
	id = normalizeRoomID(id)
	gs.roomsMu.RLock()
	defer gs.roomsMu.RUnlock()
	room, ok := gs.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// removeRoom unregisters room if it is still the one registered under its id.
func (gs *GameServer) removeRoom(room *Room) {
	gs.roomsMu.Lock()
	defer gs.roomsMu.Unlock()
	if gs.rooms[room.ID] == room {
		delete(gs.rooms, room.ID)
	}
}

func (gs *GameServer) ListRooms() []RoomInfo {
	gs.roomsMu.RLock()
	rooms := make([]*Room, 0, len(gs.rooms))
	for _, room := range gs.rooms {
		rooms = append(rooms, room)
	}
	gs.roomsMu.RUnlock()

	resp := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, room.Info())
	}
	// sort for stable output
	sort.Slice(resp, func(i, j int) bool { return resp[i].ID < resp[j].ID })
	return resp
}

// Close stops every room's timers.
func (gs *GameServer) Close() {
	gs.roomsMu.Lock()
	defer gs.roomsMu.Unlock()
	for id, room := range gs.rooms {
		room.close()
		delete(gs.rooms, id)
	}
}

// HandleWS upgrades the connection. A valid session token binds the socket
// to its participant id; without one a fresh session is issued and sent as
// the first message.
func (gs *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	var (
		claims *auth.Claims
		token  string
	)
	if raw, err := auth.TokenFromRequest(r); err == nil {
		claims, err = gs.issuer.Validate(raw)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
	} else {
		token, claims, err = gs.issuer.Issue("", r.URL.Query().Get("name"))
		if err != nil {
			log.Error().Err(err).Msg("issue session")
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
	}

	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	c := newClient(claims.Subject, claims.Name, conn, rate.Limit(gs.opts.MessageRate), gs.opts.MessageBurst)
	log.Info().Str("player_id", c.id).Str("remote", r.RemoteAddr).Msg("client connected")
	if token != "" {
		c.sendJSON(outSession, sessionResponse{Token: token, PlayerID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time})
	}
	go c.writePump()
	go gs.readLoop(c)
}

func (gs *GameServer) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gs.ListRooms())
}

func (gs *GameServer) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
	}
	settings, err := decodeSettings(req.Settings, gs.opts.Room)
	if err != nil {
		http.Error(w, "malformed settings", http.StatusBadRequest)
		return
	}
	room, err := gs.CreateRoom(req.RoomName, settings)
	if errors.Is(err, ErrRoomNameConflict) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, room.Info())
}

type sessionResponse struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"playerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleSession issues a session token for a new participant.
func (gs *GameServer) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
	}
	token, claims, err := gs.issuer.Issue("", strings.TrimSpace(req.Name))
	if err != nil {
		log.Error().Err(err).Msg("issue session")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, PlayerID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time})
}

// WebSocket read loop
func (gs *GameServer) readLoop(c *client) {
	defer gs.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player_id", c.id).Msg("read")
			}
			return
		}
		if !c.limiter.Allow() {
			log.Debug().Str("player_id", c.id).Str("type", msg.Type).Msg("rate limited")
			continue
		}
		gs.dispatch(c, msg)
	}
}

func (gs *GameServer) dispatch(c *client, msg Message) {
	switch msg.Type {
	case msgCreateRoom, msgJoinGame:
		req, err := decodeRoomRequest(msg.Payload)
		if err != nil {
			c.sendError("malformed request")
			return
		}
		if msg.Type == msgCreateRoom {
			err = gs.createAndJoin(c, req)
		} else {
			err = gs.join(c, req)
		}
		if err != nil {
			log.Info().Err(err).Str("player_id", c.id).Str("room_id", req.RoomName).Msg("room request rejected")
			c.sendError(err.Error())
		}
	case msgListRooms:
		c.sendJSON(outRooms, gs.ListRooms())
	case msgStartGame:
		if c.room != nil {
			c.room.start(c, msg.Payload)
		}
	case msgResetGame:
		if c.room != nil {
			c.room.reset(c)
		}
	case msgChat:
		text, err := decodeChat(msg.Payload)
		if err == nil && c.room != nil {
			c.room.chat(c, text)
		}
	default:
		a, err := decodeAction(msg.Type, msg.Payload)
		if err != nil {
			log.Debug().Err(err).Str("player_id", c.id).Msg("dropped message")
			return
		}
		if c.room != nil {
			c.room.act(c.id, a)
		}
	}
}

func (gs *GameServer) createAndJoin(c *client, req roomRequest) error {
	settings, err := decodeSettings(req.Settings, gs.opts.Room)
	if err != nil {
		return err
	}
	room, err := gs.CreateRoom(req.RoomName, settings)
	if err != nil {
		return err
	}
	return gs.enter(c, room, req.Name)
}

func (gs *GameServer) join(c *client, req roomRequest) error {
	room, err := gs.GetRoom(req.RoomName)
	if err != nil {
		return err
	}
	return gs.enter(c, room, req.Name)
}

// enter moves c into room, leaving its previous room first.
func (gs *GameServer) enter(c *client, room *Room, name string) error {
	if c.room != nil && c.room != room {
		gs.leave(c)
	}
	if err := room.join(c, strings.TrimSpace(name)); err != nil {
		return err
	}
	c.room = room
	return nil
}

func (gs *GameServer) leave(c *client) {
	room := c.room
	c.room = nil
	if room != nil && room.leave(c) {
		gs.removeRoom(room)
	}
}

func (gs *GameServer) disconnect(c *client) {
	c.close()
	gs.leave(c)
	log.Info().Str("player_id", c.id).Msg("client disconnected")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// originAllowed permits every origin when the list is empty.
func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

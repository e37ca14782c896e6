package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/example/hexsettlers/internal/archive"
	"github.com/example/hexsettlers/internal/game"
)

const (
	spectatorName  = "Spectator"
	spectatorColor = "#666"
	maxChatRunes   = 500
)

type ChatEntry struct {
	Name  string `json:"name"`
	Text  string `json:"msg"`
	Color string `json:"color"`
}

// State is the full snapshot broadcast after every mutation.
type State struct {
	game.Snapshot
	RoomID     string      `json:"roomId"`
	Timer      int         `json:"timer"`
	Spectators []string    `json:"spectators"`
	Chats      []ChatEntry `json:"chats"`
}

// Room supervises one game. Every engine call happens under mu, so inbound
// actions, the turn timer and the bot driver never interleave.
type Room struct {
	ID string

	opts    Options
	archive Archiver

	mu         sync.Mutex
	game       *game.Game
	conns      map[string]*client
	spectators []string
	chats      []ChatEntry

	turnTimer   *time.Timer
	timerSerial int
	deadline    time.Time
	botTimer    *time.Timer

	// idleTimer closes a room nobody has entered. onIdle unregisters it.
	idleTimer *time.Timer
	onIdle    func(*Room)

	archived bool
	closed   bool
}

func newRoom(id string, settings game.Settings, opts Options, arch Archiver, onIdle func(*Room)) *Room {
	gameOpts := []game.Option{game.WithLogSize(opts.LogSize)}
	if opts.Rand != nil {
		gameOpts = append(gameOpts, game.WithRand(opts.Rand()))
	}
	r := &Room{
		ID:         id,
		opts:       opts,
		archive:    arch,
		game:       game.New(settings, gameOpts...),
		conns:      map[string]*client{},
		spectators: []string{},
		chats:      []ChatEntry{},
		onIdle:     onIdle,
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	r.idleTimer = time.AfterFunc(idle, r.expireIdle)
	return r
}

// expireIdle closes the room if nobody is in it when the idle timer fires.
func (r *Room) expireIdle() {
	r.mu.Lock()
	r.idleTimer = nil
	empty := !r.closed && len(r.conns) == 0 && r.game.HumanCount() == 0 && len(r.spectators) == 0
	if empty {
		log.Info().Str("room_id", r.ID).Msg("idle room expired")
		r.closeLocked()
	}
	r.mu.Unlock()
	if empty && r.onIdle != nil {
		r.onIdle(r)
	}
}

// join seats c, re-binds a returning participant, or admits c as a
// spectator when no seat is free. A spectator who joins again while the
// room is still waiting takes a seat if one has opened up.
func (r *Room) join(c *client, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if name == "" {
		name = c.name
	}
	if p := r.game.Player(c.id); p != nil && !p.IsBot {
		r.game.Rename(c.id, name)
		r.conns[c.id] = c
		r.broadcastLocked(outUpdateState)
		return nil
	}
	spectating := r.isSpectatorLocked(c.id)
	if spectating && (r.game.Phase() != game.PhaseWaiting || r.game.HumanCount() >= r.game.Settings().HumanLimit) {
		r.conns[c.id] = c
		r.sendStateLocked(c, outUpdateState)
		return nil
	}

	_, err := r.game.AddPlayer(c.id, name)
	switch {
	case spectating && err != nil:
		r.conns[c.id] = c
		r.sendStateLocked(c, outUpdateState)
		return nil
	case errors.Is(err, game.ErrRoomFull), errors.Is(err, game.ErrGameStarted):
		r.spectators = append(r.spectators, c.id)
		r.conns[c.id] = c
		log.Info().Str("room_id", r.ID).Str("player_id", c.id).Msg("joined as spectator")
		c.sendJSON(outMessage, "The room is full; you are watching as a spectator")
		r.broadcastLocked(outUpdateState)
		return nil
	case err != nil:
		return err
	}
	if spectating {
		r.spectators = removeID(r.spectators, c.id)
	}
	r.conns[c.id] = c
	log.Info().Str("room_id", r.ID).Str("player_id", c.id).Str("name", name).Msg("player joined")
	r.broadcastLocked(outUpdateState)
	return nil
}

// leave drops c and reports whether the room is now empty and closed. A
// connection that was replaced by a newer one for the same participant is
// ignored.
func (r *Room) leave(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.conns[c.id] != c {
		return false
	}
	delete(r.conns, c.id)
	if r.isSpectatorLocked(c.id) {
		r.spectators = removeID(r.spectators, c.id)
	} else {
		r.game.RemovePlayer(c.id)
	}
	log.Info().Str("room_id", r.ID).Str("player_id", c.id).Msg("participant left")

	if r.game.HumanCount() == 0 && len(r.spectators) == 0 {
		r.closeLocked()
		return true
	}
	r.commitLocked(outUpdateState, r.opts.BotDelay)
	return false
}

func (r *Room) start(c *client, raw json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.game.Player(c.id) == nil {
		return
	}
	b, err := decodeBoard(raw)
	if err != nil {
		log.Debug().Err(err).Str("room_id", r.ID).Msg("rejected board")
		c.sendError("invalid board data")
		return
	}
	if err := r.game.Start(b, r.botID); err != nil {
		log.Debug().Err(err).Str("room_id", r.ID).Msg("start rejected")
		c.sendError(err.Error())
		return
	}
	log.Info().Str("room_id", r.ID).Int("players", len(r.game.Players())).Msg("game started")
	r.commitLocked(outGameStarted, r.opts.BotDelay)
}

func (r *Room) reset(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.game.Player(c.id) == nil {
		return
	}
	r.stopTimersLocked()
	r.game.Reset()
	r.archived = false
	log.Info().Str("room_id", r.ID).Msg("room reset")
	r.commitLocked(outGameStarted, r.opts.BotDelay)
}

// act applies one in-game action. Illegal actions are dropped silently.
func (r *Room) act(playerID string, a game.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if err := r.game.Apply(playerID, a); err != nil {
		log.Debug().Err(err).Str("room_id", r.ID).Str("player_id", playerID).
			Str("action", string(a.Kind())).Msg("action rejected")
		return
	}
	r.commitLocked(outUpdateState, r.opts.BotDelay)
}

func (r *Room) chat(c *client, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		text = string([]rune(text)[:maxChatRunes])
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	entry := ChatEntry{Name: spectatorName, Text: text, Color: spectatorColor}
	if p := r.game.Player(c.id); p != nil {
		entry.Name = p.Name
		entry.Color = string(p.Color)
	} else if !r.isSpectatorLocked(c.id) {
		return
	}
	r.chats = append(r.chats, entry)
	if over := len(r.chats) - r.opts.ChatSize; over > 0 {
		r.chats = append([]ChatEntry(nil), r.chats[over:]...)
	}
	r.sendAllLocked(outChatUpdate, entry)
}

// Info summarises the room for the lobby listing.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:         r.ID,
		Phase:      r.game.Phase(),
		Started:    r.game.Started(),
		Players:    len(r.game.Players()),
		Humans:     r.game.HumanCount(),
		Spectators: len(r.spectators),
		Settings:   r.game.Settings(),
	}
}

// commitLocked delivers the side effects of a successful mutation: engine
// events, the full state, the archive record on game over, the turn timer
// and the next bot step.
func (r *Room) commitLocked(kind string, botDelay time.Duration) {
	events := r.game.DrainEvents()
	r.armTimerLocked()
	r.broadcastLocked(kind)
	r.deliverLocked(events)

	if r.game.Phase() == game.PhaseGameOver {
		r.stopTimersLocked()
		r.archiveLocked()
		return
	}
	r.scheduleBotLocked(botDelay)
}

func (r *Room) deliverLocked(events []game.Event) {
	for _, e := range events {
		switch e.Kind {
		case game.EventSound:
			r.sendAllLocked(outPlaySound, e.Sound)
		case game.EventTradeRequested:
			if c := r.conns[e.To]; c != nil {
				c.sendJSON(outTradeRequested, e.Trade)
			}
		case game.EventNotice:
			if e.To == "" {
				r.sendAllLocked(outMessage, e.Text)
			} else if c := r.conns[e.To]; c != nil {
				c.sendJSON(outMessage, e.Text)
			}
		}
	}
}

func (r *Room) archiveLocked() {
	if r.archived {
		return
	}
	r.archived = true
	winner := r.game.Winner()
	if p := r.game.Player(winner); p != nil {
		log.Info().Str("room_id", r.ID).Str("winner", p.Name).Msg("game over")
	}
	if r.archive == nil {
		return
	}
	rec := archive.NewRecord(r.ID, r.game, time.Now())
	go func() {
		if err := r.archive.Write(rec); err != nil {
			log.Error().Err(err).Str("room_id", rec.RoomID).Msg("archive game")
		}
	}()
}

// armTimerLocked restarts the turn timer whenever the acting participant
// changed, and stops it outside active play.
func (r *Room) armTimerLocked() {
	switch r.game.Phase() {
	case game.PhaseWaiting, game.PhaseGameOver:
		r.stopTurnTimerLocked()
		return
	}
	serial := r.game.TurnSerial()
	if r.turnTimer != nil && serial == r.timerSerial {
		return
	}
	r.stopTurnTimerLocked()
	r.timerSerial = serial
	r.deadline = time.Now().Add(r.opts.TurnTimeout)
	r.turnTimer = time.AfterFunc(r.opts.TurnTimeout, func() { r.expire(serial) })
}

func (r *Room) expire(serial int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || serial != r.timerSerial || r.turnTimer == nil {
		return
	}
	r.turnTimer = nil
	if r.game.Timeout(serial) {
		log.Info().Str("room_id", r.ID).Msg("turn timed out")
	}
	r.commitLocked(outUpdateState, r.opts.BotDelay)
}

// scheduleBotLocked arms the bot driver when a bot must act. At most one
// bot step is pending per room.
func (r *Room) scheduleBotLocked(delay time.Duration) {
	if r.botTimer != nil {
		return
	}
	if _, ok := r.game.BotTurn(); !ok {
		return
	}
	r.botTimer = time.AfterFunc(delay, r.botStep)
}

func (r *Room) botStep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.botTimer = nil
	if r.closed {
		return
	}
	p, ok := r.game.BotTurn()
	if !ok {
		return
	}
	serial := r.game.TurnSerial()
	a := r.game.DecideFor(p)
	if a == nil {
		return
	}
	if err := r.game.Apply(p.ID, a); err != nil {
		log.Warn().Err(err).Str("room_id", r.ID).Str("player_id", p.ID).
			Str("action", string(a.Kind())).Msg("bot action rejected")
		if r.game.Apply(p.ID, game.EndTurn{}) != nil {
			return
		}
	}
	delay := r.opts.BotDelay
	if r.game.TurnSerial() == serial {
		delay = r.opts.BotChainDelay
	}
	r.commitLocked(outUpdateState, delay)
}

func (r *Room) stopTurnTimerLocked() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.deadline = time.Time{}
}

func (r *Room) stopTimersLocked() {
	r.stopTurnTimerLocked()
	if r.botTimer != nil {
		r.botTimer.Stop()
		r.botTimer = nil
	}
}

func (r *Room) stopIdleTimerLocked() {
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
}

func (r *Room) closeLocked() {
	r.closed = true
	r.stopTimersLocked()
	r.stopIdleTimerLocked()
	log.Info().Str("room_id", r.ID).Msg("room closed")
}

func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closeLocked()
	}
}

func (r *Room) stateLocked() State {
	timer := 0
	if !r.deadline.IsZero() {
		if left := time.Until(r.deadline); left > 0 {
			timer = int((left + time.Second - 1) / time.Second)
		}
	}
	return State{
		Snapshot:   r.game.Snapshot(),
		RoomID:     r.ID,
		Timer:      timer,
		Spectators: r.spectators,
		Chats:      r.chats,
	}
}

func (r *Room) broadcastLocked(kind string) {
	r.sendAllLocked(kind, r.stateLocked())
}

func (r *Room) sendStateLocked(c *client, kind string) {
	c.sendJSON(kind, r.stateLocked())
}

// sendAllLocked marshals once, under the lock, since snapshots share memory
// with the game.
func (r *Room) sendAllLocked(typ string, payload interface{}) {
	data, err := json.Marshal(WSOut{Type: typ, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("room_id", r.ID).Str("type", typ).Msg("marshal broadcast")
		return
	}
	for _, c := range r.conns {
		c.enqueue(data)
	}
}

func (r *Room) isSpectatorLocked(id string) bool {
	for _, s := range r.spectators {
		if s == id {
			return true
		}
	}
	return false
}

func (r *Room) botID(i int) string { return fmt.Sprintf("bot-%s-%d", r.ID, i) }

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, s := range ids {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

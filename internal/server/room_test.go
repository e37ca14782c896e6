package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hexsettlers/internal/archive"
	"github.com/example/hexsettlers/internal/auth"
	"github.com/example/hexsettlers/internal/game"
)

func testOptions() Options {
	seed := int64(0)
	var mu sync.Mutex
	return Options{
		TurnTimeout:   time.Hour,
		BotDelay:      time.Hour,
		BotChainDelay: time.Hour,
		LogSize:       15,
		ChatSize:      50,
		MessageRate:   100,
		MessageBurst:  100,
		Room:          game.DefaultSettings(),
		Rand: func() *rand.Rand {
			mu.Lock()
			defer mu.Unlock()
			seed++
			return rand.New(rand.NewSource(seed))
		},
	}
}

func newTestServer(opts Options, arch Archiver) *GameServer {
	return NewGameServer(opts, auth.NewIssuer("test-secret", time.Hour), arch)
}

// fakeClient has no socket; frames stay in its send buffer.
func fakeClient(id string) *client {
	return newClient(id, "", nil, 100, 100)
}

func next(t *testing.T, c *client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("no message for %s", c.id)
		return Message{}
	}
}

func nextOf(t *testing.T, c *client, typ string) Message {
	t.Helper()
	for {
		if m := next(t, c); m.Type == typ {
			return m
		}
	}
}

func drain(c *client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

type wireState struct {
	RoomID  string `json:"roomId"`
	Phase   string `json:"phase"`
	Timer   int    `json:"timer"`
	Players []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		IsBot bool   `json:"isBot"`
	} `json:"players"`
	Spectators []string    `json:"spectators"`
	Chats      []ChatEntry `json:"chats"`
}

func decodeState(t *testing.T, m Message) wireState {
	t.Helper()
	var s wireState
	require.NoError(t, json.Unmarshal(m.Payload, &s))
	return s
}

func (r *Room) withGame(fn func(g *game.Game)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.game)
}

func TestRegistry(t *testing.T) {
	gs := newTestServer(testOptions(), nil)

	room, err := gs.CreateRoom("", game.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, DefaultRoomID, room.ID)
	assert.Equal(t, game.DefaultSettings(), room.Info().Settings)

	_, err = gs.CreateRoom("  default ", game.Settings{})
	assert.ErrorIs(t, err, ErrRoomNameConflict)

	_, err = gs.GetRoom("missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	got, err := gs.GetRoom("")
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = gs.CreateRoom("alpha", game.Settings{HumanLimit: 2})
	require.NoError(t, err)
	infos := gs.ListRooms()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].ID)
	assert.Equal(t, 2, infos[0].Settings.HumanLimit)
	assert.Equal(t, game.PhaseWaiting, infos[0].Phase)

	gs.Close()
	assert.Empty(t, gs.ListRooms())
}

func TestJoinSeatsAndSpectates(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, b, c := fakeClient("a"), fakeClient("b"), fakeClient("c")

	require.NoError(t, gs.createAndJoin(a, roomRequest{Name: "Ann", RoomName: "r", Settings: json.RawMessage(`{"humanLimit":2}`)}))
	s := decodeState(t, nextOf(t, a, outUpdateState))
	assert.Equal(t, "r", s.RoomID)
	require.Len(t, s.Players, 1)
	assert.Equal(t, "Ann", s.Players[0].Name)

	require.NoError(t, gs.join(b, roomRequest{Name: "Bo", RoomName: "r"}))
	require.NoError(t, gs.join(c, roomRequest{Name: "Cy", RoomName: "r"}))
	m := next(t, c)
	assert.Equal(t, outMessage, m.Type)
	s = decodeState(t, nextOf(t, c, outUpdateState))
	assert.Len(t, s.Players, 2)
	assert.Equal(t, []string{"c"}, s.Spectators)

	// a returning participant is renamed, not seated twice
	drain(b)
	require.NoError(t, gs.join(b, roomRequest{Name: "Bob", RoomName: "r"}))
	s = decodeState(t, nextOf(t, b, outUpdateState))
	require.Len(t, s.Players, 2)
	assert.Equal(t, "Bob", s.Players[1].Name)

	assert.ErrorIs(t, gs.join(fakeClient("d"), roomRequest{RoomName: "nope"}), ErrRoomNotFound)
	assert.ErrorIs(t, gs.createAndJoin(fakeClient("d"), roomRequest{RoomName: "r"}), ErrRoomNameConflict)
}

func TestJoinAfterStartSpectates(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, b := fakeClient("a"), fakeClient("b")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r"}))
	a.room.start(a, nil)
	assert.Equal(t, "SETUP", decodeState(t, nextOf(t, a, outGameStarted)).Phase)

	require.NoError(t, gs.join(b, roomRequest{RoomName: "r"}))
	assert.Equal(t, outMessage, next(t, b).Type)
	assert.Equal(t, []string{"b"}, decodeState(t, nextOf(t, b, outUpdateState)).Spectators)
}

func TestStartRejectsBadBoard(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, spectator := fakeClient("a"), fakeClient("s")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"humanLimit":1}`)}))
	require.NoError(t, gs.join(spectator, roomRequest{RoomName: "r"}))
	drain(a)

	a.room.start(a, json.RawMessage(`{"hexes":"bad"}`))
	assert.Equal(t, outError, next(t, a).Type)

	// only seated players may start
	spectator.room.start(spectator, nil)
	a.room.withGame(func(g *game.Game) { assert.Equal(t, game.PhaseWaiting, g.Phase()) })
}

func TestLeaveTearsDownEmptyRoom(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, b := fakeClient("a"), fakeClient("b")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"botCount":1}`)}))
	require.NoError(t, gs.join(b, roomRequest{RoomName: "r"}))
	room := a.room
	room.start(a, nil)

	gs.leave(b)
	_, err := gs.GetRoom("r")
	require.NoError(t, err)
	room.withGame(func(g *game.Game) { assert.Equal(t, 1, g.HumanCount()) })

	// only a bot is left once the last human goes
	gs.leave(a)
	_, err = gs.GetRoom("r")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	room.mu.Lock()
	assert.True(t, room.closed)
	room.mu.Unlock()

	// the name is free again
	_, err = gs.CreateRoom("r", game.Settings{})
	assert.NoError(t, err)
}

func TestReplacedConnectionDoesNotLeave(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	first, second := fakeClient("a"), fakeClient("a")
	require.NoError(t, gs.createAndJoin(first, roomRequest{RoomName: "r"}))
	require.NoError(t, gs.join(second, roomRequest{RoomName: "r"}))

	gs.leave(first)
	room, err := gs.GetRoom("r")
	require.NoError(t, err)
	room.withGame(func(g *game.Game) { assert.NotNil(t, g.Player("a")) })
}

func TestChatIsBounded(t *testing.T) {
	opts := testOptions()
	opts.ChatSize = 3
	gs := newTestServer(opts, nil)
	a, s := fakeClient("a"), fakeClient("s")
	require.NoError(t, gs.createAndJoin(a, roomRequest{Name: "Ann", RoomName: "r", Settings: json.RawMessage(`{"humanLimit":1}`)}))
	require.NoError(t, gs.join(s, roomRequest{RoomName: "r"}))
	drain(a)

	for i := 0; i < 5; i++ {
		a.room.chat(a, fmt.Sprintf("m%d", i))
	}
	s.room.chat(s, "  ")
	s.room.chat(s, "hello")

	var entry ChatEntry
	m := nextOf(t, a, outChatUpdate)
	require.NoError(t, json.Unmarshal(m.Payload, &entry))
	assert.Equal(t, ChatEntry{Name: "Ann", Text: "m0", Color: "red"}, entry)

	room := a.room
	room.mu.Lock()
	defer room.mu.Unlock()
	require.Len(t, room.chats, 3)
	assert.Equal(t, "m4", room.chats[1].Text)
	assert.Equal(t, ChatEntry{Name: spectatorName, Text: "hello", Color: spectatorColor}, room.chats[2])
}

func TestActRejectsSilently(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, b := fakeClient("a"), fakeClient("b")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r"}))
	require.NoError(t, gs.join(b, roomRequest{RoomName: "r"}))
	a.room.start(a, nil)
	drain(a)
	drain(b)

	// b is not the first to place
	b.room.act("b", game.BuildSettlement{Vertex: 0})
	select {
	case data := <-b.send:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(50 * time.Millisecond):
	}

	a.room.act("a", game.BuildSettlement{Vertex: 0})
	s := decodeState(t, nextOf(t, b, outUpdateState))
	assert.Equal(t, "SETUP", s.Phase)
	assert.Equal(t, outPlaySound, next(t, b).Type)
}

func TestTurnTimerForcesProgress(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = 20 * time.Millisecond
	gs := newTestServer(opts, nil)
	a, b := fakeClient("a"), fakeClient("b")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r"}))
	require.NoError(t, gs.join(b, roomRequest{RoomName: "r"}))
	a.room.start(a, nil)

	s := decodeState(t, nextOf(t, a, outGameStarted))
	assert.Greater(t, s.Timer, 0)

	room := a.room
	// setup completes with nobody acting
	require.Eventually(t, func() bool {
		phase := game.PhaseSetup
		room.withGame(func(g *game.Game) { phase = g.Phase() })
		return phase == game.PhaseMain
	}, 5*time.Second, 10*time.Millisecond)
	room.withGame(func(g *game.Game) {
		for _, p := range g.Players() {
			assert.Equal(t, 2, p.VictoryPoints)
		}
	})
}

func TestBotsDriveTheirTurns(t *testing.T) {
	opts := testOptions()
	opts.BotDelay = time.Millisecond
	opts.BotChainDelay = time.Millisecond
	gs := newTestServer(opts, nil)
	a := fakeClient("a")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"botCount":2}`)}))
	room := a.room
	room.start(a, nil)

	// the human places first, then both bots place twice before it is the
	// human's turn again
	road := -1
	room.withGame(func(g *game.Game) {
		for _, e := range g.Board().Edges {
			if e.V1 == 0 || e.V2 == 0 {
				road = e.ID
				break
			}
		}
	})
	require.GreaterOrEqual(t, road, 0)
	room.act("a", game.BuildSettlement{Vertex: 0})
	room.act("a", game.BuildRoad{Edge: road})

	require.Eventually(t, func() bool {
		cur := ""
		room.withGame(func(g *game.Game) {
			if p := g.Current(); p != nil {
				cur = p.ID
			}
		})
		return cur == "a"
	}, 5*time.Second, 5*time.Millisecond)
	room.withGame(func(g *game.Game) {
		for _, p := range g.Players()[1:] {
			assert.True(t, p.IsBot)
			assert.Equal(t, 2, p.VictoryPoints, p.Name)
		}
	})
}

type recordingArchive struct {
	records chan archive.Record
}

func (r recordingArchive) Write(rec archive.Record) error {
	r.records <- rec
	return nil
}

func TestGameOverIsArchived(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = 5 * time.Millisecond
	opts.BotDelay = time.Millisecond
	opts.BotChainDelay = time.Millisecond
	arch := recordingArchive{records: make(chan archive.Record, 1)}
	gs := newTestServer(opts, arch)
	a := fakeClient("a")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"botCount":2,"victoryPoints":3}`)}))
	a.room.start(a, nil)

	select {
	case rec := <-arch.records:
		assert.Equal(t, "r", rec.RoomID)
		assert.NotEmpty(t, rec.Winner)
		assert.Len(t, rec.Players, 3)
	case <-time.After(30 * time.Second):
		t.Fatal("game never finished")
	}
	a.room.withGame(func(g *game.Game) { assert.Equal(t, game.PhaseGameOver, g.Phase()) })
	a.room.mu.Lock()
	assert.Nil(t, a.room.turnTimer)
	assert.Nil(t, a.room.botTimer)
	a.room.mu.Unlock()
}

func TestResetStartsOver(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a := fakeClient("a")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"botCount":1}`)}))
	a.room.start(a, nil)
	drain(a)

	a.room.reset(a)
	s := decodeState(t, nextOf(t, a, outGameStarted))
	assert.Equal(t, "WAITING", s.Phase)
	require.Len(t, s.Players, 1)
	assert.Equal(t, 0, s.Timer)
}

func TestIdleRoomsExpire(t *testing.T) {
	opts := testOptions()
	opts.IdleTimeout = 100 * time.Millisecond
	gs := newTestServer(opts, nil)
	defer gs.Close()

	_, err := gs.CreateRoom("a", game.Settings{})
	require.NoError(t, err)
	_, err = gs.CreateRoom("b", game.Settings{})
	require.NoError(t, err)
	c := fakeClient("c")
	require.NoError(t, gs.createAndJoin(c, roomRequest{RoomName: "c"}))

	require.Eventually(t, func() bool { return len(gs.ListRooms()) == 1 }, 5*time.Second, 10*time.Millisecond)
	infos := gs.ListRooms()
	assert.Equal(t, "c", infos[0].ID)
	assert.Equal(t, 1, infos[0].Humans)

	// the expired names can be used again
	_, err = gs.CreateRoom("a", game.Settings{})
	assert.NoError(t, err)
}

func TestRoomIDIsTruncatedOnRunes(t *testing.T) {
	id := normalizeRoomID(strings.Repeat("é", maxRoomIDLen+5))
	assert.True(t, utf8.ValidString(id))
	assert.Equal(t, maxRoomIDLen, utf8.RuneCountInString(id))
	assert.Equal(t, DefaultRoomID, normalizeRoomID("   "))
}

func TestSpectatorTakesFreedSeat(t *testing.T) {
	gs := newTestServer(testOptions(), nil)
	a, b, c := fakeClient("a"), fakeClient("b"), fakeClient("c")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r", Settings: json.RawMessage(`{"humanLimit":1}`)}))
	require.NoError(t, gs.join(b, roomRequest{Name: "Bo", RoomName: "r"}))
	require.NoError(t, gs.join(c, roomRequest{RoomName: "r"}))
	room := a.room

	gs.leave(a)
	room.withGame(func(g *game.Game) { assert.Equal(t, 0, g.HumanCount()) })

	drain(b)
	require.NoError(t, gs.join(b, roomRequest{Name: "Bo", RoomName: "r"}))
	s := decodeState(t, nextOf(t, b, outUpdateState))
	require.Len(t, s.Players, 1)
	assert.Equal(t, "b", s.Players[0].ID)
	assert.Equal(t, "Bo", s.Players[0].Name)
	assert.Equal(t, []string{"c"}, s.Spectators)

	// the seat is taken again, so c keeps watching
	require.NoError(t, gs.join(c, roomRequest{RoomName: "r"}))
	room.withGame(func(g *game.Game) {
		assert.Nil(t, g.Player("c"))
		assert.Equal(t, 1, g.HumanCount())
	})

	room.start(b, nil)
	room.withGame(func(g *game.Game) { assert.Equal(t, game.PhaseSetup, g.Phase()) })
}

func TestEndedTurnIgnoresStaleTimer(t *testing.T) {
	opts := testOptions()
	opts.TurnTimeout = time.Second
	gs := newTestServer(opts, nil)
	a, b := fakeClient("a"), fakeClient("b")
	require.NoError(t, gs.createAndJoin(a, roomRequest{RoomName: "r"}))
	require.NoError(t, gs.join(b, roomRequest{RoomName: "r"}))
	room := a.room
	room.start(a, nil)
	defer room.close()

	var stale, road int
	room.withGame(func(g *game.Game) {
		stale = g.TurnSerial()
		for _, e := range g.Board().Edges {
			if e.V1 == 0 || e.V2 == 0 {
				road = e.ID
				break
			}
		}
	})

	// a finishes its placement shortly before its timer runs out
	time.Sleep(600 * time.Millisecond)
	room.act("a", game.BuildSettlement{Vertex: 0})
	room.act("a", game.BuildRoad{Edge: road})

	current := func() string {
		id := ""
		room.withGame(func(g *game.Game) {
			if p := g.Current(); p != nil {
				id = p.ID
			}
		})
		return id
	}
	require.Equal(t, "b", current())

	// past a's original deadline, inside b's
	time.Sleep(600 * time.Millisecond)
	room.expire(stale)
	assert.Equal(t, "b", current())
	room.withGame(func(g *game.Game) {
		assert.Equal(t, 0, g.Player("b").VictoryPoints)
		assert.NotEqual(t, stale, g.TurnSerial())
	})
	room.mu.Lock()
	assert.NotNil(t, room.turnTimer)
	assert.NotEqual(t, stale, room.timerSerial)
	room.mu.Unlock()
}

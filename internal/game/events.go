package game

type EventKind int

const (
	// EventSound is a cue broadcast to the whole room.
	EventSound EventKind = iota
	// EventTradeRequested goes to the target of a peer offer.
	EventTradeRequested
	// EventNotice is an informational message for one participant.
	EventNotice
)

type Sound string

const (
	SoundStart      Sound = "start"
	SoundDice       Sound = "dice"
	SoundRobber     Sound = "robber"
	SoundTurnChange Sound = "turnChange"
	SoundBuild      Sound = "build"
	SoundCard       Sound = "card"
)

// Event is a side effect the room supervisor must deliver after a
// successful mutation.
type Event struct {
	Kind  EventKind
	To    string // player id; empty means everyone
	Sound Sound
	Text  string
	Trade *TradeRequest
}

type TradeRequest struct {
	SenderName string   `json:"senderName"`
	Give       Resource `json:"give"`
	Receive    Resource `json:"receive"`
}

func (g *Game) emit(e Event) { g.events = append(g.events, e) }

// DrainEvents returns and clears the pending side effects.
func (g *Game) DrainEvents() []Event {
	out := g.events
	g.events = nil
	return out
}

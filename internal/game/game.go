package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Game is the complete state of one room's match.
type Game struct {
	settings Settings

	phase     Phase
	subPhase  SubPhase
	players   []*Player
	board     *Board
	bank      Hand
	deck      []CardKind
	turnIndex int

	setupOrder     []int
	setupStep      int
	lastSettlement int

	diceResult   int
	robberHex    int
	burstPlayers []string
	burstDemand  map[string]int
	pendingTrade *PendingTrade
	freeRoads    int

	largestArmy Award
	longestRoad Award
	winner      string

	hiddenNumbers []int
	logs          []string
	logSize       int
	stats         Stats

	// turnSerial changes whenever the acting participant changes, so a
	// scheduled timeout can tell whether it is stale.
	turnSerial int

	events []Event
	rng    *rand.Rand
}

type Option func(*Game)

// WithRand makes every random decision come from rng.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithLogSize bounds the activity log.
func WithLogSize(n int) Option {
	return func(g *Game) {
		if n > 0 {
			g.logSize = n
		}
	}
}

func New(settings Settings, opts ...Option) *Game {
	g := &Game{logSize: defaultLogSize}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g.reset(settings.Normalize(DefaultSettings()))
	return g
}

func (g *Game) reset(settings Settings) {
	g.settings = settings
	g.phase = PhaseWaiting
	g.subPhase = SubPhaseNone
	g.players = nil
	g.board = &Board{Hexes: []Hex{}, Vertices: []Vertex{}, Edges: []Edge{}, Ports: []Port{}}
	_ = g.board.index()
	g.bank = NewHand()
	for _, r := range Resources {
		g.bank[r] = bankStartPerResource
	}
	g.deck = newDeck(g.rng)
	g.turnIndex = 0
	g.setupOrder = nil
	g.setupStep = 0
	g.lastSettlement = -1
	g.diceResult = 0
	g.robberHex = -1
	g.burstPlayers = []string{}
	g.burstDemand = map[string]int{}
	g.pendingTrade = nil
	g.freeRoads = 0
	g.largestArmy = Award{}
	g.longestRoad = Award{}
	g.winner = ""
	g.hiddenNumbers = nil
	g.logs = []string{}
	g.stats = Stats{ResourceCollected: map[string]int{}}
	g.turnSerial++
}

// Reset returns the room to a fresh lobby with the same settings. Seated
// humans stay seated with empty hands; bots are dropped and re-added at
// the next start.
func (g *Game) Reset() {
	var humans []*Player
	for _, p := range g.players {
		if !p.IsBot {
			humans = append(humans, newPlayer(p.ID, p.Name, p.Color, false))
		}
	}
	g.reset(g.settings)
	for _, p := range humans {
		g.players = append(g.players, p)
		g.stats.ResourceCollected[p.ID] = 0
	}
}

func (g *Game) Settings() Settings { return g.settings }
func (g *Game) Phase() Phase       { return g.phase }
func (g *Game) SubPhase() SubPhase { return g.subPhase }
func (g *Game) Board() *Board      { return g.board }
func (g *Game) Winner() string     { return g.winner }
func (g *Game) TurnSerial() int    { return g.turnSerial }
func (g *Game) DiceResult() int    { return g.diceResult }
func (g *Game) RobberHex() int     { return g.robberHex }
func (g *Game) Players() []*Player { return g.players }
func (g *Game) Bank() Hand         { return g.bank }

// Started reports whether start-game has run.
func (g *Game) Started() bool { return g.phase != PhaseWaiting }

// Player returns the seated player with id, or nil.
func (g *Game) Player(id string) *Player {
	_, p := g.playerIndex(id)
	return p
}

func (g *Game) playerIndex(id string) (int, *Player) {
	for i, p := range g.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (g *Game) playerByColor(c Color) *Player {
	for _, p := range g.players {
		if p.Color == c {
			return p
		}
	}
	return nil
}

// Current returns the player whose turn it is, or nil.
func (g *Game) Current() *Player {
	if g.turnIndex < 0 || g.turnIndex >= len(g.players) {
		return nil
	}
	return g.players[g.turnIndex]
}

// HumanCount returns how many non-bot players are seated.
func (g *Game) HumanCount() int {
	n := 0
	for _, p := range g.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

func (g *Game) freeColor(fallback Color) Color {
	used := make(map[Color]bool, len(g.players))
	for _, p := range g.players {
		used[p.Color] = true
	}
	for _, c := range playerColors {
		if !used[c] {
			return c
		}
	}
	return fallback
}

// AddPlayer seats a human in the lobby.
func (g *Game) AddPlayer(id, name string) (*Player, error) {
	if g.phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if g.HumanCount() >= g.settings.HumanLimit {
		return nil, ErrRoomFull
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", len(g.players)+1)
	}
	p := newPlayer(id, name, g.freeColor("black"), false)
	g.players = append(g.players, p)
	g.stats.ResourceCollected[id] = 0
	g.addLog("%s joined", p.Name)
	return p, nil
}

// Rename updates the display name of a seated player.
func (g *Game) Rename(id, name string) {
	if p := g.Player(id); p != nil && name != "" {
		p.Name = name
	}
}

// Start seats the bots, installs the board (generating one when b is nil)
// and enters the setup snake.
func (g *Game) Start(b *Board, botID func(i int) string) error {
	if g.phase != PhaseWaiting {
		return ErrGameStarted
	}
	if len(g.players) == 0 {
		return ErrNoPlayers
	}
	if b == nil {
		b = Generate(g.settings.MapSize, g.settings.MapType, g.rng)
	}
	g.board = b
	g.robberHex = b.firstDesert()

	if g.settings.HideNumbers {
		g.hiddenNumbers = make([]int, len(b.Hexes))
		for i := range b.Hexes {
			g.hiddenNumbers[i] = b.Hexes[i].Number
			if b.Hexes[i].Resource != Desert {
				b.Hexes[i].Number = 0
			}
		}
	}

	for i := 0; i < g.settings.BotCount && len(g.players) < len(playerColors); i++ {
		id := botID(i)
		bot := newPlayer(id, fmt.Sprintf("Bot %d", i+1), g.freeColor("gray"), true)
		g.players = append(g.players, bot)
		g.stats.ResourceCollected[id] = 0
	}

	n := len(g.players)
	g.setupOrder = make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		g.setupOrder = append(g.setupOrder, i)
	}
	for i := n - 1; i >= 0; i-- {
		g.setupOrder = append(g.setupOrder, i)
	}
	g.setupStep = 0
	g.turnIndex = g.setupOrder[0]
	g.phase = PhaseSetup
	g.subPhase = SubPhaseSettlement
	g.lastSettlement = -1
	g.turnSerial++
	g.addLog("Game started")
	g.emit(Event{Kind: EventSound, Sound: SoundStart})
	return nil
}

// Apply validates and executes one action on behalf of playerID. A non-nil
// error means nothing changed.
func (g *Game) Apply(playerID string, a Action) error {
	switch g.phase {
	case PhaseWaiting:
		return ErrGameNotStarted
	case PhaseGameOver:
		return ErrGameOver
	}
	p := g.Player(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	var err error
	switch a := a.(type) {
	case RollDice:
		err = g.rollDice(p)
	case BuildSettlement:
		err = g.buildSettlement(p, a.Vertex)
	case BuildRoad:
		err = g.buildRoad(p, a.Edge)
	case BuildCity:
		err = g.buildCity(p, a.Vertex)
	case BuyCard:
		err = g.buyCard(p)
	case PlayCard:
		err = g.playCard(p, a.Card, a.Resource)
	case BankTrade:
		err = g.bankTrade(p, a.Give, a.Receive)
	case OfferTrade:
		err = g.offerTrade(p, a.Target, a.Give, a.Receive)
	case AnswerTrade:
		err = g.answerTrade(p, a.Accepted)
	case MoveRobber:
		err = g.moveRobber(p, a.Hex)
	case Discard:
		err = g.discard(p, a.Resources)
	case EndTurn:
		err = g.endTurn(p)
	default:
		err = fmt.Errorf("%w: unsupported action %T", ErrIllegalAction, a)
	}
	if err != nil {
		return err
	}
	g.recomputePoints()
	return nil
}

// requireTurn checks that p is the acting player in one of the phases.
func (g *Game) requireTurn(p *Player, phases ...Phase) error {
	ok := false
	for _, ph := range phases {
		if g.phase == ph {
			ok = true
			break
		}
	}
	if !ok {
		return ErrWrongPhase
	}
	if g.Current() != p {
		return ErrNotYourTurn
	}
	return nil
}

func (g *Game) endTurn(p *Player) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	for i := range p.Cards {
		p.Cards[i].CanUse = true
	}
	g.freeRoads = 0
	if g.pendingTrade != nil && g.pendingTrade.SenderID == p.ID {
		g.pendingTrade = nil
	}
	g.turnIndex = (g.turnIndex + 1) % len(g.players)
	g.diceResult = 0
	g.subPhase = SubPhaseMainAction
	g.turnSerial++
	g.addLog("Next: %s", g.Current().Name)
	g.emit(Event{Kind: EventSound, Sound: SoundTurnChange})
	return nil
}

// advanceSetup moves the snake to its next step after a road is placed.
func (g *Game) advanceSetup() {
	g.setupStep++
	g.lastSettlement = -1
	g.turnSerial++
	if g.setupStep >= len(g.setupOrder) {
		g.finishSetup()
		return
	}
	g.turnIndex = g.setupOrder[g.setupStep]
	g.subPhase = SubPhaseSettlement
	g.emit(Event{Kind: EventSound, Sound: SoundTurnChange})
}

func (g *Game) finishSetup() {
	if g.hiddenNumbers != nil {
		for i := range g.board.Hexes {
			if i < len(g.hiddenNumbers) {
				g.board.Hexes[i].Number = g.hiddenNumbers[i]
			}
		}
		g.hiddenNumbers = nil
	}
	g.phase = PhaseMain
	g.subPhase = SubPhaseMainAction
	g.turnIndex = 0
	g.diceResult = 0
	g.setupOrder = nil
	g.setupStep = 0
	g.addLog("Setup complete, %s starts", g.Current().Name)
	g.emit(Event{Kind: EventSound, Sound: SoundTurnChange})
}

// recomputePoints derives every player's total from the board and hands,
// and ends the game the first time somebody reaches the target.
func (g *Game) recomputePoints() {
	for _, p := range g.players {
		pts := g.board.countBuildings(p.Color, BuildingSettlement) +
			2*g.board.countBuildings(p.Color, BuildingCity)
		for _, c := range p.Cards {
			if c.Kind == CardVictoryPoint {
				pts++
			}
		}
		if g.largestArmy.PlayerID == p.ID {
			pts += bonusPoints
		}
		if g.longestRoad.PlayerID == p.ID {
			pts += bonusPoints
		}
		p.VictoryPoints = pts
	}
	if g.winner != "" || g.phase == PhaseWaiting || g.phase == PhaseGameOver {
		return
	}
	// the acting player wins ties
	candidates := make([]*Player, 0, len(g.players))
	if cur := g.Current(); cur != nil {
		candidates = append(candidates, cur)
	}
	candidates = append(candidates, g.players...)
	for _, p := range candidates {
		if p.VictoryPoints >= g.settings.VictoryPoints {
			g.winner = p.ID
			g.phase = PhaseGameOver
			g.subPhase = SubPhaseNone
			g.pendingTrade = nil
			g.turnSerial++
			g.addLog("Winner: %s", p.Name)
			return
		}
	}
}

// RemovePlayer drops a departed participant and repairs turn bookkeeping
// so the next turn still resolves to a seated player.
func (g *Game) RemovePlayer(id string) {
	idx, p := g.playerIndex(id)
	if p == nil {
		return
	}
	wasCurrent := idx == g.turnIndex
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	g.addLog("%s left", p.Name)

	g.burstPlayers = removeString(g.burstPlayers, id)
	delete(g.burstDemand, id)
	if t := g.pendingTrade; t != nil && (t.SenderID == id || t.TargetID == id) {
		g.pendingTrade = nil
	}
	if g.largestArmy.PlayerID == id {
		g.largestArmy = Award{}
	}
	if g.longestRoad.PlayerID == id {
		g.longestRoad = Award{}
	}

	if len(g.players) == 0 {
		g.turnIndex = 0
		if g.phase != PhaseGameOver {
			g.phase = PhaseWaiting
			g.subPhase = SubPhaseNone
		}
		g.turnSerial++
		return
	}

	switch g.phase {
	case PhaseWaiting, PhaseGameOver:
		if g.turnIndex >= len(g.players) {
			g.turnIndex = 0
		}
		return
	case PhaseSetup:
		g.removeFromSetup(idx, wasCurrent)
	default:
		if idx < g.turnIndex {
			g.turnIndex--
		}
		g.turnIndex %= len(g.players)
		if wasCurrent {
			g.diceResult = 0
			g.freeRoads = 0
			if g.phase == PhaseRobber {
				g.phase = PhaseMain
			}
			g.subPhase = SubPhaseMainAction
			g.turnSerial++
		}
		if g.phase == PhaseBurst && len(g.burstPlayers) == 0 {
			g.phase = PhaseRobber
		}
	}
	g.updateLongestRoad()
	g.recomputePoints()
}

func (g *Game) removeFromSetup(idx int, wasCurrent bool) {
	order := make([]int, 0, len(g.setupOrder))
	step := g.setupStep
	for i, o := range g.setupOrder {
		if o == idx {
			if i < g.setupStep {
				step--
			}
			continue
		}
		if o > idx {
			o--
		}
		order = append(order, o)
	}
	g.setupOrder = order
	g.setupStep = step
	if wasCurrent {
		g.subPhase = SubPhaseSettlement
		g.lastSettlement = -1
		g.turnSerial++
	}
	if g.setupStep >= len(g.setupOrder) {
		g.finishSetup()
		return
	}
	g.turnIndex = g.setupOrder[g.setupStep]
}

func (g *Game) addLog(format string, args ...any) {
	g.logs = append(g.logs, fmt.Sprintf(format, args...))
	if len(g.logs) > g.logSize {
		g.logs = g.logs[len(g.logs)-g.logSize:]
	}
}

// Logs returns the bounded activity log, oldest first.
func (g *Game) Logs() []string { return g.logs }

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

package game

// Snapshot is the client-visible state of a game. It shares memory with the
// Game it came from and must be serialised before the next mutation.
type Snapshot struct {
	Players      []*Player      `json:"players"`
	Board        *Board         `json:"board"`
	Bank         Hand           `json:"bank"`
	Phase        Phase          `json:"phase"`
	SubPhase     SubPhase       `json:"subPhase"`
	TurnIndex    int            `json:"turnIndex"`
	CurrentID    string         `json:"currentPlayerId,omitempty"`
	DiceResult   int            `json:"diceResult"`
	RobberHex    int            `json:"robberHexId"`
	BurstPlayers []string       `json:"burstPlayers"`
	BurstDemand  map[string]int `json:"burstDemand"`
	PendingTrade *PendingTrade  `json:"pendingTrade"`
	FreeRoads    int            `json:"freeRoads"`
	DeckSize     int            `json:"deckSize"`
	LargestArmy  Award          `json:"largestArmy"`
	LongestRoad  Award          `json:"longestRoad"`
	Winner       string         `json:"winner,omitempty"`
	Logs         []string       `json:"logs"`
	Stats        Stats          `json:"stats"`
	Settings     Settings       `json:"settings"`
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Players:      g.players,
		Board:        g.board,
		Bank:         g.bank,
		Phase:        g.phase,
		SubPhase:     g.subPhase,
		TurnIndex:    g.turnIndex,
		DiceResult:   g.diceResult,
		RobberHex:    g.robberHex,
		BurstPlayers: g.burstPlayers,
		BurstDemand:  g.burstDemand,
		PendingTrade: g.pendingTrade,
		FreeRoads:    g.freeRoads,
		DeckSize:     len(g.deck),
		LargestArmy:  g.largestArmy,
		LongestRoad:  g.longestRoad,
		Winner:       g.winner,
		Logs:         g.logs,
		Stats:        g.stats,
		Settings:     g.settings,
	}
	if s.Players == nil {
		s.Players = []*Player{}
	}
	if cur := g.Current(); cur != nil {
		s.CurrentID = cur.ID
	}
	return s
}

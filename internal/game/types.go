// Package game implements the authoritative rules engine for one room:
// board generation, the turn/phase state machine, the resource ledger,
// development cards, the robber and the bot driver.
//
// A Game is not safe for concurrent use. The room supervisor serialises
// every call.
package game

// Resource is one of the five producing kinds, or Desert for hexes.
type Resource string

const (
	Forest   Resource = "forest"
	Hill     Resource = "hill"
	Mountain Resource = "mountain"
	Field    Resource = "field"
	Pasture  Resource = "pasture"
	Desert   Resource = "desert"

	// AnyResource marks a generic 3:1 port.
	AnyResource Resource = "any"
)

// Resources lists the producing kinds in a fixed order.
var Resources = [...]Resource{Forest, Hill, Mountain, Field, Pasture}

// Valid reports whether r is one of the five producing kinds.
func (r Resource) Valid() bool {
	switch r {
	case Forest, Hill, Mountain, Field, Pasture:
		return true
	}
	return false
}

// Hand holds resource counts keyed by kind. It is used for player
// inventories, the bank, costs and discard requests alike.
type Hand map[Resource]int

func NewHand() Hand {
	h := make(Hand, len(Resources))
	for _, r := range Resources {
		h[r] = 0
	}
	return h
}

func (h Hand) Total() int {
	n := 0
	for _, r := range Resources {
		n += h[r]
	}
	return n
}

// Covers reports whether h holds at least cost of every kind.
func (h Hand) Covers(cost Hand) bool {
	for r, n := range cost {
		if h[r] < n {
			return false
		}
	}
	return true
}

func (h Hand) Clone() Hand {
	c := make(Hand, len(h))
	for r, n := range h {
		c[r] = n
	}
	return c
}

var (
	CostRoad       = Hand{Forest: 1, Hill: 1}
	CostSettlement = Hand{Forest: 1, Hill: 1, Field: 1, Pasture: 1}
	CostCity       = Hand{Field: 2, Mountain: 3}
	CostCard       = Hand{Pasture: 1, Field: 1, Mountain: 1}
)

const (
	bankStartPerResource = 19

	maxSettlements = 5
	maxCities      = 4
	maxRoads       = 15

	burstThreshold     = 8
	largestArmyMinimum = 3
	longestRoadMinimum = 5
	bonusPoints        = 3

	defaultLogSize = 15
)

type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhaseSetup    Phase = "SETUP"
	PhaseMain     Phase = "MAIN"
	PhaseRobber   Phase = "ROBBER"
	PhaseBurst    Phase = "BURST"
	PhaseGameOver Phase = "GAME_OVER"
)

type SubPhase string

const (
	SubPhaseNone       SubPhase = ""
	SubPhaseSettlement SubPhase = "SETTLEMENT"
	SubPhaseRoad       SubPhase = "ROAD"
	SubPhaseMainAction SubPhase = "MAIN_ACTION"
)

// Color is a player's ownership marker on vertices and edges.
type Color string

const NoColor Color = ""

var playerColors = [...]Color{"red", "blue", "orange", "white", "green", "brown"}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

type MapSize string

const (
	MapNormal   MapSize = "normal"
	MapExtended MapSize = "extended"
)

type MapType string

const (
	MapStandard MapType = "standard"
	MapRandom   MapType = "random"
)

// Settings is the per-room configuration chosen at creation time.
type Settings struct {
	HumanLimit    int        `json:"humanLimit" yaml:"human_limit"`
	BotCount      int        `json:"botCount" yaml:"bot_count"`
	BotDifficulty Difficulty `json:"botDifficulty" yaml:"bot_difficulty"`
	MapType       MapType    `json:"mapType" yaml:"map_type"`
	MapSize       MapSize    `json:"mapSize" yaml:"map_size"`
	VictoryPoints int        `json:"victoryPoints" yaml:"victory_points"`
	BurstEnabled  bool       `json:"burstEnabled" yaml:"burst_enabled"`
	HideNumbers   bool       `json:"hideNumbers" yaml:"hide_numbers"`
}

func DefaultSettings() Settings {
	return Settings{
		HumanLimit:    4,
		BotCount:      0,
		BotDifficulty: DifficultyNormal,
		MapType:       MapStandard,
		MapSize:       MapNormal,
		VictoryPoints: 10,
		BurstEnabled:  true,
	}
}

// Normalize replaces out-of-range values with the ones from def.
func (s Settings) Normalize(def Settings) Settings {
	if s.HumanLimit < 1 || s.HumanLimit > len(playerColors) {
		s.HumanLimit = def.HumanLimit
	}
	if s.BotCount < 0 || s.BotCount > len(playerColors) {
		s.BotCount = def.BotCount
	}
	switch s.BotDifficulty {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
	default:
		s.BotDifficulty = def.BotDifficulty
	}
	switch s.MapType {
	case MapStandard, MapRandom:
	default:
		s.MapType = def.MapType
	}
	switch s.MapSize {
	case MapNormal, MapExtended:
	default:
		s.MapSize = def.MapSize
	}
	if s.VictoryPoints < 3 || s.VictoryPoints > 30 {
		s.VictoryPoints = def.VictoryPoints
	}
	return s
}

type CardKind string

const (
	CardKnight       CardKind = "knight"
	CardVictoryPoint CardKind = "victory"
	CardRoadBuilding CardKind = "road"
	CardYearOfPlenty CardKind = "plenty"
	CardMonopoly     CardKind = "monopoly"
)

// Card is one development card held in a player's hand.
type Card struct {
	Kind   CardKind `json:"type"`
	CanUse bool     `json:"canUse"`
}

type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Color         Color  `json:"color"`
	IsBot         bool   `json:"isBot"`
	Resources     Hand   `json:"resources"`
	Cards         []Card `json:"cards"`
	VictoryPoints int    `json:"victoryPoints"`
	RoadLength    int    `json:"roadLength"`
	ArmySize      int    `json:"armySize"`
}

func newPlayer(id, name string, color Color, bot bool) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Color:     color,
		IsBot:     bot,
		Resources: NewHand(),
		Cards:     []Card{},
	}
}

// PendingTrade is an outstanding one-for-one offer between two players.
type PendingTrade struct {
	SenderID string   `json:"senderId"`
	TargetID string   `json:"targetId"`
	Give     Resource `json:"give"`
	Receive  Resource `json:"receive"`
}

// Award tracks a bonus badge holder. PlayerID is empty while unclaimed.
type Award struct {
	PlayerID string `json:"playerId"`
	Size     int    `json:"size"`
}

type Stats struct {
	DiceHistory       [13]int        `json:"diceHistory"`
	ResourceCollected map[string]int `json:"resourceCollected"`
}

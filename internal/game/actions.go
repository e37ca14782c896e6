package game

// ActionKind names every in-game action a participant can send.
type ActionKind string

const (
	KindRollDice        ActionKind = "rollDice"
	KindBuildSettlement ActionKind = "buildSettlement"
	KindBuildRoad       ActionKind = "buildRoad"
	KindBuildCity       ActionKind = "buildCity"
	KindBuyCard         ActionKind = "buyCard"
	KindPlayCard        ActionKind = "playCard"
	KindBankTrade       ActionKind = "trade"
	KindOfferTrade      ActionKind = "offerTrade"
	KindAnswerTrade     ActionKind = "answerTrade"
	KindMoveRobber      ActionKind = "moveRobber"
	KindDiscard         ActionKind = "discardResources"
	KindEndTurn         ActionKind = "endTurn"
)

// Action is the closed set of in-game actions. Each variant carries its own
// payload.
type Action interface {
	Kind() ActionKind
}

type RollDice struct{}

type BuildSettlement struct {
	Vertex int `json:"vertexId"`
}

type BuildRoad struct {
	Edge int `json:"edgeId"`
}

type BuildCity struct {
	Vertex int `json:"vertexId"`
}

type BuyCard struct{}

// PlayCard plays the first usable card of the given kind. Resource selects
// the kind for year-of-plenty and monopoly; when empty a heuristic picks it.
type PlayCard struct {
	Card     CardKind `json:"type"`
	Resource Resource `json:"resource,omitempty"`
}

// BankTrade exchanges give for one unit of receive at the player's best rate.
type BankTrade struct {
	Give    Resource `json:"give"`
	Receive Resource `json:"receive"`
}

// OfferTrade proposes one give for one receive to another player.
type OfferTrade struct {
	Target  string   `json:"targetId"`
	Give    Resource `json:"give"`
	Receive Resource `json:"receive"`
}

type AnswerTrade struct {
	Accepted bool `json:"accepted"`
}

type MoveRobber struct {
	Hex int `json:"hexId"`
}

type Discard struct {
	Resources Hand `json:"resources"`
}

type EndTurn struct{}

func (RollDice) Kind() ActionKind        { return KindRollDice }
func (BuildSettlement) Kind() ActionKind { return KindBuildSettlement }
func (BuildRoad) Kind() ActionKind       { return KindBuildRoad }
func (BuildCity) Kind() ActionKind       { return KindBuildCity }
func (BuyCard) Kind() ActionKind         { return KindBuyCard }
func (PlayCard) Kind() ActionKind        { return KindPlayCard }
func (BankTrade) Kind() ActionKind       { return KindBankTrade }
func (OfferTrade) Kind() ActionKind      { return KindOfferTrade }
func (AnswerTrade) Kind() ActionKind     { return KindAnswerTrade }
func (MoveRobber) Kind() ActionKind      { return KindMoveRobber }
func (Discard) Kind() ActionKind         { return KindDiscard }
func (EndTurn) Kind() ActionKind         { return KindEndTurn }

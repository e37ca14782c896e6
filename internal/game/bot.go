package game

import "math/rand"

// BotTurn reports the bot that should act next, if any. During a burst the
// acting bot waits for humans to discard.
func (g *Game) BotTurn() (*Player, bool) {
	switch g.phase {
	case PhaseSetup, PhaseMain, PhaseRobber:
	default:
		return nil, false
	}
	p := g.Current()
	if p == nil || !p.IsBot {
		return nil, false
	}
	return p, true
}

// DecideFor returns the action a bot would take for p in the current
// state. It returns nil when p has nothing to do.
func (g *Game) DecideFor(p *Player) Action {
	if g.Current() != p {
		return nil
	}
	switch g.phase {
	case PhaseSetup:
		if g.subPhase == SubPhaseSettlement {
			if v, ok := g.randomSetupVertex(); ok {
				return BuildSettlement{Vertex: v}
			}
			return nil
		}
		if e, ok := g.randomSetupRoad(); ok {
			return BuildRoad{Edge: e}
		}
		return nil
	case PhaseRobber:
		if h, ok := g.bestRobberHex(p); ok {
			return MoveRobber{Hex: h}
		}
		return nil
	case PhaseMain:
		return g.mainLadder(p)
	}
	return nil
}

// mainLadder is the bot's fixed priority: roll, city, settlement, road,
// card, end turn.
func (g *Game) mainLadder(p *Player) Action {
	if g.diceResult == 0 {
		return RollDice{}
	}
	b := g.board
	if p.Resources.Covers(CostCity) && b.countBuildings(p.Color, BuildingCity) < maxCities {
		if v, ok := g.bestCitySite(p); ok {
			return BuildCity{Vertex: v}
		}
	}
	if p.Resources.Covers(CostSettlement) && b.countBuildings(p.Color, BuildingSettlement) < maxSettlements {
		if v, ok := g.bestSettlementSite(p); ok {
			return BuildSettlement{Vertex: v}
		}
	}
	if (g.freeRoads > 0 || p.Resources.Covers(CostRoad)) && b.countRoads(p.Color) < maxRoads {
		if e, ok := g.randomRoadSite(p); ok {
			return BuildRoad{Edge: e}
		}
	}
	if p.Resources.Covers(CostCard) && len(g.deck) > 0 {
		return BuyCard{}
	}
	return EndTurn{}
}

func (g *Game) randomSetupVertex() (int, bool) {
	var legal []int
	for v := range g.board.Vertices {
		if g.board.spacingOK(v) {
			legal = append(legal, v)
		}
	}
	return pick(legal, g.rng)
}

func (g *Game) randomSetupRoad() (int, bool) {
	if !g.board.validVertex(g.lastSettlement) {
		return 0, false
	}
	var legal []int
	for _, e := range g.board.vertexEdges[g.lastSettlement] {
		if g.board.Edges[e].Owner == NoColor {
			legal = append(legal, e)
		}
	}
	return pick(legal, g.rng)
}

func (g *Game) randomRoadSite(p *Player) (int, bool) {
	var legal []int
	for e, edge := range g.board.Edges {
		if edge.Owner == NoColor && g.board.roadConnects(e, p.Color) {
			legal = append(legal, e)
		}
	}
	return pick(legal, g.rng)
}

func (g *Game) bestSettlementSite(p *Player) (int, bool) {
	best, bestScore := -1, -1
	for v := range g.board.Vertices {
		if !g.board.spacingOK(v) || !g.board.touchesRoad(v, p.Color) {
			continue
		}
		if s := g.vertexPips(v); s > bestScore {
			best, bestScore = v, s
		}
	}
	return best, best >= 0
}

func (g *Game) bestCitySite(p *Player) (int, bool) {
	best, bestScore := -1, -1
	for v, vert := range g.board.Vertices {
		if vert.Owner != p.Color || vert.Type != BuildingSettlement {
			continue
		}
		if s := g.vertexPips(v); s > bestScore {
			best, bestScore = v, s
		}
	}
	return best, best >= 0
}

// bestRobberHex prefers the most productive hex without one of p's own
// buildings; ties are broken at random.
func (g *Game) bestRobberHex(p *Player) (int, bool) {
	var best []int
	bestScore := -1
	for _, h := range g.board.Hexes {
		if h.Resource == Desert || h.ID == g.robberHex {
			continue
		}
		score := pips(h.Number) * 2
		if !g.hexTouches(h.ID, p.Color) {
			score++
		}
		switch {
		case score > bestScore:
			best, bestScore = []int{h.ID}, score
		case score == bestScore:
			best = append(best, h.ID)
		}
	}
	return pick(best, g.rng)
}

func (g *Game) hexTouches(hex int, c Color) bool {
	for _, vi := range g.board.HexVertices(hex) {
		if g.board.Vertices[vi].Owner == c {
			return true
		}
	}
	return false
}

func (g *Game) vertexPips(v int) int {
	n := 0
	for _, hi := range g.board.vertexHexes[v] {
		n += pips(g.board.Hexes[hi].Number)
	}
	return n
}

// pips is the number of two-dice combinations that roll n.
func pips(n int) int {
	if n < 2 || n > 12 || n == 7 {
		return 0
	}
	if n < 7 {
		return n - 1
	}
	return 13 - n
}

func pick(xs []int, rng *rand.Rand) (int, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return xs[rng.Intn(len(xs))], true
}

// botAcceptsTrade decides whether bot gives one unit of give in a peer
// trade. Easy bots accept whenever they can pay, hard bots never part with
// their last unit, and everything else is a coin flip weighted by
// difficulty.
func botAcceptsTrade(bot *Player, give Resource, d Difficulty, rng *rand.Rand) bool {
	held := bot.Resources[give]
	switch d {
	case DifficultyEasy:
		return held > 0
	case DifficultyHard:
		if held <= 1 {
			return false
		}
		return rng.Float64() < 0.5
	default:
		if held < 1 {
			return false
		}
		return rng.Float64() < 0.7
	}
}

// Timeout resolves a stalled turn on the acting participant's behalf. It is
// a no-op when serial no longer matches, so a timer that fires after a
// manual end of turn does nothing. It reports whether state changed.
func (g *Game) Timeout(serial int) bool {
	if serial != g.turnSerial {
		return false
	}
	cur := g.Current()
	if cur == nil {
		return false
	}
	g.addLog("Time is up for %s", cur.Name)
	// bounded: setup needs two steps, burst, robber and end turn one each
	for i := 0; i < 6 && serial == g.turnSerial; i++ {
		switch g.phase {
		case PhaseBurst:
			for _, id := range append([]string(nil), g.burstPlayers...) {
				if p := g.Player(id); p != nil {
					g.discardRandom(p, g.burstDemand[id])
					g.addLog("%s discarded %d cards", p.Name, g.burstDemand[id])
				}
				g.finishDiscard(id)
			}
		case PhaseSetup, PhaseRobber, PhaseMain:
			var a Action = EndTurn{}
			if g.phase != PhaseMain {
				a = g.DecideFor(cur)
			}
			if a == nil || g.Apply(cur.ID, a) != nil {
				return true
			}
		default:
			return true
		}
	}
	return true
}

package game

func (g *Game) rollDice(p *Player) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	if g.diceResult != 0 {
		return ErrAlreadyRolled
	}
	g.diceResult = g.rng.Intn(6) + 1 + g.rng.Intn(6) + 1
	g.stats.DiceHistory[g.diceResult]++
	g.addLog("%s rolled %d", p.Name, g.diceResult)
	if g.diceResult == 7 {
		g.emit(Event{Kind: EventSound, Sound: SoundRobber})
		g.startBurst()
		return nil
	}
	g.emit(Event{Kind: EventSound, Sound: SoundDice})
	g.produce(g.diceResult)
	return nil
}

// startBurst opens the discard round for every player holding too many
// cards, or goes straight to the robber. Bots discard on the spot.
func (g *Game) startBurst() {
	g.burstPlayers = []string{}
	g.burstDemand = map[string]int{}
	if g.settings.BurstEnabled {
		for _, p := range g.players {
			total := p.Resources.Total()
			if total < burstThreshold {
				continue
			}
			demand := total / 2
			if p.IsBot {
				g.discardRandom(p, demand)
				g.addLog("%s discarded %d cards", p.Name, demand)
				continue
			}
			g.burstPlayers = append(g.burstPlayers, p.ID)
			g.burstDemand[p.ID] = demand
		}
	}
	if len(g.burstPlayers) > 0 {
		g.phase = PhaseBurst
		g.addLog("Burst: %d player(s) must discard", len(g.burstPlayers))
		return
	}
	g.phase = PhaseRobber
	g.addLog("%s must move the robber", g.Current().Name)
}

// DiscardDemand returns how many cards id still has to give up, or zero.
func (g *Game) DiscardDemand(id string) int { return g.burstDemand[id] }

func (g *Game) discard(p *Player, req Hand) error {
	if g.phase != PhaseBurst {
		return ErrWrongPhase
	}
	demand, ok := g.burstDemand[p.ID]
	if !ok {
		return ErrNotYourTurn
	}
	total := 0
	for r, n := range req {
		if !r.Valid() || n < 0 {
			return ErrBadDiscard
		}
		if p.Resources[r] < n {
			return ErrInsufficientResources
		}
		total += n
	}
	if total != demand {
		return ErrBadDiscard
	}
	for r, n := range req {
		p.Resources[r] -= n
		g.bank[r] += n
	}
	g.addLog("%s discarded %d cards", p.Name, total)
	g.finishDiscard(p.ID)
	return nil
}

func (g *Game) finishDiscard(id string) {
	g.burstPlayers = removeString(g.burstPlayers, id)
	delete(g.burstDemand, id)
	if len(g.burstPlayers) == 0 {
		g.phase = PhaseRobber
		g.addLog("%s must move the robber", g.Current().Name)
	}
}

// discardRandom returns n random cards from p to the bank.
func (g *Game) discardRandom(p *Player, n int) {
	for i := 0; i < n; i++ {
		r, ok := g.randomCard(p)
		if !ok {
			return
		}
		p.Resources[r]--
		g.bank[r]++
	}
}

// randomCard picks one of p's cards uniformly, so kinds are weighted by
// how many p holds.
func (g *Game) randomCard(p *Player) (Resource, bool) {
	total := p.Resources.Total()
	if total == 0 {
		return "", false
	}
	k := g.rng.Intn(total)
	for _, r := range Resources {
		if k < p.Resources[r] {
			return r, true
		}
		k -= p.Resources[r]
	}
	return "", false
}

func (g *Game) moveRobber(p *Player, hex int) error {
	if err := g.requireTurn(p, PhaseRobber); err != nil {
		return err
	}
	if !g.board.validHex(hex) || hex == g.robberHex || g.board.Hexes[hex].Resource == Desert {
		return ErrBadRobberTarget
	}
	g.robberHex = hex
	g.phase = PhaseMain
	g.subPhase = SubPhaseMainAction
	g.addLog("%s moved the robber", p.Name)
	g.steal(p, hex)
	return nil
}

// steal takes one random card from a random opponent with a building on
// hex who holds at least one card.
func (g *Game) steal(thief *Player, hex int) {
	var victims []*Player
	seen := map[string]bool{}
	for _, vi := range g.board.HexVertices(hex) {
		owner := g.board.Vertices[vi].Owner
		if owner == NoColor || owner == thief.Color {
			continue
		}
		victim := g.playerByColor(owner)
		if victim == nil || seen[victim.ID] || victim.Resources.Total() == 0 {
			continue
		}
		seen[victim.ID] = true
		victims = append(victims, victim)
	}
	if len(victims) == 0 {
		return
	}
	victim := victims[g.rng.Intn(len(victims))]
	r, ok := g.randomCard(victim)
	if !ok {
		return
	}
	victim.Resources[r]--
	thief.Resources[r]++
	g.addLog("%s stole from %s", thief.Name, victim.Name)
}

package game

const (
	baseTradeRate    = 4
	genericPortRate  = 3
	specificPortRate = 2
	cityProduction   = 2
	settlementYield  = 1
)

// spend moves cost from p to the bank, all kinds together or not at all.
func (g *Game) spend(p *Player, cost Hand) bool {
	if !p.Resources.Covers(cost) {
		return false
	}
	for r, n := range cost {
		p.Resources[r] -= n
		g.bank[r] += n
	}
	return true
}

// grant pays n units of r from the bank to p. It pays nothing if the bank
// is short.
func (g *Game) grant(p *Player, r Resource, n int) bool {
	if n <= 0 || g.bank[r] < n {
		return false
	}
	g.bank[r] -= n
	p.Resources[r] += n
	g.stats.ResourceCollected[p.ID] += n
	return true
}

// produce pays out every hex matching roll. A hex the bank cannot cover for
// a given building pays nothing for that building.
func (g *Game) produce(roll int) {
	for _, h := range g.board.Hexes {
		if h.Number != roll || h.ID == g.robberHex || h.Resource == Desert {
			continue
		}
		for _, vi := range g.board.HexVertices(h.ID) {
			v := g.board.Vertices[vi]
			if v.Owner == NoColor {
				continue
			}
			owner := g.playerByColor(v.Owner)
			if owner == nil {
				continue
			}
			amount := settlementYield
			if v.Type == BuildingCity {
				amount = cityProduction
			}
			g.grant(owner, h.Resource, amount)
		}
	}
}

// TradeRate returns the best bank rate p gets when giving r.
func (g *Game) TradeRate(p *Player, r Resource) int {
	rate := baseTradeRate
	for vi, v := range g.board.Vertices {
		if v.Owner != p.Color {
			continue
		}
		for _, pi := range g.board.vertexPorts[vi] {
			switch port := g.board.Ports[pi]; {
			case port.Type == r:
				return specificPortRate
			case port.Type == AnyResource && rate > genericPortRate:
				rate = genericPortRate
			}
		}
	}
	return rate
}

func (g *Game) bankTrade(p *Player, give, receive Resource) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	if !give.Valid() || !receive.Valid() || give == receive {
		return ErrBadResource
	}
	rate := g.TradeRate(p, give)
	if p.Resources[give] < rate {
		return ErrInsufficientResources
	}
	if g.bank[receive] < 1 {
		return ErrBankEmpty
	}
	p.Resources[give] -= rate
	g.bank[give] += rate
	g.bank[receive]--
	p.Resources[receive]++
	g.addLog("%s traded %d %s for 1 %s", p.Name, rate, give, receive)
	return nil
}

func (g *Game) offerTrade(p *Player, targetID string, give, receive Resource) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	if !give.Valid() || !receive.Valid() || give == receive {
		return ErrBadResource
	}
	target := g.Player(targetID)
	if target == nil || target == p {
		return ErrUnknownPlayer
	}
	if g.pendingTrade != nil {
		return ErrTradePending
	}
	if p.Resources[give] < 1 {
		return ErrInsufficientResources
	}
	if target.IsBot {
		if botAcceptsTrade(target, receive, g.settings.BotDifficulty, g.rng) {
			swapOne(p, target, give, receive)
			g.addLog("%s accepted a trade from %s", target.Name, p.Name)
		} else {
			g.addLog("%s declined a trade from %s", target.Name, p.Name)
			g.emit(Event{Kind: EventNotice, To: p.ID, Text: target.Name + " declined the trade"})
		}
		return nil
	}
	g.pendingTrade = &PendingTrade{SenderID: p.ID, TargetID: target.ID, Give: give, Receive: receive}
	g.emit(Event{
		Kind:  EventTradeRequested,
		To:    target.ID,
		Trade: &TradeRequest{SenderName: p.Name, Give: give, Receive: receive},
	})
	g.addLog("%s offered a trade to %s", p.Name, target.Name)
	return nil
}

func (g *Game) answerTrade(p *Player, accepted bool) error {
	t := g.pendingTrade
	if t == nil || t.TargetID != p.ID {
		return ErrNoPendingTrade
	}
	g.pendingTrade = nil
	sender := g.Player(t.SenderID)
	if !accepted || sender == nil {
		g.addLog("Trade declined")
		if sender != nil {
			g.emit(Event{Kind: EventNotice, To: sender.ID, Text: p.Name + " declined the trade"})
		}
		return nil
	}
	if sender.Resources[t.Give] < 1 || p.Resources[t.Receive] < 1 {
		g.addLog("Trade failed")
		return nil
	}
	swapOne(sender, p, t.Give, t.Receive)
	g.addLog("Trade completed")
	return nil
}

// swapOne moves one give from sender to target and one receive back.
func swapOne(sender, target *Player, give, receive Resource) {
	sender.Resources[give]--
	target.Resources[give]++
	target.Resources[receive]--
	sender.Resources[receive]++
}

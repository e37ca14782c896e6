package game

func (g *Game) buildSettlement(p *Player, v int) error {
	if err := g.requireTurn(p, PhaseSetup, PhaseMain); err != nil {
		return err
	}
	if g.phase == PhaseSetup && g.subPhase != SubPhaseSettlement {
		return ErrWrongPhase
	}
	b := g.board
	if !b.validVertex(v) {
		return ErrUnknownCell
	}
	if b.Vertices[v].Owner != NoColor {
		return ErrOccupied
	}
	if !b.spacingOK(v) {
		return ErrTooClose
	}

	if g.phase == PhaseSetup {
		b.Vertices[v].Owner = p.Color
		b.Vertices[v].Type = BuildingSettlement
		g.lastSettlement = v
		g.subPhase = SubPhaseRoad
		// the second round of the snake pays out immediately
		if g.setupStep >= len(g.players) {
			for _, hi := range b.vertexHexes[v] {
				if h := b.Hexes[hi]; h.Resource != Desert {
					g.grant(p, h.Resource, 1)
				}
			}
		}
		g.addLog("%s placed a settlement", p.Name)
		g.emit(Event{Kind: EventSound, Sound: SoundBuild})
		return nil
	}

	if !b.touchesRoad(v, p.Color) {
		return ErrNotConnected
	}
	if b.countBuildings(p.Color, BuildingSettlement) >= maxSettlements {
		return ErrLimitReached
	}
	if !g.spend(p, CostSettlement) {
		return ErrInsufficientResources
	}
	b.Vertices[v].Owner = p.Color
	b.Vertices[v].Type = BuildingSettlement
	g.addLog("%s built a settlement", p.Name)
	g.emit(Event{Kind: EventSound, Sound: SoundBuild})
	// a new building can cut an opponent's road
	g.updateLongestRoad()
	return nil
}

func (g *Game) buildRoad(p *Player, e int) error {
	if err := g.requireTurn(p, PhaseSetup, PhaseMain); err != nil {
		return err
	}
	if g.phase == PhaseSetup && g.subPhase != SubPhaseRoad {
		return ErrWrongPhase
	}
	b := g.board
	if !b.validEdge(e) {
		return ErrUnknownCell
	}
	edge := b.Edges[e]
	if edge.Owner != NoColor {
		return ErrOccupied
	}

	if g.phase == PhaseSetup {
		if edge.V1 != g.lastSettlement && edge.V2 != g.lastSettlement {
			return ErrNotConnected
		}
		b.Edges[e].Owner = p.Color
		g.addLog("%s placed a road", p.Name)
		g.emit(Event{Kind: EventSound, Sound: SoundBuild})
		g.updateLongestRoad()
		g.advanceSetup()
		return nil
	}

	if !b.roadConnects(e, p.Color) {
		return ErrNotConnected
	}
	if b.countRoads(p.Color) >= maxRoads {
		return ErrLimitReached
	}
	if g.freeRoads > 0 {
		g.freeRoads--
	} else if !g.spend(p, CostRoad) {
		return ErrInsufficientResources
	}
	b.Edges[e].Owner = p.Color
	g.addLog("%s built a road", p.Name)
	g.emit(Event{Kind: EventSound, Sound: SoundBuild})
	g.updateLongestRoad()
	return nil
}

func (g *Game) buildCity(p *Player, v int) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	b := g.board
	if !b.validVertex(v) {
		return ErrUnknownCell
	}
	if b.Vertices[v].Owner != p.Color || b.Vertices[v].Type != BuildingSettlement {
		return ErrNotOwner
	}
	if b.countBuildings(p.Color, BuildingCity) >= maxCities {
		return ErrLimitReached
	}
	if !g.spend(p, CostCity) {
		return ErrInsufficientResources
	}
	b.Vertices[v].Type = BuildingCity
	g.addLog("%s built a city", p.Name)
	g.emit(Event{Kind: EventSound, Sound: SoundBuild})
	return nil
}

// updateLongestRoad re-measures every player's longest trail and moves the
// badge. The holder keeps it while at or above the minimum; a challenger
// takes it only with a strictly longer road, and a tie among challengers
// leaves it unclaimed.
func (g *Game) updateLongestRoad() {
	for _, p := range g.players {
		p.RoadLength = g.board.LongestRoad(p.Color)
	}
	holder := g.Player(g.longestRoad.PlayerID)
	if holder != nil && holder.RoadLength >= longestRoadMinimum {
		g.longestRoad.Size = holder.RoadLength
	} else {
		if holder != nil {
			g.addLog("%s lost the longest road", holder.Name)
		}
		holder = nil
		g.longestRoad = Award{}
	}

	best, tied := (*Player)(nil), false
	for _, p := range g.players {
		if p == holder || p.RoadLength < longestRoadMinimum || p.RoadLength <= g.longestRoad.Size {
			continue
		}
		switch {
		case best == nil || p.RoadLength > best.RoadLength:
			best, tied = p, false
		case p.RoadLength == best.RoadLength:
			tied = true
		}
	}
	if best != nil && !tied {
		g.longestRoad = Award{PlayerID: best.ID, Size: best.RoadLength}
		g.addLog("%s holds the longest road (%d)", best.Name, best.RoadLength)
	}
}

package game

import "math/rand"

var deckTemplate = map[CardKind]int{
	CardKnight:       14,
	CardVictoryPoint: 5,
	CardRoadBuilding: 2,
	CardYearOfPlenty: 2,
	CardMonopoly:     2,
}

const (
	roadBuildingRoads = 2
	yearOfPlentyUnits = 2
)

func newDeck(rng *rand.Rand) []CardKind {
	deck := make([]CardKind, 0, 25)
	// fixed order before the shuffle keeps seeded games reproducible
	for _, k := range []CardKind{CardKnight, CardVictoryPoint, CardRoadBuilding, CardYearOfPlenty, CardMonopoly} {
		for i := 0; i < deckTemplate[k]; i++ {
			deck = append(deck, k)
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// DeckSize returns how many development cards remain.
func (g *Game) DeckSize() int { return len(g.deck) }

func (g *Game) buyCard(p *Player) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	if len(g.deck) == 0 {
		return ErrDeckEmpty
	}
	if !g.spend(p, CostCard) {
		return ErrInsufficientResources
	}
	kind := g.deck[0]
	g.deck = g.deck[1:]
	p.Cards = append(p.Cards, Card{Kind: kind, CanUse: false})
	g.addLog("%s bought a development card", p.Name)
	g.emit(Event{Kind: EventSound, Sound: SoundCard})
	return nil
}

func (g *Game) playCard(p *Player, kind CardKind, choice Resource) error {
	if err := g.requireTurn(p, PhaseMain); err != nil {
		return err
	}
	if kind == CardVictoryPoint {
		// victory cards score passively from the hand
		return ErrNoUsableCard
	}
	idx := -1
	for i, c := range p.Cards {
		if c.Kind == kind && c.CanUse {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNoUsableCard
	}
	if choice != "" && !choice.Valid() {
		return ErrBadResource
	}

	switch kind {
	case CardKnight:
		p.ArmySize++
		g.updateLargestArmy(p)
		g.phase = PhaseRobber
		g.addLog("%s played a knight", p.Name)
		g.emit(Event{Kind: EventSound, Sound: SoundRobber})
	case CardRoadBuilding:
		g.freeRoads = roadBuildingRoads
		g.addLog("%s played road building", p.Name)
	case CardYearOfPlenty:
		if choice == "" {
			choice = g.scarcestResource(p)
		}
		if g.bank[choice] < yearOfPlentyUnits {
			return ErrBankEmpty
		}
		g.grant(p, choice, yearOfPlentyUnits)
		g.addLog("%s played year of plenty (%s)", p.Name, choice)
	case CardMonopoly:
		if choice == "" {
			choice = g.richestOpponentResource(p)
		}
		taken := 0
		for _, other := range g.players {
			if other == p {
				continue
			}
			taken += other.Resources[choice]
			other.Resources[choice] = 0
		}
		p.Resources[choice] += taken
		g.addLog("%s played monopoly on %s (%d)", p.Name, choice, taken)
	default:
		return ErrNoUsableCard
	}
	p.Cards = append(p.Cards[:idx], p.Cards[idx+1:]...)
	g.emit(Event{Kind: EventSound, Sound: SoundCard})
	return nil
}

// updateLargestArmy hands the badge to p when p reaches the minimum with
// more knights than the current holder.
func (g *Game) updateLargestArmy(p *Player) {
	if p.ArmySize < largestArmyMinimum {
		return
	}
	if g.largestArmy.PlayerID == p.ID {
		g.largestArmy.Size = p.ArmySize
		return
	}
	if p.ArmySize > g.largestArmy.Size {
		g.largestArmy = Award{PlayerID: p.ID, Size: p.ArmySize}
		g.addLog("%s holds the largest army (%d)", p.Name, p.ArmySize)
	}
}

// scarcestResource is the default year-of-plenty pick: the kind p holds
// least of among those the bank can still pay.
func (g *Game) scarcestResource(p *Player) Resource {
	best := Resources[0]
	bestN := -1
	for _, r := range Resources {
		if g.bank[r] < yearOfPlentyUnits {
			continue
		}
		if bestN < 0 || p.Resources[r] < bestN {
			best, bestN = r, p.Resources[r]
		}
	}
	return best
}

// richestOpponentResource is the default monopoly pick.
func (g *Game) richestOpponentResource(p *Player) Resource {
	best := Resources[0]
	bestN := -1
	for _, r := range Resources {
		n := 0
		for _, other := range g.players {
			if other != p {
				n += other.Resources[r]
			}
		}
		if n > bestN {
			best, bestN = r, n
		}
	}
	return best
}

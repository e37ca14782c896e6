package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckComposition(t *testing.T) {
	deck := newDeck(seeded(1))
	counts := map[CardKind]int{}
	for _, k := range deck {
		counts[k]++
	}
	assert.Equal(t, deckTemplate, counts)
	assert.Len(t, deck, 25)
}

func TestBuyCard(t *testing.T) {
	g := newStarted(t, 2, 21)
	toMain(g)
	p := g.players[0]
	g.deck = []CardKind{CardVictoryPoint, CardKnight}

	assert.ErrorIs(t, g.Apply(p.ID, BuyCard{}), ErrInsufficientResources)
	fund(g, p, CostCard)
	require.NoError(t, g.Apply(p.ID, BuyCard{}))
	require.Len(t, p.Cards, 1)
	assert.Equal(t, Card{Kind: CardVictoryPoint, CanUse: false}, p.Cards[0])
	assert.Equal(t, 1, p.VictoryPoints, "victory cards score on purchase")
	assert.Equal(t, 1, g.DeckSize())
	assert.ErrorIs(t, g.Apply(p.ID, PlayCard{Card: CardVictoryPoint}), ErrNoUsableCard)

	g.deck = nil
	fund(g, p, CostCard)
	assert.ErrorIs(t, g.Apply(p.ID, BuyCard{}), ErrDeckEmpty)
}

func TestCardsUnlockAtOwnEndTurn(t *testing.T) {
	g := newStarted(t, 2, 22)
	toMain(g)
	a, b := g.players[0], g.players[1]
	a.Cards = []Card{{Kind: CardRoadBuilding}}

	assert.ErrorIs(t, g.Apply(a.ID, PlayCard{Card: CardRoadBuilding}), ErrNoUsableCard)
	require.NoError(t, g.Apply(a.ID, EndTurn{}))
	assert.True(t, a.Cards[0].CanUse)
	require.NoError(t, g.Apply(b.ID, EndTurn{}))

	require.NoError(t, g.Apply(a.ID, PlayCard{Card: CardRoadBuilding}))
	assert.Empty(t, a.Cards)
	assert.Equal(t, 2, g.freeRoads)
}

func TestRoadBuildingIsFree(t *testing.T) {
	g := newStarted(t, 2, 23)
	toMain(g)
	p := g.players[0]
	edges, verts := trail(g.board, 3)
	place(g, p, verts[0], BuildingSettlement)
	p.Cards = []Card{{Kind: CardRoadBuilding, CanUse: true}}

	require.NoError(t, g.Apply(p.ID, PlayCard{Card: CardRoadBuilding}))
	require.NoError(t, g.Apply(p.ID, BuildRoad{Edge: edges[0]}))
	require.NoError(t, g.Apply(p.ID, BuildRoad{Edge: edges[1]}))
	assert.ErrorIs(t, g.Apply(p.ID, BuildRoad{Edge: edges[2]}), ErrInsufficientResources)
	assert.Equal(t, 2, g.board.countRoads(p.Color))
}

func TestYearOfPlenty(t *testing.T) {
	g := newStarted(t, 2, 24)
	toMain(g)
	p := g.players[0]
	p.Cards = []Card{{Kind: CardYearOfPlenty, CanUse: true}}
	bankBefore := g.bank.Total()
	total := supply(g)

	require.NoError(t, g.Apply(p.ID, PlayCard{Card: CardYearOfPlenty, Resource: Mountain}))
	assert.Equal(t, 2, p.Resources[Mountain])
	assert.Equal(t, bankBefore-2, g.bank.Total())
	assert.Equal(t, total, supply(g))
	assert.Empty(t, p.Cards)
}

func TestYearOfPlentyBankShort(t *testing.T) {
	g := newStarted(t, 2, 25)
	toMain(g)
	p := g.players[0]
	p.Cards = []Card{{Kind: CardYearOfPlenty, CanUse: true}}
	g.bank[Mountain] = 1

	assert.ErrorIs(t, g.Apply(p.ID, PlayCard{Card: CardYearOfPlenty, Resource: Mountain}), ErrBankEmpty)
	assert.Len(t, p.Cards, 1)
	assert.Zero(t, p.Resources.Total())
	assert.ErrorIs(t, g.Apply(p.ID, PlayCard{Card: CardYearOfPlenty, Resource: "gold"}), ErrBadResource)
}

func TestYearOfPlentyDefaultChoice(t *testing.T) {
	g := newStarted(t, 2, 26)
	toMain(g)
	p := g.players[0]
	fund(g, p, Hand{Forest: 2, Hill: 2, Mountain: 2, Field: 2})
	p.Cards = []Card{{Kind: CardYearOfPlenty, CanUse: true}}

	require.NoError(t, g.Apply(p.ID, PlayCard{Card: CardYearOfPlenty}))
	assert.Equal(t, 2, p.Resources[Pasture])
}

func TestMonopolyIsZeroSum(t *testing.T) {
	g := newStarted(t, 3, 27)
	toMain(g)
	a, b, c := g.players[0], g.players[1], g.players[2]
	fund(g, b, Hand{Hill: 3, Forest: 1})
	fund(g, c, Hand{Hill: 2})
	a.Cards = []Card{{Kind: CardMonopoly, CanUse: true}}
	bank := g.bank.Clone()
	total := supply(g)

	require.NoError(t, g.Apply(a.ID, PlayCard{Card: CardMonopoly, Resource: Hill}))
	assert.Equal(t, 5, a.Resources[Hill])
	assert.Zero(t, b.Resources[Hill])
	assert.Zero(t, c.Resources[Hill])
	assert.Equal(t, 1, b.Resources[Forest])
	assert.Equal(t, bank, g.bank)
	assert.Equal(t, total, supply(g))
}

func TestKnightAndLargestArmy(t *testing.T) {
	g := newStarted(t, 2, 28)
	toMain(g)
	a, b := g.players[0], g.players[1]

	for i := 0; i < 3; i++ {
		a.Cards = append(a.Cards, Card{Kind: CardKnight, CanUse: true})
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Apply(a.ID, PlayCard{Card: CardKnight}))
		assert.Equal(t, PhaseRobber, g.Phase())
		h := producingHex(g.board, g.robberHex)
		require.NoError(t, g.Apply(a.ID, MoveRobber{Hex: h.ID}))
		assert.Equal(t, PhaseMain, g.Phase())
	}
	assert.Equal(t, 3, a.ArmySize)
	assert.Equal(t, Award{PlayerID: a.ID, Size: 3}, g.largestArmy)
	assert.Equal(t, bonusPoints, a.VictoryPoints)

	// equalling the holder is not enough
	b.ArmySize = 2
	b.Cards = []Card{{Kind: CardKnight, CanUse: true}, {Kind: CardKnight, CanUse: true}}
	g.turnIndex = 1
	require.NoError(t, g.Apply(b.ID, PlayCard{Card: CardKnight}))
	assert.Equal(t, a.ID, g.largestArmy.PlayerID)
	require.NoError(t, g.Apply(b.ID, MoveRobber{Hex: producingHex(g.board, g.robberHex).ID}))
	require.NoError(t, g.Apply(b.ID, PlayCard{Card: CardKnight}))
	assert.Equal(t, Award{PlayerID: b.ID, Size: 4}, g.largestArmy)
}

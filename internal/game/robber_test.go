package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurstDemandsHalf(t *testing.T) {
	g := newStarted(t, 2, 31)
	toMain(g)
	a, b := g.players[0], g.players[1]
	fund(g, a, Hand{Forest: 3, Hill: 3, Field: 3})
	fund(g, b, Hand{Pasture: 7})

	g.diceResult = 7
	g.startBurst()
	require.Equal(t, PhaseBurst, g.Phase())
	assert.Equal(t, 4, g.DiscardDemand(a.ID))
	assert.Zero(t, g.DiscardDemand(b.ID), "seven cards is under the threshold")

	assert.ErrorIs(t, g.Apply(a.ID, Discard{Resources: Hand{Forest: 3}}), ErrBadDiscard)
	assert.ErrorIs(t, g.Apply(a.ID, Discard{Resources: Hand{Mountain: 4}}), ErrInsufficientResources)
	assert.ErrorIs(t, g.Apply(b.ID, Discard{Resources: Hand{Pasture: 3}}), ErrNotYourTurn)
	assert.ErrorIs(t, g.Apply(a.ID, RollDice{}), ErrWrongPhase)

	require.NoError(t, g.Apply(a.ID, Discard{Resources: Hand{Forest: 2, Hill: 2}}))
	assert.Equal(t, 5, a.Resources.Total())
	assert.Equal(t, bankStartPerResource-1, g.bank[Forest])
	assert.Equal(t, PhaseRobber, g.Phase())
}

func TestBurstWaitsForEveryone(t *testing.T) {
	g := newStarted(t, 2, 32)
	toMain(g)
	a, b := g.players[0], g.players[1]
	fund(g, a, Hand{Forest: 8})
	fund(g, b, Hand{Hill: 10})

	g.diceResult = 7
	g.startBurst()
	require.ElementsMatch(t, []string{a.ID, b.ID}, g.burstPlayers)

	require.NoError(t, g.Apply(b.ID, Discard{Resources: Hand{Hill: 5}}))
	assert.Equal(t, PhaseBurst, g.Phase())
	require.NoError(t, g.Apply(a.ID, Discard{Resources: Hand{Forest: 4}}))
	assert.Equal(t, PhaseRobber, g.Phase())
	assert.Equal(t, a, g.Current())
}

func TestBurstDisabledOrBotsOnly(t *testing.T) {
	g := newStarted(t, 2, 33, func(s *Settings) { s.BurstEnabled = false })
	toMain(g)
	fund(g, g.players[1], Hand{Hill: 12})
	g.startBurst()
	assert.Equal(t, PhaseRobber, g.Phase())
	assert.Equal(t, 12, g.players[1].Resources.Total())

	g = newStarted(t, 1, 34, func(s *Settings) { s.BotCount = 1 })
	toMain(g)
	bot := g.players[1]
	fund(g, bot, Hand{Hill: 5, Field: 4})
	total := supply(g)
	g.startBurst()
	assert.Equal(t, PhaseRobber, g.Phase())
	assert.Equal(t, 5, bot.Resources.Total())
	assert.Equal(t, total, supply(g))
}

func TestMoveRobberAndSteal(t *testing.T) {
	g := newStarted(t, 2, 35)
	toMain(g)
	a, b := g.players[0], g.players[1]
	g.phase = PhaseRobber
	desert := g.robberHex
	h := producingHex(g.board, desert)
	place(g, b, g.board.HexVertices(h.ID)[0], BuildingSettlement)
	fund(g, b, Hand{Pasture: 1})

	assert.ErrorIs(t, g.Apply(a.ID, MoveRobber{Hex: desert}), ErrBadRobberTarget)
	assert.ErrorIs(t, g.Apply(a.ID, MoveRobber{Hex: -1}), ErrBadRobberTarget)
	assert.ErrorIs(t, g.Apply(b.ID, MoveRobber{Hex: h.ID}), ErrNotYourTurn)

	require.NoError(t, g.Apply(a.ID, MoveRobber{Hex: h.ID}))
	assert.Equal(t, h.ID, g.RobberHex())
	assert.Equal(t, PhaseMain, g.Phase())
	assert.Equal(t, 1, a.Resources[Pasture])
	assert.Zero(t, b.Resources.Total())

	g.phase = PhaseRobber
	assert.ErrorIs(t, g.Apply(a.ID, MoveRobber{Hex: h.ID}), ErrBadRobberTarget)
}

func TestStealSkipsOwnBuildings(t *testing.T) {
	g := newStarted(t, 2, 36)
	toMain(g)
	a := g.players[0]
	g.phase = PhaseRobber
	h := producingHex(g.board, g.robberHex)
	place(g, a, g.board.HexVertices(h.ID)[0], BuildingSettlement)
	fund(g, a, Hand{Field: 2})

	require.NoError(t, g.Apply(a.ID, MoveRobber{Hex: h.ID}))
	assert.Equal(t, 2, a.Resources.Total())
}

func TestRollDiceOncePerTurn(t *testing.T) {
	g := newStarted(t, 2, 37)
	toMain(g)
	a, b := g.players[0], g.players[1]

	assert.ErrorIs(t, g.Apply(b.ID, RollDice{}), ErrNotYourTurn)
	require.NoError(t, g.Apply(a.ID, RollDice{}))
	roll := g.DiceResult()
	assert.GreaterOrEqual(t, roll, 2)
	assert.LessOrEqual(t, roll, 12)
	assert.Equal(t, 1, g.stats.DiceHistory[roll])

	if g.Phase() == PhaseMain {
		assert.ErrorIs(t, g.Apply(a.ID, RollDice{}), ErrAlreadyRolled)
	}
}

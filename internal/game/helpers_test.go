package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func seeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func botName(i int) string { return fmt.Sprintf("bot-%d", i) }

// newStarted returns a game in SETUP with humans p0..p(n-1) seated.
func newStarted(t *testing.T, n int, seed int64, mutate ...func(*Settings)) *Game {
	t.Helper()
	s := DefaultSettings()
	for _, m := range mutate {
		m(&s)
	}
	g := New(s, WithRand(seeded(seed)))
	for i := 0; i < n; i++ {
		_, err := g.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("P%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, g.Start(nil, botName))
	return g
}

// toMain skips the setup snake and hands the first player a fresh turn.
func toMain(g *Game) {
	g.phase = PhaseMain
	g.subPhase = SubPhaseMainAction
	g.turnIndex = 0
	g.diceResult = 0
	g.setupOrder = nil
	g.setupStep = 0
	g.lastSettlement = -1
	g.turnSerial++
}

// fund moves h from the bank to p.
func fund(g *Game, p *Player, h Hand) {
	for r, n := range h {
		g.bank[r] -= n
		p.Resources[r] += n
	}
}

func place(g *Game, p *Player, v int, kind Building) {
	g.board.Vertices[v].Owner = p.Color
	g.board.Vertices[v].Type = kind
}

// supply returns bank plus every hand, per kind.
func supply(g *Game) Hand {
	out := g.bank.Clone()
	for _, p := range g.players {
		for _, r := range Resources {
			out[r] += p.Resources[r]
		}
	}
	return out
}

// trail finds n edges forming a simple path and returns them with the
// n+1 vertices they visit.
func trail(b *Board, n int) ([]int, []int) {
	for start := range b.Vertices {
		seen := map[int]bool{start: true}
		es := []int{}
		vs := []int{start}
		var dfs func(v int) bool
		dfs = func(v int) bool {
			if len(es) == n {
				return true
			}
			for _, e := range b.vertexEdges[v] {
				next := b.Edges[e].Other(v)
				if seen[next] {
					continue
				}
				seen[next] = true
				es = append(es, e)
				vs = append(vs, next)
				if dfs(next) {
					return true
				}
				seen[next] = false
				es = es[:len(es)-1]
				vs = vs[:len(vs)-1]
			}
			return false
		}
		if dfs(start) {
			return es, vs
		}
	}
	return nil, nil
}

func producingHex(b *Board, skip int) Hex {
	for _, h := range b.Hexes {
		if h.Resource != Desert && h.ID != skip {
			return h
		}
	}
	panic("no producing hex")
}

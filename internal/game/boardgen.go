package game

import (
	"math"
	"math/rand"
	"sort"
)

type axial struct{ q, r int }

var axialDirections = [6]axial{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

type hexRow struct{ r, qStart, count int }

var (
	normalRows = []hexRow{
		{-2, 0, 3}, {-1, -1, 4}, {0, -2, 5}, {1, -2, 4}, {2, -2, 3},
	}
	extendedRows = []hexRow{
		{-3, 0, 3}, {-2, -1, 4}, {-1, -2, 5}, {0, -3, 6}, {1, -3, 5}, {2, -3, 4}, {3, -3, 3},
	}

	normalTokens   = []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 8, 8, 9, 9, 10, 10, 11, 11, 12}
	extendedTokens = append(append([]int{}, normalTokens...), 2, 3, 4, 5, 6, 8, 9, 10, 11, 12)

	portRotation = []Resource{
		AnyResource, Pasture, AnyResource, Forest, AnyResource, Hill,
		AnyResource, Field, Mountain, AnyResource, AnyResource,
	}
)

const (
	randomNormalCount   = 19
	randomExtendedCount = 30
	// boards larger than this get a second desert
	secondDesertOver = 25
	portOffset       = 0.4
)

// HexCount returns how many hexes a board of the given size has.
func HexCount(size MapSize) int {
	if size == MapExtended {
		return randomExtendedCount
	}
	return randomNormalCount
}

// Generate builds a complete board. It depends on nothing but rng.
func Generate(size MapSize, kind MapType, rng *rand.Rand) *Board {
	var coords []axial
	if kind == MapRandom {
		coords = growCoords(HexCount(size), rng)
	} else {
		coords = fixedCoords(size)
	}

	b := &Board{Hexes: make([]Hex, 0, len(coords))}
	for i, c := range coords {
		x, y := hexCenter(c)
		b.Hexes = append(b.Hexes, Hex{ID: i, Q: c.q, R: c.r, X: x, Y: y})
	}
	assignResources(b.Hexes, size, rng)
	b.Vertices = deriveVertices(b.Hexes)
	b.Edges = deriveEdges(b.Vertices)
	b.Ports = placePorts(b.Vertices, b.Edges, portThreshold(size, kind))
	if err := b.index(); err != nil {
		// derived geometry is always consistent
		panic(err)
	}
	return b
}

func fixedCoords(size MapSize) []axial {
	rows := normalRows
	if size == MapExtended {
		rows = extendedRows
	}
	var out []axial
	for _, row := range rows {
		for i := 0; i < row.count; i++ {
			out = append(out, axial{row.qStart + i, row.r})
		}
	}
	return out
}

// growCoords grows a connected blob from the origin by attaching a random
// neighbour to a random existing hex until target hexes exist.
func growCoords(target int, rng *rand.Rand) []axial {
	out := []axial{{0, 0}}
	seen := map[axial]bool{{0, 0}: true}
	for len(out) < target {
		base := out[rng.Intn(len(out))]
		d := axialDirections[rng.Intn(len(axialDirections))]
		next := axial{base.q + d.q, base.r + d.r}
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
	}
	return out
}

func hexCenter(c axial) (float64, float64) {
	q, r := float64(c.q), float64(c.r)
	return math.Sqrt(3) * (q + r/2), 1.5 * r
}

func assignResources(hexes []Hex, size MapSize, rng *rand.Rand) {
	count := len(hexes)
	deserts := 1
	if size == MapExtended && count > secondDesertOver {
		deserts = 2
	}
	kinds := make([]Resource, 0, count)
	for i := 0; i < deserts; i++ {
		kinds = append(kinds, Desert)
	}
	for i := 0; len(kinds) < count; i++ {
		kinds = append(kinds, Resources[i%len(Resources)])
	}
	rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })

	base := normalTokens
	if size == MapExtended {
		base = extendedTokens
	}
	tokens := make([]int, 0, count-deserts)
	for i := 0; len(tokens) < count-deserts; i++ {
		tokens = append(tokens, base[i%len(base)])
	}
	rng.Shuffle(len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })

	next := 0
	for i := range hexes {
		hexes[i].Resource = kinds[i]
		if kinds[i] == Desert {
			hexes[i].Number = 0
			continue
		}
		hexes[i].Number = tokens[next]
		next++
	}
}

// deriveVertices merges the six corners of every hex by coincidence, so
// corners shared between neighbouring hexes become a single vertex.
func deriveVertices(hexes []Hex) []Vertex {
	var out []Vertex
	for _, h := range hexes {
		for i := 0; i < 6; i++ {
			rad := math.Pi / 180 * float64(60*i-30)
			x := h.X + hexSide*math.Cos(rad)
			y := h.Y + hexSide*math.Sin(rad)
			if vertexNear(out, x, y) {
				continue
			}
			out = append(out, Vertex{ID: len(out), X: x, Y: y, Owner: NoColor, Type: BuildingNone})
		}
	}
	return out
}

func vertexNear(vs []Vertex, x, y float64) bool {
	for _, v := range vs {
		if math.Hypot(v.X-x, v.Y-y) < mergeEpsilon {
			return true
		}
	}
	return false
}

func deriveEdges(vs []Vertex) []Edge {
	var out []Edge
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			d := math.Hypot(vs[i].X-vs[j].X, vs[i].Y-vs[j].Y)
			if math.Abs(d-hexSide) < mergeEpsilon {
				out = append(out, Edge{ID: len(out), V1: vs[i].ID, V2: vs[j].ID, Owner: NoColor})
			}
		}
	}
	return out
}

func portThreshold(size MapSize, kind MapType) float64 {
	switch {
	case kind == MapRandom:
		return 2.0
	case size == MapExtended:
		return 3.2
	default:
		return 2.4
	}
}

// placePorts walks the outer ring of vertices in polar order, three at a
// time, and puts the next port kind wherever the two selected vertices share
// an edge.
func placePorts(vs []Vertex, es []Edge, threshold float64) []Port {
	var cx, cy float64
	for _, v := range vs {
		cx += v.X
		cy += v.Y
	}
	cx /= float64(len(vs))
	cy /= float64(len(vs))

	var outer []Vertex
	for _, v := range vs {
		if math.Hypot(v.X-cx, v.Y-cy) > threshold {
			outer = append(outer, v)
		}
	}
	sort.SliceStable(outer, func(i, j int) bool {
		return math.Atan2(outer[i].Y-cy, outer[i].X-cx) < math.Atan2(outer[j].Y-cy, outer[j].X-cx)
	})

	connected := make(map[[2]int]bool, len(es))
	for _, e := range es {
		connected[[2]int{e.V1, e.V2}] = true
		connected[[2]int{e.V2, e.V1}] = true
	}

	var ports []Port
	next := 0
	for i := 0; i+1 < len(outer) && next < len(portRotation); i += 3 {
		v1, v2 := outer[i], outer[i+1]
		if !connected[[2]int{v1.ID, v2.ID}] {
			continue
		}
		mx, my := (v1.X+v2.X)/2, (v1.Y+v2.Y)/2
		ang := math.Atan2(my-cy, mx-cx)
		ports = append(ports, Port{
			Type: portRotation[next],
			V1:   v1.ID,
			V2:   v2.ID,
			X:    mx + portOffset*math.Cos(ang),
			Y:    my + portOffset*math.Sin(ang),
		})
		next++
	}
	return ports
}

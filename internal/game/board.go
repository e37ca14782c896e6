package game

import (
	"fmt"
	"math"
)

type Building string

const (
	BuildingNone       Building = "none"
	BuildingSettlement Building = "settlement"
	BuildingCity       Building = "city"
)

type Hex struct {
	ID       int      `json:"id"`
	Q        int      `json:"q"`
	R        int      `json:"r"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Resource Resource `json:"resource"`
	Number   int      `json:"number"`
}

type Vertex struct {
	ID    int      `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Owner Color    `json:"owner"`
	Type  Building `json:"type"`
}

type Edge struct {
	ID    int   `json:"id"`
	V1    int   `json:"v1"`
	V2    int   `json:"v2"`
	Owner Color `json:"owner"`
}

// Other returns the endpoint of e that is not v.
func (e Edge) Other(v int) int {
	if e.V1 == v {
		return e.V2
	}
	return e.V1
}

type Port struct {
	Type Resource `json:"type"`
	V1   int      `json:"v1"`
	V2   int      `json:"v2"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
}

// Board is the planar hex/vertex/edge graph. Adjacency lists are derived
// from geometry by index and are never serialised.
type Board struct {
	Hexes    []Hex    `json:"hexes"`
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
	Ports    []Port   `json:"ports"`

	vertexEdges [][]int
	vertexHexes [][]int
	hexVertices [][]int
	vertexPorts [][]int
}

const (
	// hexSide is the distance from a hex centre to each of its corners,
	// and therefore the length of every edge.
	hexSide      = 1.0
	mergeEpsilon = 0.1

	// maxVertexDegree bounds the edges meeting at a corner of a hex grid.
	maxVertexDegree = 3
)

func (b *Board) index() error {
	for i, h := range b.Hexes {
		if h.ID != i {
			return fmt.Errorf("%w: hex %d has id %d", ErrInvalidBoard, i, h.ID)
		}
	}
	for i, v := range b.Vertices {
		if v.ID != i {
			return fmt.Errorf("%w: vertex %d has id %d", ErrInvalidBoard, i, v.ID)
		}
	}
	b.vertexEdges = make([][]int, len(b.Vertices))
	for i, e := range b.Edges {
		if e.ID != i {
			return fmt.Errorf("%w: edge %d has id %d", ErrInvalidBoard, i, e.ID)
		}
		if !b.validVertex(e.V1) || !b.validVertex(e.V2) || e.V1 == e.V2 {
			return fmt.Errorf("%w: edge %d has bad endpoints", ErrInvalidBoard, i)
		}
		b.vertexEdges[e.V1] = append(b.vertexEdges[e.V1], i)
		b.vertexEdges[e.V2] = append(b.vertexEdges[e.V2], i)
	}
	for v, edges := range b.vertexEdges {
		if len(edges) > maxVertexDegree {
			return fmt.Errorf("%w: vertex %d has %d edges", ErrInvalidBoard, v, len(edges))
		}
	}
	b.vertexHexes = make([][]int, len(b.Vertices))
	b.hexVertices = make([][]int, len(b.Hexes))
	for hi, h := range b.Hexes {
		for vi, v := range b.Vertices {
			if math.Abs(math.Hypot(v.X-h.X, v.Y-h.Y)-hexSide) < mergeEpsilon {
				b.vertexHexes[vi] = append(b.vertexHexes[vi], hi)
				b.hexVertices[hi] = append(b.hexVertices[hi], vi)
			}
		}
	}
	b.vertexPorts = make([][]int, len(b.Vertices))
	for pi, p := range b.Ports {
		if !b.validVertex(p.V1) || !b.validVertex(p.V2) {
			return fmt.Errorf("%w: port %d has bad vertices", ErrInvalidBoard, pi)
		}
		b.vertexPorts[p.V1] = append(b.vertexPorts[p.V1], pi)
		b.vertexPorts[p.V2] = append(b.vertexPorts[p.V2], pi)
	}
	return nil
}

func (b *Board) validVertex(id int) bool { return id >= 0 && id < len(b.Vertices) }
func (b *Board) validEdge(id int) bool   { return id >= 0 && id < len(b.Edges) }
func (b *Board) validHex(id int) bool    { return id >= 0 && id < len(b.Hexes) }

// Neighbors returns the vertices one edge away from v.
func (b *Board) Neighbors(v int) []int {
	out := make([]int, 0, len(b.vertexEdges[v]))
	for _, e := range b.vertexEdges[v] {
		out = append(out, b.Edges[e].Other(v))
	}
	return out
}

// HexVertices returns the corner vertices of hex h.
func (b *Board) HexVertices(h int) []int { return b.hexVertices[h] }

// Degree returns the number of edges incident to v.
func (b *Board) Degree(v int) int { return len(b.vertexEdges[v]) }

// spacingOK enforces the distance rule: no building on v or any neighbour.
func (b *Board) spacingOK(v int) bool {
	if b.Vertices[v].Owner != NoColor {
		return false
	}
	for _, n := range b.Neighbors(v) {
		if b.Vertices[n].Owner != NoColor {
			return false
		}
	}
	return true
}

// touchesRoad reports whether color owns an edge incident to v.
func (b *Board) touchesRoad(v int, color Color) bool {
	for _, e := range b.vertexEdges[v] {
		if b.Edges[e].Owner == color {
			return true
		}
	}
	return false
}

// roadConnects reports whether edge e extends color's network: one of its
// endpoints carries color's building, or carries color's road and is not
// blocked by someone else's building.
func (b *Board) roadConnects(e int, color Color) bool {
	edge := b.Edges[e]
	for _, v := range [2]int{edge.V1, edge.V2} {
		owner := b.Vertices[v].Owner
		if owner == color {
			return true
		}
		if owner != NoColor {
			continue
		}
		for _, other := range b.vertexEdges[v] {
			if other != e && b.Edges[other].Owner == color {
				return true
			}
		}
	}
	return false
}

func (b *Board) countBuildings(color Color, kind Building) int {
	n := 0
	for _, v := range b.Vertices {
		if v.Owner == color && v.Type == kind {
			n++
		}
	}
	return n
}

func (b *Board) countRoads(color Color) int {
	n := 0
	for _, e := range b.Edges {
		if e.Owner == color {
			n++
		}
	}
	return n
}

// LongestRoad returns the length of color's longest trail: a walk that uses
// each owned edge at most once and does not pass through a vertex holding
// another player's building.
func (b *Board) LongestRoad(color Color) int {
	used := make([]bool, len(b.Edges))
	var walk func(v int) int
	walk = func(v int) int {
		longest := 0
		for _, e := range b.vertexEdges[v] {
			if used[e] || b.Edges[e].Owner != color {
				continue
			}
			used[e] = true
			next := b.Edges[e].Other(v)
			n := 1
			if owner := b.Vertices[next].Owner; owner == NoColor || owner == color {
				n += walk(next)
			}
			used[e] = false
			if n > longest {
				longest = n
			}
		}
		return longest
	}
	best := 0
	for v := range b.Vertices {
		if !b.touchesRoad(v, color) {
			continue
		}
		if n := walk(v); n > best {
			best = n
		}
	}
	return best
}

func (b *Board) firstDesert() int {
	for _, h := range b.Hexes {
		if h.Resource == Desert {
			return h.ID
		}
	}
	return -1
}

// clearOwnership strips every owner and building, leaving the geometry.
func (b *Board) clearOwnership() {
	for i := range b.Vertices {
		b.Vertices[i].Owner = NoColor
		b.Vertices[i].Type = BuildingNone
	}
	for i := range b.Edges {
		b.Edges[i].Owner = NoColor
	}
}

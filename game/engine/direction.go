package engine

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// headings are the 16 compass vectors scaled by 100, clockwise from NNE.
// Index 15 (direction 16) is due north.
var headings = [NumDirections][2]float64{
	{38, -92}, {70, -70}, {92, -38}, {100, 0},
	{92, 38}, {70, 70}, {38, 92}, {0, 100},
	{-38, 92}, {-70, 70}, {-92, 38}, {-100, 0},
	{-92, -38}, {-70, -70}, {-38, -92}, {0, -100},
}

// DirectionTable holds the heading for each direction index minus one
var DirectionTable = func() [NumDirections]r2.Vec {
	var table [NumDirections]r2.Vec
	for i, h := range headings {
		table[i] = r2.Vec{X: h[0] / 100, Y: h[1] / 100}
	}
	return table
}()

// NormalizeDirection wraps any integer into 1..16
func NormalizeDirection(i int) int {
	m := (i - 1) % NumDirections
	if m < 0 {
		m += NumDirections
	}
	return m + 1
}

// DirectionVector returns the heading for a direction index, wrapping it first
func DirectionVector(i int) r2.Vec {
	return DirectionTable[NormalizeDirection(i)-1]
}

// DirectionName returns a compass label for a direction index
func DirectionName(i int) string {
	return directionNames[NormalizeDirection(i)-1]
}

var directionNames = [NumDirections]string{
	"NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S",
	"SSW", "SW", "WSW", "W", "WNW", "NW", "NNW", "N",
}

// SpawnLine is an entry point on the playfield rim with its facing,
// both in playfield units (facing scaled by 100 like the heading table)
type SpawnLine struct {
	Position Position `json:"position"`
	Facing   Position `json:"facing"`
}

// SpawnLines are the 16 entry points around the playfield
var SpawnLines = [NumDirections]SpawnLine{
	{Position{206, 478}, Position{-92, -38}},
	{Position{110, 412}, Position{-70, -70}},
	{Position{44, 316}, Position{-38, -92}},
	{Position{20, 202}, Position{0, -100}},
	{Position{44, 88}, Position{38, -92}},
	{Position{110, -8}, Position{70, -70}},
	{Position{206, -74}, Position{92, -38}},
	{Position{320, -98}, Position{100, 0}},
	{Position{434, -74}, Position{92, 38}},
	{Position{530, -8}, Position{70, 70}},
	{Position{596, 88}, Position{38, 92}},
	{Position{620, 202}, Position{0, 100}},
	{Position{596, 316}, Position{-38, 92}},
	{Position{530, 412}, Position{-70, 70}},
	{Position{434, 478}, Position{-92, 38}},
	{Position{320, 502}, Position{-100, 0}},
}

// Edge names the side of the playfield a vehicle enters from
type Edge string

const (
	EdgeSouth     Edge = "south"
	EdgeSouthwest Edge = "southwest"
	EdgeWest      Edge = "west"
	EdgeNorthwest Edge = "northwest"
	EdgeNorth     Edge = "north"
	EdgeNortheast Edge = "northeast"
	EdgeEast      Edge = "east"
	EdgeSoutheast Edge = "southeast"
)

var edgeSpawnIndex = map[Edge]int{
	EdgeSouth:     0,
	EdgeSouthwest: 1,
	EdgeWest:      3,
	EdgeNorthwest: 5,
	EdgeNorth:     7,
	EdgeNortheast: 9,
	EdgeEast:      11,
	EdgeSoutheast: 13,
}

// ParseEdge reports whether s names a known edge, ignoring case
func ParseEdge(s string) (Edge, bool) {
	e := Edge(strings.ToLower(strings.TrimSpace(s)))
	_, ok := edgeSpawnIndex[e]
	return e, ok
}

// Edges lists every known edge in spawn-line order
func Edges() []Edge {
	return []Edge{
		EdgeSouth, EdgeSouthwest, EdgeWest, EdgeNorthwest,
		EdgeNorth, EdgeNortheast, EdgeEast, EdgeSoutheast,
	}
}

// SpawnIndexForEdge maps an edge to its spawn line; unknown edges map to 0
func SpawnIndexForEdge(edge Edge) int {
	e, _ := ParseEdge(string(edge))
	return edgeSpawnIndex[e]
}

// SpawnLineForEdge returns the spawn line used when entering from edge
func SpawnLineForEdge(edge Edge) SpawnLine {
	return SpawnLines[SpawnIndexForEdge(edge)]
}

// SpawnLineAt returns the spawn line at index, falling back to 0 when out of range
func SpawnLineAt(index int) SpawnLine {
	if index < 0 || index >= len(SpawnLines) {
		index = 0
	}
	return SpawnLines[index]
}

// DirectionFromSpawnLine returns the direction index whose heading is
// closest to the spawn line facing
func DirectionFromSpawnLine(line SpawnLine) int {
	best := 1
	bestDist := math.Inf(1)
	for i, h := range headings {
		dx := h[0] - line.Facing.X
		dy := h[1] - line.Facing.Y
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

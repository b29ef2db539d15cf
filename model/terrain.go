package model

import (
	"fmt"
	"strings"
)

// TerrainType classifies one hex of the map.
type TerrainType byte

const (
	Flat           TerrainType = iota // grassland and roads
	Forest                            // slows mounted units
	Hills                             // good defense for foot units
	Mountains                         // impassable to mounted units
	Water                             // impassable to land units
	VillageTerrain                    // capturable, heals and pays income
	Castle                            // recruit hexes around a keep
	Keep                              // where leaders recruit from
)

var terrainCodes = map[byte]TerrainType{
	'.': Flat,
	'f': Forest,
	'h': Hills,
	'm': Mountains,
	'~': Water,
	'v': VillageTerrain,
	'c': Castle,
	'k': Keep,
}

var terrainNames = [...]string{"flat", "forest", "hills", "mountains", "water", "village", "castle", "keep"}

func (t TerrainType) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return fmt.Sprintf("terrain(%d)", t)
}

// Code is the single-character map code of t.
func (t TerrainType) Code() byte {
	for c, tt := range terrainCodes {
		if tt == t {
			return c
		}
	}
	return '?'
}

// TerrainGrid is a rectangular hex map in "odd-q" layout: odd columns are
// shifted half a hex down.
type TerrainGrid struct {
	Cols int
	Rows int
	Grid []TerrainType // row-major: Grid[row*Cols + col]
}

// ParseTerrain builds a grid from one string per row, one code per hex.
func ParseTerrain(rows []string) (*TerrainGrid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty map")
	}
	g := &TerrainGrid{Cols: len(rows[0]), Rows: len(rows)}
	for y, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("map row %d has %d hexes, want %d", y, len(row), g.Cols)
		}
		for x := 0; x < len(row); x++ {
			t, ok := terrainCodes[row[x]]
			if !ok {
				return nil, fmt.Errorf("map row %d column %d: unknown terrain code %q", y, x, row[x])
			}
			g.Grid = append(g.Grid, t)
		}
	}
	return g, nil
}

// Lines renders the grid back to its textual form.
func (g *TerrainGrid) Lines() []string {
	out := make([]string, g.Rows)
	for y := 0; y < g.Rows; y++ {
		var b strings.Builder
		for x := 0; x < g.Cols; x++ {
			b.WriteByte(g.Grid[y*g.Cols+x].Code())
		}
		out[y] = b.String()
	}
	return out
}

func (g *TerrainGrid) OnMap(l Location) bool {
	return l.X >= 0 && l.X < g.Cols && l.Y >= 0 && l.Y < g.Rows
}

// At returns the terrain at l. Off-map locations read as Water so nothing
// can walk there.
func (g *TerrainGrid) At(l Location) TerrainType {
	if !g.OnMap(l) {
		return Water
	}
	return g.Grid[l.Y*g.Cols+l.X]
}

// Find returns every location of the given terrain in row-major order.
func (g *TerrainGrid) Find(t TerrainType) []Location {
	var out []Location
	for i, tt := range g.Grid {
		if tt == t {
			out = append(out, Location{X: i % g.Cols, Y: i / g.Cols})
		}
	}
	return out
}

// IsCastle reports whether recruits can be placed on l.
func (g *TerrainGrid) IsCastle(l Location) bool {
	t := g.At(l)
	return t == Castle || t == Keep
}

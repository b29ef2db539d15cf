package model

import (
	"slices"
	"testing"
)

func TestParseTerrain(t *testing.T) {
	rows := []string{
		"..fv",
		"~hmk",
		"cc..",
	}
	grid, err := ParseTerrain(rows)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		loc  Location
		want TerrainType
	}{
		{Loc(0, 0), Flat},
		{Loc(2, 0), Forest},
		{Loc(3, 0), VillageTerrain},
		{Loc(0, 1), Water},
		{Loc(1, 1), Hills},
		{Loc(2, 1), Mountains},
		{Loc(3, 1), Keep},
		{Loc(1, 2), Castle},
	}
	for _, tc := range tests {
		if got := grid.At(tc.loc); got != tc.want {
			t.Errorf("At(%s) = %s, want %s", tc.loc, got, tc.want)
		}
	}
	if !slices.Equal(grid.Lines(), rows) {
		t.Errorf("Lines() = %v, want %v", grid.Lines(), rows)
	}
}

func TestTerrainOffMap(t *testing.T) {
	grid, err := ParseTerrain([]string{"..", ".."})
	if err != nil {
		t.Fatal(err)
	}
	// Off-map hexes read as water so nothing walks off the board.
	for _, l := range []Location{Loc(-1, 0), Loc(0, -1), Loc(2, 0), Loc(0, 2)} {
		if grid.OnMap(l) {
			t.Errorf("OnMap(%s) = true", l)
		}
		if got := grid.At(l); got != Water {
			t.Errorf("At(%s) = %s, want water", l, got)
		}
	}
}

func TestParseTerrainErrors(t *testing.T) {
	for _, rows := range [][]string{nil, {"..", "."}, {".x"}} {
		if _, err := ParseTerrain(rows); err == nil {
			t.Errorf("ParseTerrain(%q) succeeded", rows)
		}
	}
}

func TestAdjacentDistance(t *testing.T) {
	for _, center := range []Location{Loc(4, 4), Loc(5, 4)} {
		adj := center.Adjacent()
		for _, n := range adj {
			if d := Distance(center, n); d != 1 {
				t.Errorf("Distance(%s, %s) = %d, want 1", center, n, d)
			}
			if d := Distance(n, center); d != 1 {
				t.Errorf("Distance(%s, %s) = %d, want 1", n, center, d)
			}
			if !n.IsAdjacent(center) {
				t.Errorf("%s should be adjacent to %s", n, center)
			}
		}
	}

	tests := []struct {
		a, b Location
		want int
	}{
		{Loc(0, 0), Loc(0, 0), 0},
		{Loc(0, 0), Loc(3, 0), 3},
		{Loc(0, 0), Loc(0, 4), 4},
		{Loc(0, 0), Loc(1, 1), 2},
		{Loc(1, 1), Loc(0, 0), 2},
		{Loc(0, 0), Loc(4, 2), 4},
	}
	for _, tc := range tests {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

package model

import "fmt"

// Location is a hex coordinate. Columns with an odd X sit half a hex lower
// than their even neighbours.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func Loc(x, y int) Location { return Location{X: x, Y: y} }

func (l Location) String() string { return fmt.Sprintf("(%d,%d)", l.X, l.Y) }

func isEven(n int) bool { return n%2 == 0 }

// Adjacent returns the six neighbours of l, clockwise from north.
func (l Location) Adjacent() [6]Location {
	up, down := 0, 1 // odd columns
	if isEven(l.X) {
		up, down = -1, 0
	}
	return [6]Location{
		{l.X, l.Y - 1},
		{l.X + 1, l.Y + up},
		{l.X + 1, l.Y + down},
		{l.X, l.Y + 1},
		{l.X - 1, l.Y + down},
		{l.X - 1, l.Y + up},
	}
}

func (l Location) IsAdjacent(o Location) bool {
	for _, a := range l.Adjacent() {
		if a == o {
			return true
		}
	}
	return false
}

// Distance is the number of hex steps between l and o.
func Distance(l, o Location) int {
	dx := abs(l.X - o.X)
	penalty := 0
	if (isEven(l.X) && !isEven(o.X) && l.Y < o.Y) || (isEven(o.X) && !isEven(l.X) && o.Y < l.Y) {
		penalty = 1
	}
	return max(dx, abs(l.Y-o.Y)+penalty+dx/2)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

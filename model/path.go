package model

import (
	"container/heap"
	"fmt"
)

type pathNode struct {
	loc  Location
	cost int
}

type pathQueue []pathNode

func (q pathQueue) Len() int           { return len(q) }
func (q pathQueue) Less(i, j int) bool { return q[i].cost < q[j].cost }
func (q pathQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)        { *q = append(*q, x.(pathNode)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

// inEnemyZOC reports whether l is adjacent to a unit hostile to side.
func (w *World) inEnemyZOC(l Location, side int) bool {
	for _, n := range l.Adjacent() {
		if e := w.UnitAt(n); e != nil && w.IsEnemy(side, e.Side) {
			return true
		}
	}
	return false
}

// Reach returns every hex u can end its move on this turn, with the
// movement it would have left. Units cannot enter enemy hexes, may pass
// through friendly ones, and stop when they step next to an enemy.
func (w *World) Reach(u *Unit) map[Location]int {
	start := u.Loc()
	spent := map[Location]int{start: 0}
	q := &pathQueue{{loc: start}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(pathNode)
		if cur.cost > spent[cur.loc] {
			continue
		}
		if cur.loc != start && w.inEnemyZOC(cur.loc, u.Side) {
			continue
		}
		for _, n := range cur.loc.Adjacent() {
			if !w.Map.OnMap(n) {
				continue
			}
			if o := w.UnitAt(n); o != nil && w.IsEnemy(u.Side, o.Side) {
				continue
			}
			c := cur.cost + MoveCost(u, w.Map.At(n))
			if c > u.Moves {
				continue
			}
			if prev, ok := spent[n]; ok && prev <= c {
				continue
			}
			spent[n] = c
			heap.Push(q, pathNode{loc: n, cost: c})
		}
	}
	out := make(map[Location]int, len(spent))
	for l, c := range spent {
		if l != start && w.UnitAt(l) != nil {
			continue
		}
		left := u.Moves - c
		if l != start && w.inEnemyZOC(l, u.Side) {
			left = 0
		}
		out[l] = left
	}
	return out
}

// ShortestPath finds the cheapest route from u's hex to dst over any number
// of turns, ignoring friendly units and zones of control. It returns nil
// when dst cannot be reached.
func (w *World) ShortestPath(u *Unit, dst Location) []Location {
	start := u.Loc()
	if start == dst {
		return []Location{start}
	}
	spent := map[Location]int{start: 0}
	prev := map[Location]Location{}
	q := &pathQueue{{loc: start}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(pathNode)
		if cur.loc == dst {
			break
		}
		if cur.cost > spent[cur.loc] {
			continue
		}
		for _, n := range cur.loc.Adjacent() {
			if !w.Map.OnMap(n) {
				continue
			}
			if o := w.UnitAt(n); o != nil && n != dst && w.IsEnemy(u.Side, o.Side) {
				continue
			}
			step := MoveCost(u, w.Map.At(n))
			if step >= Impassable {
				continue
			}
			c := cur.cost + step
			if old, ok := spent[n]; ok && old <= c {
				continue
			}
			spent[n] = c
			prev[n] = cur.loc
			heap.Push(q, pathNode{loc: n, cost: c})
		}
	}
	if _, ok := spent[dst]; !ok {
		return nil
	}
	path := []Location{dst}
	for l := dst; l != start; {
		l = prev[l]
		path = append(path, l)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// MoveResult describes what a move actually did.
type MoveResult struct {
	From, To Location
	Captured bool
}

func (r MoveResult) Moved() bool { return r.From != r.To }

// MoveUnit moves u toward dst. When dst is out of reach the unit goes as far
// along the shortest path as its movement allows. A move that makes no
// progress takes away the unit's remaining movement. Ending on a village
// the side does not own captures it and ends movement.
func (w *World) MoveUnit(u *Unit, dst Location) (MoveResult, error) {
	if w.UnitByID(u.ID) != u {
		return MoveResult{}, fmt.Errorf("unit %s is not on the board", u.ID)
	}
	res := MoveResult{From: u.Loc(), To: u.Loc()}
	if dst == res.From || u.Moves <= 0 {
		u.Moves = 0
		return res, nil
	}
	reach := w.Reach(u)
	target := dst
	if _, ok := reach[dst]; !ok {
		target = res.From
		for _, l := range w.ShortestPath(u, dst) {
			if _, ok := reach[l]; ok {
				target = l
			}
		}
	}
	if target == res.From {
		u.Moves = 0
		return res, nil
	}
	u.X, u.Y = target.X, target.Y
	u.Moves = reach[target]
	res.To = target
	if w.Capture(target, u.Side) {
		res.Captured = true
		u.Moves = 0
	}
	return res, nil
}

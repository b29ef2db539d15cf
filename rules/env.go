package rules

import (
	"github.com/nstehr/vimy/vimy-formula/model"
)

// TurnEnv is the environment of stage conditions. Its fields and methods
// are what a `when` expression can use.
type TurnEnv struct {
	World *model.World
	Turn  int
	Side  int
	Gold  int
}

// NewTurnEnv snapshots the counters of s for a stage condition.
func NewTurnEnv(s *State) TurnEnv {
	e := TurnEnv{World: s.World, Turn: s.World.Turn, Side: s.Side}
	if side := s.World.Side(s.Side); side != nil {
		e.Gold = side.Gold
	}
	return e
}

func (e TurnEnv) units() []*model.Unit {
	if e.World == nil {
		return nil
	}
	return e.World.SideUnits(e.Side)
}

func (e TurnEnv) UnitCount() int { return len(e.units()) }

func (e TurnEnv) EnemyCount() int {
	if e.World == nil {
		return 0
	}
	return len(e.World.EnemyUnits(e.Side))
}

func (e TurnEnv) VillageCount() int {
	if e.World == nil {
		return 0
	}
	return len(e.World.SideVillages(e.Side))
}

// HasUnit reports whether the side has a unit of type t (case-insensitive).
func (e TurnEnv) HasUnit(t string) bool { return containsType(e.units(), t) }

func (e TurnEnv) TypeCount(t string) int { return countType(e.units(), t) }

// CountAny counts units of any of the given types.
func (e TurnEnv) CountAny(types ...string) int { return countAnyType(e.units(), types) }

func (e TurnEnv) HasAnyUnit(types ...string) bool { return containsAnyType(e.units(), types) }

func (e TurnEnv) RoleCount(role string) int {
	n := 0
	for _, u := range e.units() {
		if RoleOf(u) == role {
			n++
		}
	}
	return n
}

func (e TurnEnv) HasLeader() bool {
	return e.World != nil && e.World.Leader(e.Side) != nil
}

func (e TurnEnv) LeaderOnKeep() bool {
	if e.World == nil {
		return false
	}
	l := e.World.Leader(e.Side)
	return l != nil && e.World.Map.At(l.Loc()) == model.Keep
}

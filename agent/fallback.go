package agent

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/model"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// Fallback engine names.
const (
	EngineDefault = "default"
	EngineIdle    = "idle"
)

// fallbackEngine plays the rest of a turn without formulas.
type fallbackEngine func(x *executor, maxCycles int) error

var fallbackEngines = map[string]fallbackEngine{
	EngineDefault: playDefault,
	EngineIdle:    func(*executor, int) error { return nil },
}

func runFallback(name string, x *executor, maxCycles int) error {
	engine, ok := fallbackEngines[name]
	if !ok {
		slog.Warn("unknown fallback engine, idling", "engine", name)
		return nil
	}
	slog.Info("fallback engine takes over", "engine", name, "side", x.s.Side)
	return engine(x, maxCycles)
}

// playDefault is a greedy AI: take the best rated attacks, bring the leader
// home and recruit, then send everyone else to villages or at the enemy.
func playDefault(x *executor, maxCycles int) error {
	s := x.s
	for range maxCycles {
		applied := false
		for _, a := range s.AttackOptions() {
			if a.Rating <= 0 {
				break
			}
			changed, err := x.apply(a)
			if err != nil {
				return err
			}
			if changed {
				applied = true
				break
			}
		}
		if !applied {
			break
		}
	}

	if l := s.World.Leader(s.Side); l != nil && l.Moves > 0 {
		if keep, ok := s.World.NearestKeep(l.Loc()); ok && keep != l.Loc() {
			if _, err := x.apply(&rules.MoveCommand{Src: l.Loc(), Dst: keep}); err != nil {
				return err
			}
		}
	}
	if _, err := recruitAll(x); err != nil {
		return err
	}

	var ids []string
	for _, u := range s.World.SideUnits(s.Side) {
		if !u.CanRecruit && u.Moves > 0 {
			ids = append(ids, u.ID)
		}
	}
	for _, id := range ids {
		u := s.World.UnitByID(id)
		if u == nil || u.Moves <= 0 {
			continue
		}
		dst, ok := s.World.NearestUnownedVillage(u.Loc(), s.Side)
		if !ok {
			dst, ok = nearestEnemy(s, u.Loc())
		}
		if !ok {
			continue
		}
		if _, err := x.apply(&rules.MoveCommand{Src: u.Loc(), Dst: dst}); err != nil {
			return err
		}
	}
	return nil
}

func nearestEnemy(s *rules.State, from model.Location) (model.Location, bool) {
	var loc model.Location
	best := -1
	for _, e := range s.World.EnemyUnits(s.Side) {
		if d := model.Distance(from, e.Loc()); best < 0 || d < best {
			best, loc = d, e.Loc()
		}
	}
	return loc, best >= 0
}

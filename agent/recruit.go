package agent

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/model"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// recruitValue rates a unit type for recruiting: toughness and punch per
// gold, discounted by how many of the type the side already has.
func recruitValue(t model.UnitType, owned int) int {
	if t.Cost <= 0 {
		return 0
	}
	return (t.HP + t.BestDamage()) * 100 / t.Cost / (1 + owned)
}

// pickRecruit chooses the affordable recruit with the best value. Ties go
// to the type listed first.
func pickRecruit(s *rules.State) (string, bool) {
	side := s.World.Side(s.Side)
	if side == nil {
		return "", false
	}
	owned := map[string]int{}
	for _, u := range s.World.SideUnits(s.Side) {
		owned[u.Type]++
	}
	best, bestVal := "", -1
	for _, name := range side.Recruits {
		t, ok := model.LookupUnitType(name)
		if !ok || t.Cost > side.Gold {
			continue
		}
		if v := recruitValue(t, owned[name]); v > bestVal {
			best, bestVal = name, v
		}
	}
	return best, bestVal >= 0
}

// recruitAll recruits onto the free castle hexes of the leader's keep
// while the side can afford something.
func recruitAll(x *executor) (int, error) {
	n := 0
	for len(rules.FreeCastleHexes(x.s)) > 0 {
		typ, ok := pickRecruit(x.s)
		if !ok {
			break
		}
		changed, err := x.apply(&rules.RecruitCommand{Type: typ})
		if err != nil {
			return n, err
		}
		if !changed {
			break
		}
		n++
	}
	if n > 0 {
		slog.Debug("recruited", "side", x.s.Side, "count", n)
	}
	return n, nil
}

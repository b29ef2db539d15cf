package model

import (
	"cmp"
	"fmt"
	"slices"
)

// Combat is a prepared exchange between an attacker standing on From and a
// defender, with the weapons each side uses.
type Combat struct {
	Attacker       *Unit
	Defender       *Unit
	From           Location
	AttackerWeapon int // index into Attacker.Attacks
	DefenderWeapon int // -1 when the defender cannot retaliate
	AttackerCTH    int // percent chance for each attacker strike to land
	DefenderCTH    int
}

// ChanceToHit is the percent chance of hitting u while it stands on l.
func (w *World) ChanceToHit(u *Unit, l Location) int {
	return 100 - Defense(u, w.Map.At(l))
}

func hasSpecial(a Attack, s string) bool { return slices.Contains(a.Specials, s) }

func strikeChance(a Attack, base int) int {
	if hasSpecial(a, "magical") {
		return 70
	}
	return base
}

// pickWeapon returns the attack of u in the given range (any range if empty)
// with the best expected damage, or -1.
func pickWeapon(u *Unit, rng string, cth int) int {
	best, bestVal := -1, -1
	for i, a := range u.Attacks {
		if rng != "" && a.Range != rng {
			continue
		}
		if v := a.Damage * a.Strikes * strikeChance(a, cth); v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

// PrepareCombat sets up att attacking def from the hex from. A negative
// weapon selects the attacker's best weapon.
func (w *World) PrepareCombat(att, def *Unit, from Location, weapon int) (*Combat, error) {
	c := &Combat{Attacker: att, Defender: def, From: from}
	hitDef := w.ChanceToHit(def, def.Loc())
	hitAtt := w.ChanceToHit(att, from)
	if weapon < 0 {
		weapon = pickWeapon(att, "", hitDef)
	}
	if weapon < 0 || weapon >= len(att.Attacks) {
		return nil, fmt.Errorf("unit %s has no weapon %d", att.ID, weapon)
	}
	c.AttackerWeapon = weapon
	aw := att.Attacks[weapon]
	c.AttackerCTH = strikeChance(aw, hitDef)
	c.DefenderWeapon = pickWeapon(def, aw.Range, hitAtt)
	if c.DefenderWeapon >= 0 {
		c.DefenderCTH = strikeChance(def.Attacks[c.DefenderWeapon], hitAtt)
	}
	return c, nil
}

type strike struct {
	byAttacker bool
	damage     int
	cth        int
}

// sequence lists the strikes in order. Strikes alternate, the attacker
// first unless only the defender has firststrike.
func (c *Combat) sequence() []strike {
	aw := c.Attacker.Attacks[c.AttackerWeapon]
	as := strike{byAttacker: true, damage: aw.Damage, cth: c.AttackerCTH}
	aCount, dCount := aw.Strikes, 0
	var ds strike
	defFirst := false
	if c.DefenderWeapon >= 0 {
		dw := c.Defender.Attacks[c.DefenderWeapon]
		ds = strike{damage: dw.Damage, cth: c.DefenderCTH}
		dCount = dw.Strikes
		defFirst = hasSpecial(dw, "firststrike") && !hasSpecial(aw, "firststrike")
	}
	var out []strike
	for i := 0; i < max(aCount, dCount); i++ {
		if defFirst && i < dCount {
			out = append(out, ds)
		}
		if i < aCount {
			out = append(out, as)
		}
		if !defFirst && i < dCount {
			out = append(out, ds)
		}
	}
	return out
}

// Outcome is one possible end state of a combat.
type Outcome struct {
	AttackerHP  int
	DefenderHP  int
	Probability float64
}

// Outcomes computes the exact distribution of end states, ordered by
// attacker then defender hitpoints.
func (c *Combat) Outcomes() []Outcome {
	type hp struct{ a, d int }
	states := map[hp]float64{{c.Attacker.HP, c.Defender.HP}: 1}
	for _, s := range c.sequence() {
		p := float64(s.cth) / 100
		next := make(map[hp]float64, len(states)*2)
		for st, prob := range states {
			if st.a <= 0 || st.d <= 0 {
				next[st] += prob
				continue
			}
			hit := st
			if s.byAttacker {
				hit.d = max(0, st.d-s.damage)
			} else {
				hit.a = max(0, st.a-s.damage)
			}
			next[hit] += prob * p
			next[st] += prob * (1 - p)
		}
		states = next
	}
	out := make([]Outcome, 0, len(states))
	for st, prob := range states {
		if prob > 0 {
			out = append(out, Outcome{AttackerHP: st.a, DefenderHP: st.d, Probability: prob})
		}
	}
	slices.SortFunc(out, func(x, y Outcome) int {
		if c := cmp.Compare(x.AttackerHP, y.AttackerHP); c != 0 {
			return c
		}
		return cmp.Compare(x.DefenderHP, y.DefenderHP)
	})
	return out
}

// ExpectedDamage returns the mean damage dealt to the defender and taken by
// the attacker.
func (c *Combat) ExpectedDamage() (dealt, taken float64) {
	for _, o := range c.Outcomes() {
		dealt += float64(c.Defender.HP-o.DefenderHP) * o.Probability
		taken += float64(c.Attacker.HP-o.AttackerHP) * o.Probability
	}
	return dealt, taken
}

// CombatResult reports a resolved attack.
type CombatResult struct {
	AttackerHP     int
	DefenderHP     int
	AttackerKilled bool
	DefenderKilled bool
}

func killXP(level int) int {
	if level == 0 {
		return 4
	}
	return 8 * level
}

// Attack resolves att attacking the adjacent def with the given weapon
// (negative for the best one), using the world's random source. Dead units
// are removed and experience is awarded.
func (w *World) Attack(att, def *Unit, weapon int) (CombatResult, error) {
	if w.UnitByID(att.ID) != att || w.UnitByID(def.ID) != def {
		return CombatResult{}, fmt.Errorf("attack between %s and %s: unit not on the board", att.ID, def.ID)
	}
	if !w.IsEnemy(att.Side, def.Side) {
		return CombatResult{}, fmt.Errorf("unit %s is not an enemy of %s", def.ID, att.ID)
	}
	if !att.Loc().IsAdjacent(def.Loc()) {
		return CombatResult{}, fmt.Errorf("unit %s at %s is not adjacent to %s at %s", att.ID, att.Loc(), def.ID, def.Loc())
	}
	if att.AttacksLeft <= 0 {
		return CombatResult{}, fmt.Errorf("unit %s has no attacks left", att.ID)
	}
	c, err := w.PrepareCombat(att, def, att.Loc(), weapon)
	if err != nil {
		return CombatResult{}, err
	}
	for _, s := range c.sequence() {
		if att.HP <= 0 || def.HP <= 0 {
			break
		}
		if w.rng.IntN(100) >= s.cth {
			continue
		}
		if s.byAttacker {
			def.HP = max(0, def.HP-s.damage)
		} else {
			att.HP = max(0, att.HP-s.damage)
		}
	}
	att.AttacksLeft--
	att.Moves = 0
	res := CombatResult{AttackerHP: att.HP, DefenderHP: def.HP}
	switch {
	case def.HP <= 0:
		res.DefenderKilled = true
		att.XP += killXP(def.Level)
		w.RemoveUnit(def)
	case att.HP <= 0:
		res.AttackerKilled = true
		def.XP += killXP(att.Level)
		w.RemoveUnit(att)
	default:
		att.XP += max(1, def.Level)
		def.XP += max(1, att.Level)
	}
	return res, nil
}

// MaxDamage is the most damage any single attack of att can deal in one
// combat.
func MaxDamage(att *Unit) int {
	best := 0
	for _, a := range att.Attacks {
		best = max(best, a.Damage*a.Strikes)
	}
	return best
}

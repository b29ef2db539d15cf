package model

import (
	"fmt"
	"slices"
)

// Impassable is the movement cost of terrain a unit cannot enter.
const Impassable = 99

// MoveType holds the per-terrain movement costs and defense values shared
// by a family of units. Defense is the percent chance to avoid a hit.
type MoveType struct {
	Costs   [8]int
	Defense [8]int
}

var moveTypes = map[string]MoveType{
	//                   flat forest hills mountains water village castle keep
	"foot": {
		Costs:   [8]int{1, 2, 2, 3, Impassable, 1, 1, 1},
		Defense: [8]int{40, 50, 50, 60, 20, 60, 60, 60},
	},
	"mounted": {
		Costs:   [8]int{1, 3, 2, Impassable, Impassable, 1, 1, 1},
		Defense: [8]int{40, 30, 40, 0, 20, 40, 40, 40},
	},
	"elusive": {
		Costs:   [8]int{1, 2, 2, 3, 3, 1, 1, 1},
		Defense: [8]int{60, 70, 70, 70, 40, 70, 70, 70},
	},
}

// UnitType is a catalog entry used for recruiting.
type UnitType struct {
	Name     string
	MoveType string
	HP       int
	Moves    int
	MaxXP    int
	Level    int
	Cost     int
	Attacks  []Attack
}

var unitTypes = map[string]UnitType{
	"Spearman": {Name: "Spearman", MoveType: "foot", HP: 36, Moves: 5, MaxXP: 42, Level: 1, Cost: 14,
		Attacks: []Attack{{Name: "spear", Type: "pierce", Range: "melee", Damage: 7, Strikes: 3, Specials: []string{"firststrike"}}}},
	"Bowman": {Name: "Bowman", MoveType: "foot", HP: 33, Moves: 5, MaxXP: 39, Level: 1, Cost: 14,
		Attacks: []Attack{
			{Name: "short sword", Type: "blade", Range: "melee", Damage: 4, Strikes: 2},
			{Name: "bow", Type: "pierce", Range: "ranged", Damage: 6, Strikes: 3},
		}},
	"Cavalryman": {Name: "Cavalryman", MoveType: "mounted", HP: 34, Moves: 8, MaxXP: 40, Level: 1, Cost: 17,
		Attacks: []Attack{{Name: "blade", Type: "blade", Range: "melee", Damage: 6, Strikes: 3}}},
	"Thief": {Name: "Thief", MoveType: "elusive", HP: 24, Moves: 6, MaxXP: 24, Level: 1, Cost: 13,
		Attacks: []Attack{{Name: "dagger", Type: "blade", Range: "melee", Damage: 4, Strikes: 3, Specials: []string{"backstab"}}}},
	"Grunt": {Name: "Grunt", MoveType: "foot", HP: 38, Moves: 5, MaxXP: 42, Level: 1, Cost: 12,
		Attacks: []Attack{{Name: "sword", Type: "blade", Range: "melee", Damage: 9, Strikes: 2}}},
	"Lieutenant": {Name: "Lieutenant", MoveType: "foot", HP: 48, Moves: 6, MaxXP: 80, Level: 2, Cost: 35,
		Attacks: []Attack{
			{Name: "sword", Type: "blade", Range: "melee", Damage: 8, Strikes: 3},
			{Name: "crossbow", Type: "pierce", Range: "ranged", Damage: 5, Strikes: 3},
		}},
}

// LookupUnitType returns the catalog entry for name.
func LookupUnitType(name string) (UnitType, bool) {
	t, ok := unitTypes[name]
	return t, ok
}

// UnitTypeNames lists the catalog, sorted.
func UnitTypeNames() []string {
	out := make([]string, 0, len(unitTypes))
	for n := range unitTypes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// BestDamage is the largest damage x strikes over the type's attacks.
func (t UnitType) BestDamage() int {
	best := 0
	for _, a := range t.Attacks {
		best = max(best, a.Damage*a.Strikes)
	}
	return best
}

// Spawn creates a fresh unit of this type. New units cannot move or attack
// until their side's next turn.
func (t UnitType) Spawn(id string, side int, at Location) *Unit {
	return &Unit{
		ID:       id,
		Type:     t.Name,
		Side:     side,
		X:        at.X,
		Y:        at.Y,
		HP:       t.HP,
		MaxHP:    t.HP,
		MaxXP:    t.MaxXP,
		Level:    t.Level,
		MaxMoves: t.Moves,
		MoveType: t.MoveType,
		Cost:     t.Cost,
		Attacks:  slices.Clone(t.Attacks),
	}
}

func moveTypeOf(u *Unit) (MoveType, error) {
	mt, ok := moveTypes[u.MoveType]
	if !ok {
		return MoveType{}, fmt.Errorf("unit %s has unknown move type %q", u.ID, u.MoveType)
	}
	return mt, nil
}

// MoveCost is what entering terrain t costs u.
func MoveCost(u *Unit, t TerrainType) int {
	mt, err := moveTypeOf(u)
	if err != nil {
		return Impassable
	}
	return mt.Costs[t]
}

// Defense is u's percent chance to avoid a hit on terrain t.
func Defense(u *Unit, t TerrainType) int {
	mt, err := moveTypeOf(u)
	if err != nil {
		return 0
	}
	return mt.Defense[t]
}

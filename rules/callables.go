package rules

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

func strList(ss []string) formula.Value {
	out := make([]formula.Value, len(ss))
	for i, s := range ss {
		out[i] = formula.Str(s)
	}
	return formula.List(out...)
}

func locValue(l model.Location) formula.Value { return formula.Object(LocationCallable(l)) }

func locList(ls []model.Location) formula.Value {
	out := make([]formula.Value, len(ls))
	for i, l := range ls {
		out[i] = locValue(l)
	}
	return formula.List(out...)
}

// LocationCallable is a hex seen from formulas.
type LocationCallable model.Location

func (l LocationCallable) Get(key string) formula.Value {
	switch key {
	case "x":
		return formula.Int(l.X)
	case "y":
		return formula.Int(l.Y)
	}
	return formula.Null
}

func (l LocationCallable) Inputs() []string { return []string{"x", "y"} }

func (l LocationCallable) Serialize() string { return fmt.Sprintf("loc(%d, %d)", l.X, l.Y) }

func (l LocationCallable) CompareTo(other formula.Callable) (int, bool) {
	o, ok := other.(LocationCallable)
	if !ok {
		return 0, false
	}
	if c := cmp.Compare(l.X, o.X); c != 0 {
		return c, true
	}
	return cmp.Compare(l.Y, o.Y), true
}

// toLoc accepts a location object or any object with x and y attributes,
// such as a unit.
func toLoc(v formula.Value) (model.Location, error) {
	obj, err := v.AsCallable()
	if err != nil {
		return model.Location{}, err
	}
	if l, ok := obj.(LocationCallable); ok {
		return model.Location(l), nil
	}
	x, err := obj.Get("x").AsInt()
	if err != nil {
		return model.Location{}, err
	}
	y, err := obj.Get("y").AsInt()
	if err != nil {
		return model.Location{}, err
	}
	return model.Loc(x, y), nil
}

// UnitCallable exposes one unit. It holds the unit pointer, so attributes
// always reflect the unit's current state.
type UnitCallable struct {
	u *model.Unit
	s *State
}

var unitInputs = []string{
	"id", "type", "name", "side", "x", "y", "loc", "hitpoints", "max_hitpoints",
	"experience", "max_experience", "level", "moves", "max_moves", "attacks_left",
	"can_recruit", "cost", "role", "abilities", "traits", "states", "attacks", "vars",
}

func (c *UnitCallable) Get(key string) formula.Value {
	u := c.u
	switch key {
	case "id":
		return formula.Str(u.ID)
	case "type":
		return formula.Str(u.Type)
	case "name":
		return formula.Str(u.Name)
	case "side":
		return formula.Int(u.Side)
	case "x":
		return formula.Int(u.X)
	case "y":
		return formula.Int(u.Y)
	case "loc":
		return locValue(u.Loc())
	case "hitpoints":
		return formula.Int(u.HP)
	case "max_hitpoints":
		return formula.Int(u.MaxHP)
	case "experience":
		return formula.Int(u.XP)
	case "max_experience":
		return formula.Int(u.MaxXP)
	case "level":
		return formula.Int(u.Level)
	case "moves":
		return formula.Int(u.Moves)
	case "max_moves":
		return formula.Int(u.MaxMoves)
	case "attacks_left":
		return formula.Int(u.AttacksLeft)
	case "can_recruit":
		return formula.Bool(u.CanRecruit)
	case "cost":
		return formula.Int(u.Cost)
	case "role":
		return formula.Str(RoleOf(u))
	case "abilities":
		return strList(u.Abilities)
	case "traits":
		return strList(u.Traits)
	case "states":
		entries := make([]formula.MapEntry, 0, len(u.States))
		for k, v := range u.States {
			entries = append(entries, formula.MapEntry{Key: formula.Str(k), Value: formula.Bool(v)})
		}
		return formula.MapValue(formula.NewMap(entries...))
	case "attacks":
		out := make([]formula.Value, len(u.Attacks))
		for i, a := range u.Attacks {
			out[i] = formula.Object(AttackTypeCallable(a))
		}
		return formula.List(out...)
	case "vars":
		return unitVars(u, c.s.Table)
	}
	return formula.Null
}

func (c *UnitCallable) Inputs() []string { return slices.Clone(unitInputs) }

func (c *UnitCallable) CompareTo(other formula.Callable) (int, bool) {
	o, ok := other.(*UnitCallable)
	if !ok {
		return 0, false
	}
	return strings.Compare(c.u.ID, o.u.ID), true
}

// Unit returns the wrapped unit.
func (c *UnitCallable) Unit() *model.Unit { return c.u }

// unitVars parses the unit's persisted variables; unparseable text reads as
// an empty map and is logged. Host functions such as loc are available.
func unitVars(u *model.Unit, table *formula.Table) formula.Value {
	if strings.TrimSpace(u.Vars) == "" {
		return formula.MapValue(formula.NewMap())
	}
	v, err := formula.Eval(u.Vars, nil, table)
	if err == nil && v.IsMap() {
		return v
	}
	if err == nil {
		err = fmt.Errorf("unit vars are a %s, not a map", v.Kind())
	}
	LogFormulaError("unit vars unreadable", err, "unit", u.ID)
	return formula.MapValue(formula.NewMap())
}

// toUnit resolves a unit argument to the live unit in the current world.
func (s *State) toUnit(v formula.Value) (*model.Unit, error) {
	obj, err := v.AsCallable()
	if err != nil {
		return nil, err
	}
	uc, ok := obj.(*UnitCallable)
	if !ok {
		return nil, formula.Errorf(formula.TypeError, "expected a unit")
	}
	if u := s.World.UnitByID(uc.u.ID); u != nil {
		return u, nil
	}
	return uc.u, nil
}

// AttackTypeCallable is one weapon of a unit.
type AttackTypeCallable model.Attack

func (a AttackTypeCallable) Get(key string) formula.Value {
	switch key {
	case "id":
		return formula.Str(a.Name)
	case "type":
		return formula.Str(a.Type)
	case "range":
		return formula.Str(a.Range)
	case "damage":
		return formula.Int(a.Damage)
	case "number":
		return formula.Int(a.Strikes)
	case "specials":
		return strList(a.Specials)
	}
	return formula.Null
}

func (a AttackTypeCallable) Inputs() []string {
	return []string{"id", "type", "range", "damage", "number", "specials"}
}

// MoveMapCallable holds the hexes each unit of a side can end its move on.
type MoveMapCallable struct {
	s     *State
	units []*model.Unit
	reach []map[model.Location]int
}

// moves lists src -> dst pairs for every unit, destinations sorted.
func (m *MoveMapCallable) moves() []formula.Value {
	var out []formula.Value
	for i, u := range m.units {
		for _, dst := range sortedLocs(m.reach[i]) {
			if dst == u.Loc() {
				continue
			}
			out = append(out, formula.Object(&MoveCommand{Src: u.Loc(), Dst: dst}))
		}
	}
	return out
}

func (m *MoveMapCallable) Get(key string) formula.Value {
	switch key {
	case "moves":
		return formula.List(m.moves()...)
	case "src":
		out := make([]formula.Value, len(m.units))
		for i, u := range m.units {
			out[i] = locValue(u.Loc())
		}
		return formula.List(out...)
	case "dst":
		seen := map[model.Location]bool{}
		for _, r := range m.reach {
			for l := range r {
				seen[l] = true
			}
		}
		return locList(sortedLocs(seen))
	}
	return formula.Null
}

func (m *MoveMapCallable) Inputs() []string { return []string{"moves", "src", "dst"} }

// destinations returns the hexes u can reach, or nil when u is not in the map.
func (m *MoveMapCallable) destinations(u *model.Unit) map[model.Location]int {
	for i, mu := range m.units {
		if mu.ID == u.ID {
			return m.reach[i]
		}
	}
	return nil
}

func sortedLocs[V any](set map[model.Location]V) []model.Location {
	out := make([]model.Location, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b model.Location) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	return out
}

// TeamCallable exposes a side's public state.
type TeamCallable struct {
	side model.Side
	s    *State
}

func (t *TeamCallable) Get(key string) formula.Value {
	switch key {
	case "side":
		return formula.Int(t.side.Number)
	case "name":
		return formula.Str(t.side.Name)
	case "team":
		return formula.Str(t.side.Team)
	case "gold":
		return formula.Int(t.side.Gold)
	case "recruits":
		return strList(t.side.Recruits)
	case "is_enemy":
		return formula.Bool(t.s.World.IsEnemy(t.s.Side, t.side.Number))
	case "villages":
		return formula.Int(len(t.s.World.SideVillages(t.side.Number)))
	}
	return formula.Null
}

func (t *TeamCallable) Inputs() []string {
	return []string{"side", "name", "team", "gold", "recruits", "is_enemy", "villages"}
}

// TerrainCallable is one hex of the map.
type TerrainCallable struct {
	loc model.Location
	t   model.TerrainType
}

func (t TerrainCallable) Get(key string) formula.Value {
	switch key {
	case "x":
		return formula.Int(t.loc.X)
	case "y":
		return formula.Int(t.loc.Y)
	case "loc":
		return locValue(t.loc)
	case "id":
		return formula.Str(t.t.String())
	case "code":
		return formula.Str(string(t.t.Code()))
	}
	return formula.Null
}

func (t TerrainCallable) Inputs() []string { return []string{"x", "y", "loc", "id", "code"} }

// GameMapCallable is the whole board.
type GameMapCallable struct {
	grid *model.TerrainGrid
}

func (g GameMapCallable) Get(key string) formula.Value {
	switch key {
	case "w":
		return formula.Int(g.grid.Cols)
	case "h":
		return formula.Int(g.grid.Rows)
	case "terrain":
		out := make([]formula.Value, 0, g.grid.Cols*g.grid.Rows)
		for y := 0; y < g.grid.Rows; y++ {
			for x := 0; x < g.grid.Cols; x++ {
				l := model.Loc(x, y)
				out = append(out, formula.Object(TerrainCallable{loc: l, t: g.grid.At(l)}))
			}
		}
		return formula.List(out...)
	}
	return formula.Null
}

func (g GameMapCallable) Inputs() []string { return []string{"w", "h", "terrain"} }

// UnitTypeCallable describes a recruitable type.
type UnitTypeCallable model.UnitType

func (t UnitTypeCallable) Get(key string) formula.Value {
	switch key {
	case "id", "type":
		return formula.Str(t.Name)
	case "hitpoints":
		return formula.Int(t.HP)
	case "moves":
		return formula.Int(t.Moves)
	case "level":
		return formula.Int(t.Level)
	case "cost":
		return formula.Int(t.Cost)
	case "movement_type":
		return formula.Str(t.MoveType)
	case "attacks":
		out := make([]formula.Value, len(t.Attacks))
		for i, a := range t.Attacks {
			out[i] = formula.Object(AttackTypeCallable(a))
		}
		return formula.List(out...)
	}
	return formula.Null
}

func (t UnitTypeCallable) Inputs() []string {
	return []string{"id", "type", "hitpoints", "moves", "level", "cost", "movement_type", "attacks"}
}

// PositionCallable is a hypothetical world produced by outcomes(). Its
// attributes are evaluated through evaluate_for_position.
type PositionCallable struct {
	world       *model.World
	probability float64
	attackerHP  int
	defenderHP  int
}

func (p *PositionCallable) Get(key string) formula.Value {
	switch key {
	case "probability":
		return formula.DecFromFloat(p.probability)
	case "attacker_hp":
		return formula.Int(p.attackerHP)
	case "defender_hp":
		return formula.Int(p.defenderHP)
	}
	return formula.Null
}

func (p *PositionCallable) Inputs() []string {
	return []string{"probability", "attacker_hp", "defender_hp"}
}

// AICallable is the root context of every AI formula.
type AICallable struct {
	s *State
}

var aiInputs = []string{
	"side", "turn", "gold", "my_units", "enemy_units", "allies", "units", "my_leader",
	"my_recruits", "villages", "my_villages", "enemy_and_unowned_villages", "keeps",
	"teams", "map", "my_moves", "enemy_moves", "my_attacks", "vars",
}

func (a *AICallable) Get(key string) formula.Value {
	s := a.s
	w := s.World
	switch key {
	case "side":
		return formula.Int(s.Side)
	case "turn":
		return formula.Int(w.Turn)
	case "gold":
		if side := w.Side(s.Side); side != nil {
			return formula.Int(side.Gold)
		}
		return formula.Int(0)
	case "my_units":
		return s.units(w.SideUnits(s.Side))
	case "enemy_units":
		return s.units(w.EnemyUnits(s.Side))
	case "allies":
		var out []*model.Unit
		for _, u := range w.Units {
			if u.Side != s.Side && !w.IsEnemy(s.Side, u.Side) {
				out = append(out, u)
			}
		}
		return s.units(out)
	case "units":
		return s.units(w.Units)
	case "my_leader":
		return s.unit(w.Leader(s.Side))
	case "my_recruits":
		var out []formula.Value
		if side := w.Side(s.Side); side != nil {
			for _, name := range side.Recruits {
				if ut, ok := model.LookupUnitType(name); ok {
					out = append(out, formula.Object(UnitTypeCallable(ut)))
				}
			}
		}
		return formula.List(out...)
	case "villages":
		out := make([]model.Location, len(w.Villages))
		for i, v := range w.Villages {
			out[i] = model.Loc(v.X, v.Y)
		}
		return locList(out)
	case "my_villages":
		return locList(w.SideVillages(s.Side))
	case "enemy_and_unowned_villages":
		var out []model.Location
		for _, v := range w.Villages {
			if v.Owner == 0 || w.IsEnemy(s.Side, v.Owner) {
				out = append(out, model.Loc(v.X, v.Y))
			}
		}
		return locList(out)
	case "keeps":
		return locList(w.Keeps())
	case "teams":
		out := make([]formula.Value, len(w.Sides))
		for i, side := range w.Sides {
			out[i] = formula.Object(&TeamCallable{side: side, s: s})
		}
		return formula.List(out...)
	case "map":
		return formula.Object(GameMapCallable{grid: w.Map})
	case "my_moves":
		return formula.Object(s.moveMap(false))
	case "enemy_moves":
		return formula.Object(s.moveMap(true))
	case "my_attacks":
		return formula.List(s.attackAnalyses()...)
	case "vars":
		return formula.MapValue(s.Vars)
	}
	return formula.Null
}

func (a *AICallable) Inputs() []string { return slices.Clone(aiInputs) }

package rules

import (
	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

// registerHostFunctions fills the state's table with the functions that
// build commands and query the world. Every function closes over s and
// reads s.World at call time, so hypothetical worlds installed by
// evaluate_for_position are seen.
func registerHostFunctions(s *State) {
	fn := func(name string, lo, hi int, f func(args []formula.Value) (formula.Value, error)) *formula.Function {
		return &formula.Function{Name: name, MinArgs: lo, MaxArgs: hi, Eval: formula.Eager(f)}
	}
	s.Table.Register(
		// commands
		fn("move", 2, 2, s.fnMove),
		fn("attack", 3, 4, s.fnAttack),
		fn("recruit", 1, 2, s.fnRecruit),
		fn("set_var", 2, 2, s.fnSetVar),
		fn("set_unit_var", 3, 3, s.fnSetUnitVar),
		fn("fallback", 0, 1, s.fnFallback),

		// queries
		fn("loc", 2, 2, fnLoc),
		fn("unit_at", 1, 1, s.fnUnitAt),
		fn("unit_moves", 1, 1, s.fnUnitMoves),
		fn("units_can_reach", 2, 2, s.fnUnitsCanReach),
		fn("defense_on", 2, 2, s.fnDefenseOn),
		fn("chance_to_hit", 2, 2, s.fnChanceToHit),
		fn("max_possible_damage", 2, 2, s.fnMaxPossibleDamage),
		fn("distance_between", 2, 2, fnDistanceBetween),
		fn("distance_to_nearest_unowned_village", 1, 1, s.fnDistanceToNearestUnownedVillage),
		fn("nearest_unowned_village", 1, 1, s.fnNearestUnownedVillage),
		fn("nearest_keep", 1, 1, s.fnNearestKeep),
		fn("castle_hexes", 1, 1, s.fnCastleHexes),
		fn("adjacent_locs", 1, 1, s.fnAdjacentLocs),
		fn("nearest_loc", 2, 2, fnNearestLoc),
		fn("close_enemies", 2, 2, s.fnCloseEnemies),
		fn("is_village", 1, 1, s.fnIsVillage),
		fn("shortest_path", 2, 2, s.fnShortestPath),
		fn("best_attack_loc", 2, 2, s.fnBestAttackLoc),

		// hypotheticals
		fn("outcomes", 1, 1, s.fnOutcomes),
		&formula.Function{Name: "evaluate_for_position", MinArgs: 2, MaxArgs: 2, Eval: s.evaluateForPosition},
	)
}

func (s *State) fnMove(args []formula.Value) (formula.Value, error) {
	src, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	dst, err := toLoc(args[1])
	if err != nil {
		return formula.Null, err
	}
	return formula.Object(&MoveCommand{Src: src, Dst: dst}), nil
}

// attack(move_from, src, dst, [weapon])
func (s *State) fnAttack(args []formula.Value) (formula.Value, error) {
	var locs [3]model.Location
	for i := range locs {
		l, err := toLoc(args[i])
		if err != nil {
			return formula.Null, err
		}
		locs[i] = l
	}
	weapon := -1
	if len(args) == 4 && !args[3].IsNull() {
		n, err := args[3].AsInt()
		if err != nil {
			return formula.Null, err
		}
		weapon = n
	}
	return formula.Object(&AttackCommand{MoveFrom: locs[0], Src: locs[1], Dst: locs[2], Weapon: weapon}), nil
}

func (s *State) fnRecruit(args []formula.Value) (formula.Value, error) {
	typ, err := args[0].AsString()
	if err != nil {
		return formula.Null, err
	}
	c := &RecruitCommand{Type: typ}
	if len(args) == 2 && !args[1].IsNull() {
		l, err := toLoc(args[1])
		if err != nil {
			return formula.Null, err
		}
		c.Loc = &l
	}
	return formula.Object(c), nil
}

func (s *State) fnSetVar(args []formula.Value) (formula.Value, error) {
	key, err := args[0].AsString()
	if err != nil {
		return formula.Null, err
	}
	return formula.Object(&SetVarCommand{Key: key, Value: args[1]}), nil
}

func (s *State) fnSetUnitVar(args []formula.Value) (formula.Value, error) {
	key, err := args[0].AsString()
	if err != nil {
		return formula.Null, err
	}
	l, err := toLoc(args[2])
	if err != nil {
		return formula.Null, err
	}
	return formula.Object(&SetUnitVarCommand{Key: key, Value: args[1], Loc: l}), nil
}

func (s *State) fnFallback(args []formula.Value) (formula.Value, error) {
	name := "default"
	if len(args) == 1 {
		n, err := args[0].AsString()
		if err != nil {
			return formula.Null, err
		}
		if n != "" {
			name = n
		}
	}
	return formula.Object(&FallbackCommand{Engine: name}), nil
}

func fnLoc(args []formula.Value) (formula.Value, error) {
	x, err := args[0].AsInt()
	if err != nil {
		return formula.Null, err
	}
	y, err := args[1].AsInt()
	if err != nil {
		return formula.Null, err
	}
	return locValue(model.Loc(x, y)), nil
}

func (s *State) fnUnitAt(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	return s.unit(s.World.UnitAt(l)), nil
}

// unit_moves(unit) lists the hexes the unit can move to this turn.
func (s *State) fnUnitMoves(args []formula.Value) (formula.Value, error) {
	u, err := s.toUnit(args[0])
	if err != nil {
		return formula.Null, err
	}
	reach := s.World.Reach(u)
	delete(reach, u.Loc())
	return locList(sortedLocs(reach)), nil
}

// units_can_reach(move_map, loc)
func (s *State) fnUnitsCanReach(args []formula.Value) (formula.Value, error) {
	obj, err := args[0].AsCallable()
	if err != nil {
		return formula.Null, err
	}
	m, ok := obj.(*MoveMapCallable)
	if !ok {
		return formula.Null, formula.Errorf(formula.TypeError, "units_can_reach expects a move map")
	}
	l, err := toLoc(args[1])
	if err != nil {
		return formula.Null, err
	}
	var out []*model.Unit
	for i, u := range m.units {
		if _, ok := m.reach[i][l]; ok {
			out = append(out, u)
		}
	}
	return s.units(out), nil
}

func (s *State) unitAndLoc(args []formula.Value) (*model.Unit, model.Location, error) {
	u, err := s.toUnit(args[0])
	if err != nil {
		return nil, model.Location{}, err
	}
	l, err := toLoc(args[1])
	return u, l, err
}

func (s *State) fnDefenseOn(args []formula.Value) (formula.Value, error) {
	u, l, err := s.unitAndLoc(args)
	if err != nil {
		return formula.Null, err
	}
	return formula.Int(model.Defense(u, s.World.Map.At(l))), nil
}

func (s *State) fnChanceToHit(args []formula.Value) (formula.Value, error) {
	u, l, err := s.unitAndLoc(args)
	if err != nil {
		return formula.Null, err
	}
	return formula.Int(s.World.ChanceToHit(u, l)), nil
}

// max_possible_damage(attacker, defender) is the damage dealt if every
// strike of the attacker's strongest attack lands, capped at the
// defender's hitpoints.
func (s *State) fnMaxPossibleDamage(args []formula.Value) (formula.Value, error) {
	att, err := s.toUnit(args[0])
	if err != nil {
		return formula.Null, err
	}
	def, err := s.toUnit(args[1])
	if err != nil {
		return formula.Null, err
	}
	return formula.Int(min(model.MaxDamage(att), def.HP)), nil
}

func fnDistanceBetween(args []formula.Value) (formula.Value, error) {
	a, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	b, err := toLoc(args[1])
	if err != nil {
		return formula.Null, err
	}
	return formula.Int(model.Distance(a, b)), nil
}

func (s *State) fnDistanceToNearestUnownedVillage(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	v, ok := s.World.NearestUnownedVillage(l, s.Side)
	if !ok {
		return formula.Null, nil
	}
	return formula.Int(model.Distance(l, v)), nil
}

func (s *State) fnNearestUnownedVillage(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	v, ok := s.World.NearestUnownedVillage(l, s.Side)
	if !ok {
		return formula.Null, nil
	}
	return locValue(v), nil
}

func (s *State) fnNearestKeep(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	k, ok := s.World.NearestKeep(l)
	if !ok {
		return formula.Null, nil
	}
	return locValue(k), nil
}

func (s *State) fnCastleHexes(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	return locList(s.World.CastleOf(l)), nil
}

func (s *State) fnAdjacentLocs(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	var out []model.Location
	for _, n := range l.Adjacent() {
		if s.World.Map.OnMap(n) {
			out = append(out, n)
		}
	}
	return locList(out), nil
}

// nearest_loc(loc, list) returns the element of list closest to loc. Ties
// keep the earlier element.
func fnNearestLoc(args []formula.Value) (formula.Value, error) {
	from, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	items, err := args[1].AsList()
	if err != nil {
		return formula.Null, err
	}
	best, bestDist := formula.Null, -1
	for _, item := range items {
		l, err := toLoc(item)
		if err != nil {
			return formula.Null, err
		}
		if d := model.Distance(from, l); bestDist < 0 || d < bestDist {
			best, bestDist = locValue(l), d
		}
	}
	return best, nil
}

// close_enemies(loc, distance) lists enemy units within distance of loc.
func (s *State) fnCloseEnemies(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	dist, err := args[1].AsInt()
	if err != nil {
		return formula.Null, err
	}
	var out []*model.Unit
	for _, e := range s.World.EnemyUnits(s.Side) {
		if model.Distance(l, e.Loc()) <= dist {
			out = append(out, e)
		}
	}
	return s.units(out), nil
}

func (s *State) fnIsVillage(args []formula.Value) (formula.Value, error) {
	l, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	return formula.Bool(s.World.IsVillage(l)), nil
}

// shortest_path(src, dst) is the route of the unit on src, excluding src.
func (s *State) fnShortestPath(args []formula.Value) (formula.Value, error) {
	src, err := toLoc(args[0])
	if err != nil {
		return formula.Null, err
	}
	dst, err := toLoc(args[1])
	if err != nil {
		return formula.Null, err
	}
	u := s.World.UnitAt(src)
	if u == nil {
		return formula.Null, formula.Errorf(formula.RuntimeError, "shortest_path: no unit at %s", src)
	}
	path := s.World.ShortestPath(u, dst)
	if len(path) > 0 {
		path = path[1:]
	}
	return locList(path), nil
}

// best_attack_loc(me, target) is the reachable hex next to target where me
// is hardest to hit, or null.
func (s *State) fnBestAttackLoc(args []formula.Value) (formula.Value, error) {
	att, err := s.toUnit(args[0])
	if err != nil {
		return formula.Null, err
	}
	def, err := s.toUnit(args[1])
	if err != nil {
		return formula.Null, err
	}
	l, ok := bestAttackHex(s.World, att, def, s.World.Reach(att))
	if !ok {
		return formula.Null, nil
	}
	return locValue(l), nil
}

// outcomes(attack) branches an attack into the positions it can end in,
// one per distinct result, each with its probability.
func (s *State) fnOutcomes(args []formula.Value) (formula.Value, error) {
	obj, err := args[0].AsCallable()
	if err != nil {
		return formula.Null, err
	}
	var c *AttackCommand
	switch a := obj.(type) {
	case *AttackCommand:
		c = a
	case *AttackAnalysis:
		if len(a.Attacks) == 0 {
			return formula.List(), nil
		}
		c = a.Attacks[0]
	default:
		return formula.Null, formula.Errorf(formula.TypeError, "outcomes expects an attack")
	}
	w := s.World
	att, def := w.UnitAt(c.MoveFrom), w.UnitAt(c.Dst)
	if att == nil || def == nil {
		return formula.List(), nil
	}
	combat, err := w.PrepareCombat(att, def, c.Src, c.Weapon)
	if err != nil {
		return formula.Null, formula.Errorf(formula.RuntimeError, "outcomes: %v", err)
	}
	var out []formula.Value
	for _, o := range combat.Outcomes() {
		pos := w.Clone()
		a, d := pos.UnitByID(att.ID), pos.UnitByID(def.ID)
		a.X, a.Y = c.Src.X, c.Src.Y
		a.HP, d.HP = o.AttackerHP, o.DefenderHP
		a.AttacksLeft, a.Moves = max(0, a.AttacksLeft-1), 0
		if a.HP <= 0 {
			pos.RemoveUnit(a)
		}
		if d.HP <= 0 {
			pos.RemoveUnit(d)
		}
		out = append(out, formula.Object(&PositionCallable{
			world:       pos,
			probability: o.Probability,
			attackerHP:  o.AttackerHP,
			defenderHP:  o.DefenderHP,
		}))
	}
	return formula.List(out...), nil
}

// evaluate_for_position(position, expr) evaluates expr with the position's
// world installed, then restores the real one.
func (s *State) evaluateForPosition(ctx formula.Callable, args []formula.Expression) (formula.Value, error) {
	v, err := args[0].Evaluate(ctx)
	if err != nil {
		return formula.Null, err
	}
	obj, err := v.AsCallable()
	if err != nil {
		return formula.Null, err
	}
	pos, ok := obj.(*PositionCallable)
	if !ok {
		return formula.Null, formula.Errorf(formula.TypeError, "evaluate_for_position expects a position")
	}
	old := s.swapWorld(pos.world)
	defer s.swapWorld(old)
	return args[1].Evaluate(ctx)
}

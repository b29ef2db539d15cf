package rules

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

// Command is a formula result the host knows how to apply. Apply
// re-checks its preconditions against the current world and reports
// whether anything changed; a command whose preconditions no longer hold is
// skipped without error. A returned error is a host failure, not a script
// one.
type Command interface {
	formula.Callable
	formula.Serializer
	Apply(s *State) (bool, error)
}

// MoveCommand moves the unit on Src toward Dst.
type MoveCommand struct {
	Src, Dst model.Location
}

func (c *MoveCommand) Get(key string) formula.Value {
	switch key {
	case "src":
		return locValue(c.Src)
	case "dst":
		return locValue(c.Dst)
	}
	return formula.Null
}

func (c *MoveCommand) Inputs() []string { return []string{"src", "dst"} }

func (c *MoveCommand) Serialize() string {
	return fmt.Sprintf("move(%s, %s)", LocationCallable(c.Src).Serialize(), LocationCallable(c.Dst).Serialize())
}

func (c *MoveCommand) Apply(s *State) (bool, error) {
	u := s.World.UnitAt(c.Src)
	if u == nil || u.Side != s.Side {
		slog.Debug("move skipped: no unit of ours at source", "src", c.Src)
		return false, nil
	}
	if u.Moves <= 0 {
		slog.Debug("move skipped: unit has no moves left", "unit", u.ID)
		return false, nil
	}
	res, err := s.World.MoveUnit(u, c.Dst)
	if err != nil {
		return false, fmt.Errorf("move %s: %w", u.ID, err)
	}
	slog.Debug("unit moved", "unit", u.ID, "from", res.From, "to", res.To, "captured", res.Captured)
	return true, nil
}

// AttackCommand moves the unit on MoveFrom to Src and attacks the unit on
// Dst. Weapon is an index into the attacker's attacks, negative for the
// best one.
type AttackCommand struct {
	MoveFrom model.Location
	Src      model.Location
	Dst      model.Location
	Weapon   int
}

func (c *AttackCommand) Get(key string) formula.Value {
	switch key {
	case "move_from":
		return locValue(c.MoveFrom)
	case "src":
		return locValue(c.Src)
	case "dst":
		return locValue(c.Dst)
	case "weapon":
		return formula.Int(c.Weapon)
	}
	return formula.Null
}

func (c *AttackCommand) Inputs() []string { return []string{"move_from", "src", "dst", "weapon"} }

func (c *AttackCommand) Serialize() string {
	return fmt.Sprintf("attack(%s, %s, %s, %d)", LocationCallable(c.MoveFrom).Serialize(),
		LocationCallable(c.Src).Serialize(), LocationCallable(c.Dst).Serialize(), c.Weapon)
}

func (c *AttackCommand) Apply(s *State) (bool, error) {
	w := s.World
	att := w.UnitAt(c.MoveFrom)
	def := w.UnitAt(c.Dst)
	switch {
	case att == nil || att.Side != s.Side:
		slog.Debug("attack skipped: no unit of ours at source", "src", c.MoveFrom)
		return false, nil
	case att.AttacksLeft <= 0:
		slog.Debug("attack skipped: no attacks left", "unit", att.ID)
		return false, nil
	case def == nil || !w.IsEnemy(s.Side, def.Side):
		slog.Debug("attack skipped: no enemy at target", "dst", c.Dst)
		return false, nil
	case !c.Src.IsAdjacent(c.Dst):
		slog.Debug("attack skipped: attack hex not adjacent to target", "src", c.Src, "dst", c.Dst)
		return false, nil
	case c.Weapon >= len(att.Attacks):
		slog.Debug("attack skipped: no such weapon", "unit", att.ID, "weapon", c.Weapon)
		return false, nil
	}
	if c.Src != c.MoveFrom {
		if _, ok := w.Reach(att)[c.Src]; !ok {
			slog.Debug("attack skipped: attack hex out of reach", "unit", att.ID, "src", c.Src)
			return false, nil
		}
		if _, err := w.MoveUnit(att, c.Src); err != nil {
			return false, fmt.Errorf("move %s before attack: %w", att.ID, err)
		}
	}
	res, err := w.Attack(att, def, c.Weapon)
	if err != nil {
		return true, fmt.Errorf("attack %s on %s: %w", att.ID, def.ID, err)
	}
	slog.Debug("attack resolved", "attacker", att.ID, "defender", def.ID,
		"attacker_hp", res.AttackerHP, "defender_hp", res.DefenderHP)
	return true, nil
}

// RecruitCommand recruits Type on Loc, or on the first free castle hex
// when Loc is nil.
type RecruitCommand struct {
	Type string
	Loc  *model.Location
}

func (c *RecruitCommand) Get(key string) formula.Value {
	switch key {
	case "type":
		return formula.Str(c.Type)
	case "loc":
		if c.Loc == nil {
			return formula.Null
		}
		return locValue(*c.Loc)
	}
	return formula.Null
}

func (c *RecruitCommand) Inputs() []string { return []string{"type", "loc"} }

func (c *RecruitCommand) Serialize() string {
	if c.Loc == nil {
		return fmt.Sprintf("recruit('%s')", c.Type)
	}
	return fmt.Sprintf("recruit('%s', %s)", c.Type, LocationCallable(*c.Loc).Serialize())
}

func (c *RecruitCommand) Apply(s *State) (bool, error) {
	hexes := FreeCastleHexes(s)
	if len(hexes) == 0 {
		slog.Debug("recruit skipped: leader not on a keep with free castle", "type", c.Type)
		return false, nil
	}
	at := hexes[0]
	if c.Loc != nil {
		if !slices.Contains(hexes, *c.Loc) {
			slog.Debug("recruit skipped: hex is not a free castle hex", "type", c.Type, "loc", *c.Loc)
			return false, nil
		}
		at = *c.Loc
	}
	side := s.World.Side(s.Side)
	ut, ok := model.LookupUnitType(c.Type)
	if side == nil || !ok || !slices.Contains(side.Recruits, c.Type) || side.Gold < ut.Cost {
		slog.Debug("recruit skipped: type not recruitable or not affordable", "type", c.Type)
		return false, nil
	}
	u, err := s.World.Recruit(s.Side, c.Type, at)
	if err != nil {
		return false, fmt.Errorf("recruit %s: %w", c.Type, err)
	}
	slog.Debug("unit recruited", "unit", u.ID, "loc", at)
	return true, nil
}

// FreeCastleHexes lists the empty castle hexes around the keep the side's
// leader stands on.
func FreeCastleHexes(s *State) []model.Location {
	w := s.World
	leader := w.Leader(s.Side)
	if leader == nil {
		return nil
	}
	var out []model.Location
	for _, l := range w.CastleOf(leader.Loc()) {
		if w.UnitAt(l) == nil {
			out = append(out, l)
		}
	}
	return out
}

// SetVarCommand writes into the AI's variable store.
type SetVarCommand struct {
	Key   string
	Value formula.Value
}

func (c *SetVarCommand) Get(key string) formula.Value {
	switch key {
	case "key":
		return formula.Str(c.Key)
	case "value":
		return c.Value
	}
	return formula.Null
}

func (c *SetVarCommand) Inputs() []string { return []string{"key", "value"} }

func (c *SetVarCommand) Serialize() string {
	v, err := c.Value.Serialize()
	if err != nil {
		v = "null()"
	}
	return fmt.Sprintf("set_var('%s', %s)", c.Key, v)
}

// Apply reports a change only when the stored value differs.
func (c *SetVarCommand) Apply(s *State) (bool, error) {
	key := formula.Str(c.Key)
	if old, ok := s.Vars.Get(key); ok && formula.Equal(old, c.Value) {
		return false, nil
	}
	s.Vars = s.Vars.With(key, c.Value)
	return true, nil
}

// SetUnitVarCommand writes into the variables of the unit on Loc.
type SetUnitVarCommand struct {
	Key   string
	Value formula.Value
	Loc   model.Location
}

func (c *SetUnitVarCommand) Get(key string) formula.Value {
	switch key {
	case "key":
		return formula.Str(c.Key)
	case "value":
		return c.Value
	case "loc":
		return locValue(c.Loc)
	}
	return formula.Null
}

func (c *SetUnitVarCommand) Inputs() []string { return []string{"key", "value", "loc"} }

func (c *SetUnitVarCommand) Serialize() string {
	v, err := c.Value.Serialize()
	if err != nil {
		v = "null()"
	}
	return fmt.Sprintf("set_unit_var('%s', %s, %s)", c.Key, v, LocationCallable(c.Loc).Serialize())
}

func (c *SetUnitVarCommand) Apply(s *State) (bool, error) {
	u := s.World.UnitAt(c.Loc)
	if u == nil || u.Side != s.Side {
		slog.Debug("set_unit_var skipped: no unit of ours", "loc", c.Loc)
		return false, nil
	}
	vars, err := unitVars(u, s.Table).AsMap()
	if err != nil {
		return false, err
	}
	key := formula.Str(c.Key)
	if old, ok := vars.Get(key); ok && formula.Equal(old, c.Value) {
		return false, nil
	}
	text, err := formula.MapValue(vars.With(key, c.Value)).Serialize()
	if err != nil {
		// Objects that cannot be written out are a script mistake.
		return false, err
	}
	u.Vars = text
	return true, nil
}

// FallbackCommand hands the rest of the turn to another engine.
type FallbackCommand struct {
	Engine string
}

func (c *FallbackCommand) Get(key string) formula.Value {
	if key == "name" {
		return formula.Str(c.Engine)
	}
	return formula.Null
}

func (c *FallbackCommand) Inputs() []string { return []string{"name"} }

func (c *FallbackCommand) Serialize() string { return fmt.Sprintf("fallback('%s')", c.Engine) }

// AttackAnalysis is a rated attack plan on one target. Only its first step
// is executed per cycle, so the plan is re-rated after every exchange.
type AttackAnalysis struct {
	Target       *model.Unit
	Movements    []*MoveCommand
	Attacks      []*AttackCommand
	ChanceToKill float64
	AvgInflicted float64
	AvgTaken     float64
	TargetValue  int
	Rating       float64

	s *State
}

func (a *AttackAnalysis) Get(key string) formula.Value {
	switch key {
	case "target":
		return a.s.unit(a.Target)
	case "movements":
		out := make([]formula.Value, len(a.Movements))
		for i, m := range a.Movements {
			out[i] = formula.Object(m)
		}
		return formula.List(out...)
	case "attacks":
		out := make([]formula.Value, len(a.Attacks))
		for i, c := range a.Attacks {
			out[i] = formula.Object(c)
		}
		return formula.List(out...)
	case "chance_to_kill":
		return formula.DecFromFloat(a.ChanceToKill)
	case "avg_damage_inflicted":
		return formula.DecFromFloat(a.AvgInflicted)
	case "avg_damage_taken":
		return formula.DecFromFloat(a.AvgTaken)
	case "target_value":
		return formula.Int(a.TargetValue)
	case "rating":
		return formula.DecFromFloat(a.Rating)
	}
	return formula.Null
}

func (a *AttackAnalysis) Inputs() []string {
	return []string{"target", "movements", "attacks", "chance_to_kill", "avg_damage_inflicted",
		"avg_damage_taken", "target_value", "rating"}
}

// Serialize writes the first step, which is what Apply executes.
func (a *AttackAnalysis) Serialize() string {
	if len(a.Attacks) == 0 {
		return "null()"
	}
	return a.Attacks[0].Serialize()
}

func (a *AttackAnalysis) Apply(s *State) (bool, error) {
	if len(a.Attacks) == 0 {
		return false, nil
	}
	return a.Attacks[0].Apply(s)
}

// attackAnalyses rates every single-unit attack the side can make this
// turn: each unit with an attack left against each enemy it can reach,
// from the reachable adjacent hex with the best defense.
func (s *State) attackAnalyses() []formula.Value {
	if s.scanned {
		return s.attacks
	}
	s.scanned = true
	s.attacks = nil
	w := s.World
	moves := s.moveMap(false)
	for _, att := range w.SideUnits(s.Side) {
		if att.AttacksLeft <= 0 || len(att.Attacks) == 0 {
			continue
		}
		reach := moves.destinations(att)
		for _, def := range w.EnemyUnits(s.Side) {
			from, ok := bestAttackHex(w, att, def, reach)
			if !ok {
				continue
			}
			if a := s.analyze(att, def, from); a != nil {
				s.attacks = append(s.attacks, formula.Object(a))
			}
		}
	}
	return s.attacks
}

// AttackOptions returns the rated attacks of this turn, best first.
func (s *State) AttackOptions() []*AttackAnalysis {
	vals := s.attackAnalyses()
	out := make([]*AttackAnalysis, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.Callable().(*AttackAnalysis))
	}
	slices.SortStableFunc(out, func(a, b *AttackAnalysis) int { return cmp.Compare(b.Rating, a.Rating) })
	return out
}

// bestAttackHex picks the hex adjacent to def, reachable by att, on which
// att is hardest to hit. Ties go to the hex closest to att.
func bestAttackHex(w *model.World, att, def *model.Unit, reach map[model.Location]int) (model.Location, bool) {
	var best model.Location
	found := false
	bestCTH, bestDist := 0, 0
	for _, l := range def.Loc().Adjacent() {
		if _, ok := reach[l]; !ok {
			continue
		}
		cth, dist := w.ChanceToHit(att, l), model.Distance(att.Loc(), l)
		if !found || cth < bestCTH || (cth == bestCTH && dist < bestDist) {
			best, bestCTH, bestDist, found = l, cth, dist, true
		}
	}
	return best, found
}

func (s *State) analyze(att, def *model.Unit, from model.Location) *AttackAnalysis {
	c, err := s.World.PrepareCombat(att, def, from, -1)
	if err != nil {
		return nil
	}
	a := &AttackAnalysis{Target: def, TargetValue: def.Cost, s: s}
	if def.CanRecruit {
		a.TargetValue *= 3
	}
	for _, o := range c.Outcomes() {
		if o.DefenderHP == 0 {
			a.ChanceToKill += o.Probability
		}
	}
	a.AvgInflicted, a.AvgTaken = c.ExpectedDamage()
	if from != att.Loc() {
		a.Movements = []*MoveCommand{{Src: att.Loc(), Dst: from}}
	}
	a.Attacks = []*AttackCommand{{MoveFrom: att.Loc(), Src: from, Dst: def.Loc(), Weapon: c.AttackerWeapon}}
	caution := 1 - s.Doctrine.Aggression
	a.Rating = a.ChanceToKill*float64(a.TargetValue) + a.AvgInflicted - caution*a.AvgTaken
	return a
}

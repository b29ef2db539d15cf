package rules

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/vimy/vimy-formula/formula"
)

// Gate is a compiled stage condition. A nil Gate is always open.
type Gate struct {
	src     string
	program *vm.Program
}

// CompileGate compiles an expr condition over TurnEnv. Blank source yields
// a nil gate.
func CompileGate(src string) (*Gate, error) {
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.Env(TurnEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", src, err)
	}
	return &Gate{src: src, program: prog}, nil
}

// Open runs the condition against env.
func (g *Gate) Open(env TurnEnv) (bool, error) {
	if g == nil {
		return true, nil
	}
	out, err := vm.Run(g.program, env)
	if err != nil {
		return false, fmt.Errorf("run condition %q: %w", g.src, err)
	}
	open, _ := out.(bool)
	return open, nil
}

func (g *Gate) String() string {
	if g == nil {
		return ""
	}
	return g.src
}

// Scores of the fixed candidate actions.
const (
	leaderToKeepScore = 80
)

func inline(format string, args ...any) formula.Source {
	return formula.Source{Text: fmt.Sprintf(format, args...)}
}

// CompileDoctrine generates the built-in candidate actions from a
// doctrine's weights. All formulas are built via fmt.Sprintf with
// interpolated numbers, so they always parse.
func CompileDoctrine(d Doctrine) []CandidateSpec {
	d.Validate()
	retreatPct := lerp(20, 60, d.Caution)
	notLeader := formula.Source{Text: "filter(input, not can_recruit)"}
	var specs []CandidateSpec

	specs = append(specs, CandidateSpec{
		Name:       "leader-to-keep",
		Type:       TypeMovement,
		Evaluation: inline("if(k and k != me.loc, %d, 0) where k = nearest_keep(me.loc)", leaderToKeepScore),
		Action:     inline("move(me.loc, nearest_keep(me.loc))"),
		Filters:    map[string]formula.Source{"me": {Text: "filter(input, can_recruit)"}},
	})

	// Leaders only join attacks under an aggressive doctrine.
	attack := CandidateSpec{
		Name: "attack",
		Type: TypeAttack,
		Evaluation: inline(
			"%d + if(dmg >= target.hitpoints, target.cost, dmg) - if(me.hitpoints * 100 < me.max_hitpoints * %d, %d, 0) where dmg = max_possible_damage(me, target)",
			lerp(10, 50, d.Aggression), retreatPct, lerp(10, 60, d.Caution)),
		Action: inline("attack(me.loc, best_attack_loc(me, target), target.loc)"),
	}
	if d.Aggression < 0.8 {
		attack.Filters = map[string]formula.Source{"me": notLeader}
	}
	specs = append(specs, attack)

	specs = append(specs, CandidateSpec{
		Name:       "retreat",
		Type:       TypeMovement,
		Evaluation: inline("if(v and v != me.loc, %d, 0) where v = nearest_loc(me.loc, my_villages)", lerp(30, 75, d.Caution)),
		Action:     inline("move(me.loc, nearest_loc(me.loc, my_villages))"),
		Filters: map[string]formula.Source{
			"me": inline("filter(input, not can_recruit and hitpoints * 100 < max_hitpoints * %d)", retreatPct),
		},
	})

	specs = append(specs, CandidateSpec{
		Name: "villages",
		Type: TypeMovement,
		Evaluation: inline(
			"if(v, max(1, %d + if(me.role = 'scout', %d, 0) - distance_between(me.loc, v)), 0) where v = nearest_unowned_village(me.loc)",
			lerp(15, 60, d.VillagePriority), lerp(0, 15, d.ScoutWeight)),
		Action:  inline("move(me.loc, nearest_unowned_village(me.loc))"),
		Filters: map[string]formula.Source{"me": notLeader},
	})

	specs = append(specs, CandidateSpec{
		Name:       "support",
		Type:       TypeSupport,
		Evaluation: inline("if(distance_between(me.loc, target.loc) > %d, %d, 0)", d.SupportRange, lerp(5, 25, 1-d.Aggression)),
		Action:     inline("move(me.loc, target.loc)"),
		Filters: map[string]formula.Source{
			"me":     notLeader,
			"target": {Text: "filter(input, hitpoints * 2 < max_hitpoints)"},
		},
	})

	specs = append(specs, CandidateSpec{
		Name:       "advance",
		Type:       TypeMovement,
		Evaluation: inline("if(enemy_units, %d, 0)", lerp(5, 30, d.Aggression)),
		Action:     inline("move(me.loc, nearest_loc(me.loc, map(enemy_units, loc)))"),
		Filters:    map[string]formula.Source{"me": notLeader},
	})

	return specs
}

// RecruitFormula is the side formula that keeps recruiting while the side
// has more gold than the doctrine's reserve.
func RecruitFormula(d Doctrine) string {
	d.Validate()
	return fmt.Sprintf("if(gold > %d, 'recruit', [])", lerp(30, 0, d.RecruitPriority))
}

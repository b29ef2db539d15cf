package rules

import (
	"testing"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

func unitOf(t *testing.T, typ, id string, side, x, y int) model.Unit {
	t.Helper()
	ut, ok := model.LookupUnitType(typ)
	if !ok {
		t.Fatalf("unknown unit type %s", typ)
	}
	u := ut.Spawn(id, side, model.Loc(x, y))
	u.Moves = u.MaxMoves
	u.AttacksLeft = 1
	return *u
}

func newTestState(t *testing.T, rows []string, units ...model.Unit) *State {
	t.Helper()
	w, err := model.NewWorld(model.Snapshot{
		Turn:  1,
		Map:   rows,
		Sides: []model.Side{{Number: 1, Gold: 40, Recruits: []string{"Spearman", "Bowman"}}, {Number: 2, Gold: 40}},
		Units: units,
	}, 3)
	if err != nil {
		t.Fatal(err)
	}
	return NewState(w, 1)
}

var flat6 = []string{"......", "......", "......", "......", "......", "......"}

func src(text string) formula.Source { return formula.Source{Text: text} }

func TestCycleSelectsHighestScoringUnit(t *testing.T) {
	weak := unitOf(t, "Spearman", "weak", 1, 0, 0)
	weak.HP = 10
	strong := unitOf(t, "Spearman", "strong", 1, 2, 2)
	strong.HP = 30
	s := newTestState(t, flat6, weak, strong)

	cands := BuildCandidates([]CandidateSpec{{
		Name:       "toughest",
		Type:       TypeMovement,
		Evaluation: src("me.hitpoints"),
		Action:     src("move(me.loc, loc(0, 5))"),
	}}, s.Table)
	d, ok := NewEngine(s, cands).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	hp, err := d.Context.Get("me").Callable().Get("hitpoints").AsInt()
	if err != nil || hp != 30 {
		t.Errorf("me.hitpoints = %d (%v), want 30", hp, err)
	}
	v, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	mc, ok := v.Callable().(*MoveCommand)
	if !ok || mc.Src != model.Loc(2, 2) {
		t.Errorf("action = %s", v.DebugString())
	}
}

func TestCycleFilterFailureIsolated(t *testing.T) {
	s := newTestState(t, flat6, unitOf(t, "Spearman", "a", 1, 0, 0))
	cands := BuildCandidates([]CandidateSpec{
		{
			Name:       "broken",
			Type:       TypeMovement,
			Evaluation: src("100"),
			Action:     src("move(me.loc, me.loc)"),
			Filters:    map[string]formula.Source{"me": src("'not a list'")},
		},
		{
			Name:       "works",
			Type:       TypeMovement,
			Evaluation: src("5"),
			Action:     src("move(me.loc, me.loc)"),
		},
	}, s.Table)
	d, ok := NewEngine(s, cands).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	if d.Candidate.Name != "works" {
		t.Errorf("winner = %s, want works", d.Candidate.Name)
	}
	if cands[0].Score() != 0 {
		t.Errorf("broken candidate scored %d", cands[0].Score())
	}
}

func TestCycleEvaluationErrorIsolated(t *testing.T) {
	s := newTestState(t, flat6, unitOf(t, "Spearman", "a", 1, 0, 0))
	cands := BuildCandidates([]CandidateSpec{
		{Name: "div", Type: TypeMovement, Evaluation: src("10 / 0"), Action: src("[]")},
		{Name: "ok", Type: TypeMovement, Evaluation: src("2"), Action: src("[]")},
	}, s.Table)
	d, ok := NewEngine(s, cands).Cycle()
	if !ok || d.Candidate.Name != "ok" {
		t.Fatalf("decision %+v %v", d.Candidate, ok)
	}
}

func TestCycleNoWinnerBelowOne(t *testing.T) {
	s := newTestState(t, flat6, unitOf(t, "Spearman", "a", 1, 0, 0))
	cands := BuildCandidates([]CandidateSpec{
		{Name: "zero", Type: TypeMovement, Evaluation: src("0"), Action: src("[]")},
		{Name: "negative", Type: TypeMovement, Evaluation: src("-3"), Action: src("[]")},
	}, s.Table)
	if _, ok := NewEngine(s, cands).Cycle(); ok {
		t.Error("a cycle with no score of at least 1 should yield nothing")
	}
}

func TestCycleDeterministic(t *testing.T) {
	s := newTestState(t, flat6,
		unitOf(t, "Spearman", "a", 1, 0, 0),
		unitOf(t, "Bowman", "b", 1, 1, 0),
		unitOf(t, "Grunt", "e", 2, 4, 4))
	cands := BuildCandidates([]CandidateSpec{
		{Name: "first", Type: TypeMovement, Evaluation: src("7"), Action: src("[]")},
		{Name: "tie", Type: TypeMovement, Evaluation: src("7"), Action: src("[]")},
		{Name: "hunt", Type: TypeAttack, Evaluation: src("3"), Action: src("[]")},
	}, s.Table)
	e := NewEngine(s, cands)
	var firstMe string
	for i := range 5 {
		d, ok := e.Cycle()
		if !ok {
			t.Fatal("no decision")
		}
		if d.Candidate.Name != "first" {
			t.Errorf("cycle %d: winner %s, want first by registration order", i, d.Candidate.Name)
		}
		id, _ := d.Context.Get("me").Callable().Get("id").AsString()
		if i == 0 {
			firstMe = id
		} else if id != firstMe {
			t.Errorf("cycle %d: me = %s, want %s", i, id, firstMe)
		}
	}
	if firstMe != "a" {
		t.Errorf("tie between units should keep the first, got %s", firstMe)
	}
}

func TestAttackCandidateRequiresReach(t *testing.T) {
	near := unitOf(t, "Spearman", "near", 1, 0, 0)
	far := unitOf(t, "Spearman", "far", 1, 5, 5)
	far.Moves = 1
	s := newTestState(t, flat6, near, far, unitOf(t, "Grunt", "e", 2, 2, 0))

	cands := BuildCandidates([]CandidateSpec{{
		Name:       "hit",
		Type:       TypeAttack,
		Evaluation: src("if(me.id = 'far', 50, 1)"),
		Action:     src("attack(me.loc, best_attack_loc(me, target), target.loc)"),
	}}, s.Table)
	d, ok := NewEngine(s, cands).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	if id, _ := d.Context.Get("me").Callable().Get("id").AsString(); id != "near" {
		t.Errorf("me = %s, the far unit cannot reach the target", id)
	}
	if id, _ := d.Context.Get("target").Callable().Get("id").AsString(); id != "e" {
		t.Errorf("target = %s", id)
	}
}

func TestSupportCandidateExcludesMe(t *testing.T) {
	a := unitOf(t, "Spearman", "a", 1, 0, 0)
	a.HP = 5
	s := newTestState(t, flat6, a, unitOf(t, "Spearman", "b", 1, 5, 5))
	cands := BuildCandidates([]CandidateSpec{{
		Name:       "help",
		Type:       TypeSupport,
		Evaluation: src("target.max_hitpoints - target.hitpoints"),
		Action:     src("move(me.loc, target.loc)"),
	}}, s.Table)
	d, ok := NewEngine(s, cands).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	me, _ := d.Context.Get("me").Callable().Get("id").AsString()
	target, _ := d.Context.Get("target").Callable().Get("id").AsString()
	if me != "b" || target != "a" {
		t.Errorf("support pair = %s -> %s, want b -> a", me, target)
	}
}

func TestBuildCandidatesDropsBadSpecs(t *testing.T) {
	s := newTestState(t, flat6)
	cands := BuildCandidates([]CandidateSpec{
		{Name: "typo", Type: TypeMovement, Evaluation: src("no_such_function(1)"), Action: src("[]")},
		{Name: "kind", Type: "teleport", Evaluation: src("1"), Action: src("[]")},
		{Name: "filter", Type: TypeMovement, Evaluation: src("1"), Action: src("[]"),
			Filters: map[string]formula.Source{"friends": src("input")}},
		{Name: "good", Type: TypeMovement, Evaluation: src("1"), Action: src("[]")},
	}, s.Table)
	if len(cands) != 1 || cands[0].Name != "good" {
		t.Errorf("kept %d candidates", len(cands))
	}
}

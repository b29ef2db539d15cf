package model

import (
	"math"
	"slices"
	"testing"
)

func testWorld(t *testing.T, rows []string, units ...Unit) *World {
	t.Helper()
	w, err := NewWorld(Snapshot{
		Turn:  1,
		Map:   rows,
		Sides: []Side{{Number: 1, Gold: 20, Recruits: []string{"Spearman", "Bowman"}}, {Number: 2, Gold: 20}},
		Units: units,
	}, 7)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func spearman(id string, side, x, y int) Unit {
	ut, _ := LookupUnitType("Spearman")
	u := ut.Spawn(id, side, Loc(x, y))
	u.Moves = u.MaxMoves
	u.AttacksLeft = 1
	return *u
}

func grunt(id string, side, x, y int) Unit {
	ut, _ := LookupUnitType("Grunt")
	u := ut.Spawn(id, side, Loc(x, y))
	u.Moves = u.MaxMoves
	u.AttacksLeft = 1
	return *u
}

var flat5 = []string{".....", ".....", ".....", ".....", "....."}

func TestNewWorldRejectsStackedUnits(t *testing.T) {
	_, err := NewWorld(Snapshot{Map: flat5, Units: []Unit{spearman("a", 1, 0, 0), spearman("b", 1, 0, 0)}}, 1)
	if err == nil {
		t.Error("two units on one hex should be rejected")
	}
	_, err = NewWorld(Snapshot{Map: flat5, Units: []Unit{spearman("a", 1, 9, 0)}}, 1)
	if err == nil {
		t.Error("off-map unit should be rejected")
	}
}

func TestReach(t *testing.T) {
	u := spearman("a", 1, 2, 2)
	u.Moves = 2
	w := testWorld(t, flat5, u)
	reach := w.Reach(w.Units[0])
	if left := reach[Loc(2, 2)]; left != 2 {
		t.Errorf("start keeps %d moves, want 2", left)
	}
	if left, ok := reach[Loc(2, 1)]; !ok || left != 1 {
		t.Errorf("(2,1): %d %v", left, ok)
	}
	if left, ok := reach[Loc(2, 0)]; !ok || left != 0 {
		t.Errorf("(2,0): %d %v", left, ok)
	}
	if _, ok := reach[Loc(2, 5)]; ok {
		t.Error("off-map hex reachable")
	}
	for l := range reach {
		if Distance(l, Loc(2, 2)) > 2 {
			t.Errorf("%s is beyond two moves", l)
		}
	}
}

func TestReachZoneOfControl(t *testing.T) {
	w := testWorld(t, flat5, spearman("a", 1, 2, 2), grunt("e", 2, 4, 2))
	reach := w.Reach(w.UnitByID("a"))
	if left, ok := reach[Loc(3, 2)]; !ok || left != 0 {
		t.Errorf("hex next to enemy: %d %v, want 0 moves left", left, ok)
	}
	if _, ok := reach[Loc(4, 2)]; ok {
		t.Error("enemy hex should not be reachable")
	}
	if left, ok := reach[Loc(4, 3)]; !ok || left != 0 {
		t.Errorf("(4,3) next to enemy: %d %v, want 0 moves left", left, ok)
	}
}

func TestMoveUnitPartial(t *testing.T) {
	u := spearman("a", 1, 0, 0)
	u.Moves = 2
	w := testWorld(t, flat5, u)
	mover := w.Units[0]
	res, err := w.MoveUnit(mover, Loc(0, 4))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Moved() {
		t.Fatal("unit did not move")
	}
	if Distance(res.To, Loc(0, 0)) != 2 || Distance(res.To, Loc(0, 4)) != 2 {
		t.Errorf("unit stopped at %s, want halfway", res.To)
	}
	if mover.Moves != 0 {
		t.Errorf("moves left %d", mover.Moves)
	}
}

func TestMoveUnitNoProgress(t *testing.T) {
	w := testWorld(t, flat5, spearman("a", 1, 1, 1))
	u := w.Units[0]
	res, err := w.MoveUnit(u, u.Loc())
	if err != nil {
		t.Fatal(err)
	}
	if res.Moved() || u.Moves != 0 {
		t.Errorf("no-op move: moved=%v moves=%d", res.Moved(), u.Moves)
	}
}

func TestMoveCapturesVillage(t *testing.T) {
	w := testWorld(t, []string{".v...", "....."}, spearman("a", 1, 0, 0))
	u := w.Units[0]
	res, err := w.MoveUnit(u, Loc(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Captured || u.Moves != 0 {
		t.Errorf("captured=%v moves=%d", res.Captured, u.Moves)
	}
	if owner := w.VillageOwner(Loc(1, 0)); owner != 1 {
		t.Errorf("village owner %d", owner)
	}
	if _, ok := w.NearestUnownedVillage(Loc(0, 0), 1); ok {
		t.Error("no unowned village should remain")
	}
}

func TestRecruit(t *testing.T) {
	leader := spearman("leader", 1, 0, 0)
	leader.CanRecruit = true
	w := testWorld(t, []string{"kc...", "c....", "....."}, leader)

	castle := w.CastleOf(Loc(0, 0))
	if !slices.Contains(castle, Loc(1, 0)) || !slices.Contains(castle, Loc(0, 1)) {
		t.Fatalf("castle = %v", castle)
	}
	u, err := w.Recruit(1, "Spearman", Loc(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if u.Moves != 0 || w.UnitAt(Loc(1, 0)) != u {
		t.Errorf("recruit %+v", u)
	}
	if gold := w.Side(1).Gold; gold != 6 {
		t.Errorf("gold = %d, want 6", gold)
	}
	if _, err := w.Recruit(1, "Spearman", Loc(0, 1)); err == nil {
		t.Error("recruit without gold should fail")
	}
	if _, err := w.Recruit(1, "Grunt", Loc(0, 1)); err == nil {
		t.Error("recruit outside the recruit list should fail")
	}
}

func TestCombatOutcomes(t *testing.T) {
	d := grunt("d", 2, 1, 0)
	d.HP = 1
	w := testWorld(t, flat5, spearman("a", 1, 0, 0), d)
	c, err := w.PrepareCombat(w.UnitByID("a"), w.UnitByID("d"), Loc(0, 0), -1)
	if err != nil {
		t.Fatal(err)
	}
	if c.AttackerCTH != 60 {
		t.Errorf("chance to hit on flat = %d", c.AttackerCTH)
	}
	total, killed := 0.0, 0.0
	for _, o := range c.Outcomes() {
		total += o.Probability
		if o.DefenderHP == 0 {
			killed += o.Probability
		}
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("probabilities sum to %f", total)
	}
	if want := 1 - 0.4*0.4*0.4; math.Abs(killed-want) > 1e-9 {
		t.Errorf("kill chance %f, want %f", killed, want)
	}
}

func TestAttackDeterministic(t *testing.T) {
	run := func() CombatResult {
		w := testWorld(t, flat5, spearman("a", 1, 0, 0), grunt("d", 2, 1, 0))
		res, err := w.Attack(w.UnitByID("a"), w.UnitByID("d"), -1)
		if err != nil {
			t.Fatal(err)
		}
		if a := w.UnitByID("a"); a != nil && (a.AttacksLeft != 0 || a.Moves != 0) {
			t.Errorf("attacker keeps attacks=%d moves=%d", a.AttacksLeft, a.Moves)
		}
		return res
	}
	if first, second := run(), run(); first != second {
		t.Errorf("same seed gave %+v and %+v", first, second)
	}
}

func TestAttackRequiresAdjacency(t *testing.T) {
	w := testWorld(t, flat5, spearman("a", 1, 0, 0), grunt("d", 2, 3, 3))
	if _, err := w.Attack(w.UnitByID("a"), w.UnitByID("d"), -1); err == nil {
		t.Error("attack at range should fail")
	}
}

func TestNewTurn(t *testing.T) {
	u := spearman("a", 1, 1, 0)
	u.HP = 10
	u.Moves = 0
	w := testWorld(t, []string{".v..."}, u)
	w.Capture(Loc(1, 0), 1)
	w.NewTurn()
	got := w.Units[0]
	if got.HP != 18 || got.Moves != got.MaxMoves {
		t.Errorf("after new turn hp=%d moves=%d", got.HP, got.Moves)
	}
	if gold := w.Side(1).Gold; gold != 24 {
		t.Errorf("gold = %d, want 24", gold)
	}
	if w.Turn != 2 {
		t.Errorf("turn = %d", w.Turn)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	w := testWorld(t, flat5, spearman("a", 1, 0, 0))
	w2, err := NewWorld(w.Snapshot(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(w2.Map.Lines(), flat5) || len(w2.Units) != 1 || w2.Units[0].ID != "a" {
		t.Errorf("round trip lost state: %+v", w2.Snapshot())
	}
	c := w.Clone()
	c.Units[0].HP = 1
	if w.Units[0].HP == 1 {
		t.Error("Clone shares units")
	}
}

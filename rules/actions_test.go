package rules

import (
	"slices"
	"testing"

	"github.com/nstehr/vimy/vimy-formula/model"
)

var keepMap = []string{"......", "..c...", "..kc..", "......"}

func keepState(t *testing.T, leaderAt model.Location, extra ...model.Unit) *State {
	t.Helper()
	leader := unitOf(t, "Lieutenant", "lead", 1, leaderAt.X, leaderAt.Y)
	leader.CanRecruit = true
	return newTestState(t, keepMap, append([]model.Unit{leader}, extra...)...)
}

func TestFreeCastleHexes(t *testing.T) {
	s := keepState(t, model.Loc(2, 2))
	want := []model.Location{model.Loc(2, 1), model.Loc(3, 2)}
	if got := FreeCastleHexes(s); !slices.Equal(got, want) {
		t.Errorf("FreeCastleHexes = %v, want %v", got, want)
	}

	s = keepState(t, model.Loc(2, 2), unitOf(t, "Spearman", "a", 1, 2, 1))
	if got := FreeCastleHexes(s); !slices.Equal(got, want[1:]) {
		t.Errorf("occupied castle: FreeCastleHexes = %v", got)
	}

	s = keepState(t, model.Loc(0, 0))
	if got := FreeCastleHexes(s); len(got) != 0 {
		t.Errorf("leader off keep: FreeCastleHexes = %v", got)
	}
}

func TestRecruitApply(t *testing.T) {
	s := keepState(t, model.Loc(2, 2))
	changed, err := (&RecruitCommand{Type: "Bowman"}).Apply(s)
	if err != nil || !changed {
		t.Fatalf("recruit: %v %v", changed, err)
	}
	u := s.World.UnitAt(model.Loc(2, 1))
	if u == nil || u.Type != "Bowman" || u.Side != 1 {
		t.Fatalf("recruit landed as %+v", u)
	}
	if g := s.World.Side(1).Gold; g != 26 {
		t.Errorf("gold = %d, want 26", g)
	}

	at := model.Loc(3, 2)
	if changed, err := (&RecruitCommand{Type: "Spearman", Loc: &at}).Apply(s); err != nil || !changed {
		t.Fatalf("recruit at %s: %v %v", at, changed, err)
	}
	if s.World.UnitAt(at) == nil {
		t.Error("no unit on the requested hex")
	}
}

func TestRecruitSkips(t *testing.T) {
	off := model.Loc(0, 0)
	tests := []struct {
		name string
		s    func() *State
		cmd  *RecruitCommand
	}{
		{"not a recruit", func() *State { return keepState(t, model.Loc(2, 2)) }, &RecruitCommand{Type: "Grunt"}},
		{"unknown type", func() *State { return keepState(t, model.Loc(2, 2)) }, &RecruitCommand{Type: "Dragon"}},
		{"leader off keep", func() *State { return keepState(t, model.Loc(0, 0)) }, &RecruitCommand{Type: "Bowman"}},
		{"hex not castle", func() *State { return keepState(t, model.Loc(2, 2)) }, &RecruitCommand{Type: "Bowman", Loc: &off}},
		{"too poor", func() *State {
			s := keepState(t, model.Loc(2, 2))
			s.World.Side(1).Gold = 5
			return s
		}, &RecruitCommand{Type: "Bowman"}},
	}
	for _, tt := range tests {
		s := tt.s()
		before := len(s.World.Units)
		changed, err := tt.cmd.Apply(s)
		if err != nil || changed {
			t.Errorf("%s: %v %v", tt.name, changed, err)
		}
		if len(s.World.Units) != before {
			t.Errorf("%s: a unit was added", tt.name)
		}
	}
}

func TestAttackMovesBeforeStriking(t *testing.T) {
	s := newTestState(t, flat6, unitOf(t, "Spearman", "a", 1, 0, 3), unitOf(t, "Grunt", "e", 2, 3, 0))
	hex, ok := bestAttackHex(s.World, s.World.UnitByID("a"), s.World.UnitByID("e"), s.World.Reach(s.World.UnitByID("a")))
	if !ok || !hex.IsAdjacent(model.Loc(3, 0)) {
		t.Fatalf("bestAttackHex = %s %v", hex, ok)
	}
	cmd := &AttackCommand{MoveFrom: model.Loc(0, 3), Src: hex, Dst: model.Loc(3, 0), Weapon: -1}
	if changed, err := cmd.Apply(s); err != nil || !changed {
		t.Fatalf("attack: %v %v", changed, err)
	}
	if a := s.World.UnitByID("a"); a != nil && a.Loc() != hex {
		t.Errorf("attacker at %s, want %s", a.Loc(), hex)
	}
}

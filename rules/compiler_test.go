package rules

import (
	"strings"
	"testing"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

func TestCompileGate(t *testing.T) {
	g, err := CompileGate("")
	if err != nil || g != nil {
		t.Fatalf("blank gate = %v, %v", g, err)
	}
	if open, err := g.Open(TurnEnv{}); !open || err != nil {
		t.Errorf("nil gate should be open, got %v %v", open, err)
	}

	s := newTestState(t, flat6, unitOf(t, "Spearman", "a", 1, 0, 0))
	env := NewTurnEnv(s)
	tests := []struct {
		src  string
		want bool
	}{
		{"Gold > 30", true},
		{"Gold > 30 and UnitCount() >= 2", false},
		{"HasUnit('Spearman') and EnemyCount() == 0", true},
		{"Turn == 1 && !HasLeader()", true},
		{"CountAny('Bowman', 'Thief') > 0", false},
	}
	for _, tt := range tests {
		g, err := CompileGate(tt.src)
		if err != nil {
			t.Errorf("compile %q: %v", tt.src, err)
			continue
		}
		open, err := g.Open(env)
		if err != nil {
			t.Errorf("open %q: %v", tt.src, err)
			continue
		}
		if open != tt.want {
			t.Errorf("%q = %v, want %v", tt.src, open, tt.want)
		}
		if g.String() != tt.src {
			t.Errorf("String() = %q", g.String())
		}
	}

	for _, bad := range []string{"Gold +", "Gold + 1", "NoSuchField > 2"} {
		if _, err := CompileGate(bad); err == nil {
			t.Errorf("CompileGate(%q) should fail", bad)
		}
	}
}

func TestCompileDoctrineParses(t *testing.T) {
	s := newTestState(t, flat6)
	doctrines := []Doctrine{
		DefaultDoctrine(),
		{Name: "Zero"},
		{Name: "Max", Aggression: 1, VillagePriority: 1, Caution: 1, RecruitPriority: 1, ScoutWeight: 1, SupportRange: 6},
		{Name: "Out of range", Aggression: 3, Caution: -2, SupportRange: 40},
	}
	for _, d := range doctrines {
		specs := CompileDoctrine(d)
		if len(specs) != 6 {
			t.Errorf("%s: %d candidates, want 6", d.Name, len(specs))
		}
		if cands := BuildCandidates(specs, s.Table); len(cands) != len(specs) {
			for _, spec := range specs {
				if _, err := NewCandidateAction(spec, s.Table); err != nil {
					t.Errorf("%s: %v", d.Name, err)
				}
			}
		}
		if _, err := formula.NewFromSource(formula.Source{Text: RecruitFormula(d)}, s.Table); err != nil {
			t.Errorf("%s recruit formula: %v", d.Name, err)
		}
	}
}

func specNamed(specs []CandidateSpec, name string) (CandidateSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return CandidateSpec{}, false
}

func TestCompileDoctrineLeaderAttacksWhenAggressive(t *testing.T) {
	calm, _ := specNamed(CompileDoctrine(DefaultDoctrine()), "attack")
	if _, ok := calm.Filters["me"]; !ok {
		t.Error("balanced doctrine should keep the leader out of attacks")
	}
	d := DefaultDoctrine()
	d.Aggression = 0.9
	bold, _ := specNamed(CompileDoctrine(d), "attack")
	if _, ok := bold.Filters["me"]; ok {
		t.Error("aggressive doctrine should let the leader attack")
	}
}

func TestCompileDoctrineWeightsReachFormulas(t *testing.T) {
	d := DefaultDoctrine()
	d.SupportRange = 4
	support, _ := specNamed(CompileDoctrine(d), "support")
	if !strings.Contains(support.Evaluation.Text, "> 4") {
		t.Errorf("support evaluation = %s", support.Evaluation.Text)
	}
	if got := RecruitFormula(DefaultDoctrine()); got != "if(gold > 15, 'recruit', [])" {
		t.Errorf("RecruitFormula = %s", got)
	}
	d.RecruitPriority = 1
	if got := RecruitFormula(d); got != "if(gold > 0, 'recruit', [])" {
		t.Errorf("eager RecruitFormula = %s", got)
	}
}

func TestDoctrineLeaderReturnsToKeep(t *testing.T) {
	leader := unitOf(t, "Lieutenant", "lead", 1, 0, 0)
	leader.CanRecruit = true
	s := newTestState(t, []string{"......", "......", "..k...", "......"}, leader)
	d, ok := NewEngine(s, BuildCandidates(CompileDoctrine(DefaultDoctrine()), s.Table)).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	if d.Candidate.Name != "leader-to-keep" || d.Candidate.Score() != leaderToKeepScore {
		t.Fatalf("winner %s with %d", d.Candidate.Name, d.Candidate.Score())
	}
	v, err := d.Run()
	if err != nil {
		t.Fatal(err)
	}
	mc, ok := v.Callable().(*MoveCommand)
	if !ok || mc.Dst != model.Loc(2, 2) {
		t.Errorf("action = %s", v.DebugString())
	}
}

func TestDoctrineGrabsVillages(t *testing.T) {
	s := newTestState(t, []string{"......", "......", "......", "....v."}, unitOf(t, "Spearman", "a", 1, 0, 0))
	d, ok := NewEngine(s, BuildCandidates(CompileDoctrine(DefaultDoctrine()), s.Table)).Cycle()
	if !ok {
		t.Fatal("no decision")
	}
	want := lerp(15, 60, 0.5) - model.Distance(model.Loc(0, 0), model.Loc(4, 3))
	if d.Candidate.Name != "villages" || d.Candidate.Score() != want {
		t.Errorf("winner %s with %d, want villages with %d", d.Candidate.Name, d.Candidate.Score(), want)
	}
}

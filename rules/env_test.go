package rules

import (
	"testing"

	"github.com/nstehr/vimy/vimy-formula/model"
)

func TestTurnEnvCounts(t *testing.T) {
	leader := unitOf(t, "Lieutenant", "lead", 1, 2, 2)
	leader.CanRecruit = true
	s := newTestState(t, []string{"v.....", "......", "..k...", "......"},
		leader,
		unitOf(t, "Spearman", "s1", 1, 0, 1),
		unitOf(t, "Spearman", "s2", 1, 1, 1),
		unitOf(t, "Bowman", "b1", 1, 3, 3),
		unitOf(t, "Cavalryman", "c1", 1, 4, 3),
		unitOf(t, "Grunt", "e1", 2, 5, 0))
	s.World.Capture(model.Loc(0, 0), 1)
	env := NewTurnEnv(s)

	if env.Turn != 1 || env.Side != 1 || env.Gold != 40 {
		t.Errorf("env = turn %d side %d gold %d", env.Turn, env.Side, env.Gold)
	}
	if got := env.UnitCount(); got != 5 {
		t.Errorf("UnitCount() = %d, want 5", got)
	}
	if got := env.EnemyCount(); got != 1 {
		t.Errorf("EnemyCount() = %d, want 1", got)
	}
	if got := env.VillageCount(); got != 1 {
		t.Errorf("VillageCount() = %d, want 1", got)
	}
	if !env.HasUnit("spearman") {
		t.Error("HasUnit(spearman) should match case-insensitively")
	}
	if env.HasUnit("Thief") {
		t.Error("HasUnit(Thief) = true")
	}
	if got := env.TypeCount("Spearman"); got != 2 {
		t.Errorf("TypeCount(Spearman) = %d, want 2", got)
	}
	if got := env.CountAny("Spearman", "Bowman"); got != 3 {
		t.Errorf("CountAny() = %d, want 3", got)
	}
	if !env.HasAnyUnit("Thief", "Cavalryman") {
		t.Error("HasAnyUnit(Thief, Cavalryman) = false")
	}
	if got := env.RoleCount(RoleScout); got != 1 {
		t.Errorf("RoleCount(scout) = %d, want 1", got)
	}
	if !env.HasLeader() || !env.LeaderOnKeep() {
		t.Error("leader should be on its keep")
	}
}

func TestTurnEnvZeroValue(t *testing.T) {
	var env TurnEnv
	if env.UnitCount() != 0 || env.EnemyCount() != 0 || env.VillageCount() != 0 || env.HasLeader() || env.LeaderOnKeep() {
		t.Error("zero TurnEnv should report nothing")
	}
}

func TestRoleOf(t *testing.T) {
	lead := unitOf(t, "Lieutenant", "l", 1, 0, 0)
	lead.CanRecruit = true
	tests := []struct {
		u    func() model.Unit
		want string
	}{
		{func() model.Unit { return lead }, RoleLeader},
		{func() model.Unit { return unitOf(t, "Cavalryman", "c", 1, 0, 0) }, RoleScout},
		{func() model.Unit { return unitOf(t, "Bowman", "b", 1, 0, 0) }, RoleRanged},
		{func() model.Unit { return unitOf(t, "Spearman", "s", 1, 0, 0) }, RoleMelee},
		{func() model.Unit { return unitOf(t, "Lieutenant", "l2", 1, 0, 0) }, RoleMelee},
	}
	for _, tt := range tests {
		u := tt.u()
		if got := RoleOf(&u); got != tt.want {
			t.Errorf("RoleOf(%s) = %s, want %s", u.ID, got, tt.want)
		}
	}
}

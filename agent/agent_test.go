package agent

import (
	"testing"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/ipc"
	"github.com/nstehr/vimy/vimy-formula/model"
)

var flat6 = []string{"......", "......", "......", "......", "......", "......"}

var keepMap = []string{"......", "..c...", "..kc..", "......"}

func unit(t *testing.T, typ, id string, side, x, y int) model.Unit {
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

func snapshot(rows []string, units ...model.Unit) model.Snapshot {
	return model.Snapshot{
		Turn:  1,
		Map:   rows,
		Sides: []model.Side{{Number: 1, Gold: 40, Recruits: []string{"Spearman", "Bowman"}}, {Number: 2, Gold: 40}},
		Units: units,
	}
}

func testWorld(t *testing.T, rows []string, units ...model.Unit) *model.World {
	t.Helper()
	w, err := model.NewWorld(snapshot(rows, units...), 3)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func mustConfig(t *testing.T, text string) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(text), "test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func keepLeader(t *testing.T) model.Unit {
	t.Helper()
	lead := unit(t, "Lieutenant", "lead", 1, 2, 2)
	lead.CanRecruit = true
	return lead
}

func varInt(t *testing.T, text, key string) int {
	t.Helper()
	m, err := parseVars(text, formula.NewTable())
	if err != nil {
		t.Fatalf("parse vars %q: %v", text, err)
	}
	v, ok := m.Get(formula.Str(key))
	if !ok {
		t.Fatalf("vars %q have no %s", text, key)
	}
	n, err := v.AsInt()
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPlayTurnRecruits(t *testing.T) {
	cfg := mustConfig(t, `
stages:
  - type: side
move: "'recruit'"
`)
	ai := NewAI(NewConfigStore(cfg))
	res, err := ai.PlayTurn(snapshot(keepMap, keepLeader(t)))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Commands) != 2 {
		t.Fatalf("commands = %d, want 2 recruits", len(res.Commands))
	}
	for _, c := range res.Commands {
		if c.Type != ipc.TypeRecruit {
			t.Errorf("command type %s", c.Type)
		}
	}
	var rc ipc.RecruitCommand
	if err := res.Commands[0].Decode(&rc); err != nil {
		t.Fatal(err)
	}
	if rc.X != 2 || rc.Y != 1 || rc.UnitID == "" {
		t.Errorf("first recruit %+v, want on (2,1)", rc)
	}
	if g := res.State.Sides[0].Gold; g != 12 {
		t.Errorf("gold left = %d, want 12", g)
	}
	if len(res.State.Units) != 3 {
		t.Errorf("units after turn = %d, want 3", len(res.State.Units))
	}
	recruited := 0
	for _, e := range res.Events {
		if e.Kind == string(EventUnitRecruited) {
			recruited++
		}
	}
	if recruited != 2 {
		t.Errorf("recruit events = %d, want 2 (%+v)", recruited, res.Events)
	}
}

func TestPlayTurnKeepsVars(t *testing.T) {
	cfg := mustConfig(t, `
stages:
  - type: side
move: "[set_var('turns', vars.turns + 1), 'end_turn']"
vars: "['turns' -> 0]"
`)
	ai := NewAI(NewConfigStore(cfg))
	snap := snapshot(flat6, unit(t, "Spearman", "a", 1, 0, 0))

	for want := 1; want <= 2; want++ {
		res, err := ai.PlayTurn(snap)
		if err != nil {
			t.Fatal(err)
		}
		if got := varInt(t, res.Vars, "turns"); got != want {
			t.Errorf("turn %d: turns = %d", want, got)
		}
	}

	ai.RestoreVars("['turns' -> 10]")
	res, err := ai.PlayTurn(snap)
	if err != nil {
		t.Fatal(err)
	}
	if got := varInt(t, res.Vars, "turns"); got != 11 {
		t.Errorf("after restore: turns = %d, want 11", got)
	}
}

func TestPlayTurnMissingSide(t *testing.T) {
	ai := NewAI(NewConfigStore(nil))
	ai.SetSide(5)
	if _, err := ai.PlayTurn(snapshot(flat6)); err == nil {
		t.Error("a side absent from the position should fail")
	}
}

func TestHandleHello(t *testing.T) {
	a := New(nil, NewAI(NewConfigStore(nil)))
	env, err := ipc.NewEnvelope(ipc.TypeHello, ipc.HelloMessage{Player: "south", Side: 2})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := a.HandleHello(env)
	if err != nil {
		t.Fatal(err)
	}
	var ack ipc.AckMessage
	if err := reply.Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if reply.Type != ipc.TypeAck || ack.Status != "ok" || ack.Side != 2 {
		t.Errorf("ack %s %+v", reply.Type, ack)
	}
	if a.Player != "south" || a.AI.Side() != 2 {
		t.Errorf("agent player %q side %d", a.Player, a.AI.Side())
	}
}

func TestHandleTurn(t *testing.T) {
	cfg := mustConfig(t, `
stages:
  - type: side
move: "[set_var('seen', vars.seen + 1), 'end_turn']"
`)
	a := New(nil, NewAI(NewConfigStore(cfg)))
	env, err := ipc.NewEnvelope(ipc.TypeTurn, ipc.TurnMessage{
		State: snapshot(flat6, unit(t, "Spearman", "a", 1, 0, 0)),
		Vars:  "['seen' -> 4]",
	})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := a.HandleTurn(env)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type != ipc.TypeTurnResult {
		t.Fatalf("reply type %s", reply.Type)
	}
	var res ipc.TurnResult
	if err := reply.Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Side != 1 || res.Turn != 1 {
		t.Errorf("result for side %d turn %d", res.Side, res.Turn)
	}
	if got := varInt(t, res.Vars, "seen"); got != 5 {
		t.Errorf("seen = %d, want 5", got)
	}

	bad, err := ipc.NewEnvelope(ipc.TypeTurn, ipc.TurnMessage{State: model.Snapshot{Map: []string{"..", "."}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.HandleTurn(bad); err == nil {
		t.Error("a malformed map should fail the turn")
	}
}

func TestPlayTurnIgnoresRunawayVars(t *testing.T) {
	cfg := mustConfig(t, `
stages:
  - type: side
move: "[set_var('n', vars.n + 1), 'end_turn']"
vars: "['n' -> 0]"
`)
	ai := NewAI(NewConfigStore(cfg))
	snap := snapshot(flat6, unit(t, "Spearman", "a", 1, 0, 0))
	if _, err := ai.PlayTurn(snap); err != nil {
		t.Fatal(err)
	}

	ai.RestoreVars("def f(x) ([->]).f(x); f(1)")
	res, err := ai.PlayTurn(snap)
	if err != nil {
		t.Fatal(err)
	}
	if got := varInt(t, res.Vars, "n"); got != 2 {
		t.Errorf("n = %d, want 2 from the kept store", got)
	}
}

package agent

import (
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/ipc"
	"github.com/nstehr/vimy/vimy-formula/model"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// Bare string results with a meaning of their own.
const (
	resultRecruit = "recruit"
	resultEndTurn = "end_turn"
)

// outcome is what executing one formula result did.
type outcome struct {
	applied int
	// stop ends the current stage: end_turn or a fallback request.
	stop bool
}

// executor applies formula results to the world and records what they did
// in wire form.
type executor struct {
	s        *rules.State
	commands []ipc.Envelope
	// fallback is the engine requested by a fallback command, if any.
	fallback string
	// ended is set by end_turn and cleared at the start of each stage.
	ended bool
}

func newExecutor(s *rules.State) *executor {
	return &executor{s: s}
}

// execute interprets a formula result. A single value counts as a one
// element list; null and the empty list are no command. Unknown shapes are
// logged and skipped. The returned error is a host failure.
func (x *executor) execute(v formula.Value) (outcome, error) {
	var items []formula.Value
	switch {
	case v.IsNull():
	case v.IsList():
		items, _ = v.AsList()
	default:
		items = []formula.Value{v}
	}

	var out outcome
	for _, item := range items {
		if out.stop {
			break
		}
		switch {
		case item.IsString():
			str, _ := item.AsString()
			switch str {
			case resultRecruit:
				n, err := recruitAll(x)
				if err != nil {
					return out, err
				}
				out.applied += n
			case resultEndTurn:
				x.ended = true
				out.stop = true
			default:
				slog.Warn("unrecognized command string", "value", str)
			}
		case item.IsObject():
			switch c := item.Callable().(type) {
			case *rules.FallbackCommand:
				x.fallback = c.Engine
				out.stop = true
			case rules.Command:
				changed, err := x.apply(c)
				if err != nil {
					return out, err
				}
				if changed {
					out.applied++
				}
			default:
				slog.Warn("unrecognized command object", "value", item.DebugString())
			}
		default:
			slog.Warn("unrecognized command", "value", item.DebugString())
		}
	}
	return out, nil
}

// apply runs one command and records its effect. Script errors raised
// while applying are logged and the command counted as skipped.
func (x *executor) apply(c rules.Command) (bool, error) {
	w := x.s.World
	before := x.observe(c)
	changed, err := c.Apply(x.s)
	if err != nil {
		if formula.IsFormulaError(err) {
			rules.LogFormulaError("command failed", err, "command", c.Serialize())
			return false, nil
		}
		return false, err
	}
	if !changed {
		return false, nil
	}
	x.s.Invalidate()
	x.record(c, before, w)
	return true, nil
}

// observation is the part of the world a command is about, taken before it
// runs so the recorded command can report where things ended up.
type observation struct {
	unit   *model.Unit
	from   model.Location
	target *model.Unit
	units  int
}

func (x *executor) observe(c rules.Command) observation {
	w := x.s.World
	o := observation{units: len(w.Units)}
	switch c := c.(type) {
	case *rules.MoveCommand:
		o.unit, o.from = w.UnitAt(c.Src), c.Src
	case *rules.AttackCommand:
		o.unit, o.from, o.target = w.UnitAt(c.MoveFrom), c.MoveFrom, w.UnitAt(c.Dst)
	case *rules.AttackAnalysis:
		if len(c.Attacks) > 0 {
			a := c.Attacks[0]
			o.unit, o.from, o.target = w.UnitAt(a.MoveFrom), a.MoveFrom, w.UnitAt(a.Dst)
		}
	case *rules.SetUnitVarCommand:
		o.unit = w.UnitAt(c.Loc)
	}
	return o
}

func (x *executor) record(c rules.Command, o observation, w *model.World) {
	var (
		kind string
		data any
	)
	switch c := c.(type) {
	case *rules.MoveCommand:
		if o.unit == nil {
			return
		}
		kind, data = ipc.TypeMove, ipc.MoveCommand{UnitID: o.unit.ID, FromX: o.from.X, FromY: o.from.Y, X: o.unit.X, Y: o.unit.Y}
	case *rules.AttackCommand, *rules.AttackAnalysis:
		if o.unit == nil || o.target == nil {
			return
		}
		if moved := o.unit.Loc(); moved != o.from {
			x.add(ipc.TypeMove, ipc.MoveCommand{UnitID: o.unit.ID, FromX: o.from.X, FromY: o.from.Y, X: moved.X, Y: moved.Y})
		}
		weapon := -1
		if ac, ok := c.(*rules.AttackCommand); ok {
			weapon = ac.Weapon
		}
		kind, data = ipc.TypeAttack, ipc.AttackCommand{
			UnitID: o.unit.ID, TargetID: o.target.ID, X: o.unit.X, Y: o.unit.Y, Weapon: weapon,
			AttackerHP: o.unit.HP, DefenderHP: o.target.HP,
		}
	case *rules.RecruitCommand:
		if len(w.Units) <= o.units {
			return
		}
		u := w.Units[len(w.Units)-1]
		kind, data = ipc.TypeRecruit, ipc.RecruitCommand{UnitID: u.ID, Type: u.Type, X: u.X, Y: u.Y}
	case *rules.SetUnitVarCommand:
		if o.unit == nil {
			return
		}
		kind, data = ipc.TypeUnitVars, ipc.UnitVarsCommand{UnitID: o.unit.ID, Vars: o.unit.Vars}
	default:
		// set_var only touches the AI store, which goes back with the result.
		return
	}
	x.add(kind, data)
}

func (x *executor) add(kind string, data any) {
	env, err := ipc.NewEnvelope(kind, data)
	if err != nil {
		slog.Error("failed to record command", "type", kind, "error", err)
		return
	}
	x.commands = append(x.commands, env)
}

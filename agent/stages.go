package agent

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// turn runs the configured stages of one AI turn.
type turn struct {
	cfg *Config
	s   *rules.State
	x   *executor
}

func newTurn(cfg *Config, s *rules.State) *turn {
	t := &turn{cfg: cfg, s: s, x: newExecutor(s)}
	for _, fn := range cfg.Functions {
		_, err := s.Table.AddCustom(fn.Name, strings.Fields(fn.Inputs), fn.Formula.in(cfg.File), fn.Precondition.in(cfg.File))
		if err != nil {
			rules.LogFormulaError("custom function ignored", err, "function", fn.Name)
		}
	}
	return t
}

// play runs every stage whose condition holds, in order. A fallback
// request hands the rest of the turn to the named engine.
func (t *turn) play() error {
	for _, st := range t.cfg.Stages {
		gate, err := rules.CompileGate(st.When)
		if err != nil {
			slog.Warn("stage condition ignored", "stage", st.Type, "error", err)
			continue
		}
		open, err := gate.Open(rules.NewTurnEnv(t.s))
		if err != nil {
			slog.Warn("stage condition failed", "stage", st.Type, "error", err)
			continue
		}
		if !open {
			slog.Debug("stage skipped", "stage", st.Type, "when", gate.String())
			continue
		}
		t.x.ended = false
		switch st.Type {
		case StageSide:
			err = t.sideStage()
		case StageUnit:
			err = t.unitStage()
		case StageCandidate:
			err = t.candidateStage()
		case StageRecruit:
			_, err = recruitAll(t.x)
		default:
			slog.Warn("unknown stage type", "stage", st.Type)
		}
		if err != nil {
			return fmt.Errorf("%s stage: %w", st.Type, err)
		}
		if t.x.fallback != "" {
			return runFallback(t.x.fallback, t.x, t.cfg.MaxCycles)
		}
	}
	return nil
}

// loop evaluates next and applies the result until a cycle applies
// nothing, the result stops the stage, alive turns false or the cycle cap
// is reached. It returns the number of commands applied.
func (t *turn) loop(name string, next func() (formula.Value, error), alive func() bool) (int, error) {
	applied := 0
	for cycle := 0; ; cycle++ {
		if cycle >= t.cfg.MaxCycles {
			slog.Warn("loop aborted at cycle cap", "loop", name, "cycles", cycle)
			return applied, nil
		}
		if alive != nil && !alive() {
			return applied, nil
		}
		v, err := next()
		if err != nil {
			if !formula.IsFormulaError(err) {
				return applied, err
			}
			rules.LogFormulaError("formula failed", err, "loop", name)
			return applied, nil
		}
		out, err := t.x.execute(v)
		if err != nil {
			return applied, err
		}
		applied += out.applied
		if out.stop || out.applied == 0 {
			return applied, nil
		}
	}
}

func (t *turn) sideStage() error {
	f, err := formula.NewOptional(t.cfg.SideFormula(), t.s.Table)
	if err != nil {
		rules.LogFormulaError("side formula ignored", err)
		return nil
	}
	if f == nil {
		return nil
	}
	_, err = t.loop("side", func() (formula.Value, error) { return f.Evaluate(t.s.Context()) }, nil)
	return err
}

func (t *turn) candidateStage() error {
	e := rules.NewEngine(t.s, rules.BuildCandidates(t.cfg.Candidates(), t.s.Table))
	_, err := t.loop("candidate", func() (formula.Value, error) {
		d, ok := e.Cycle()
		if !ok {
			return formula.Null, nil
		}
		slog.Debug("candidate action chosen", "candidate", d.Candidate.Name, "score", d.Candidate.Score())
		return d.Run()
	}, nil)
	return err
}

// unitPlan is one unit's formulas for the unit stage.
type unitPlan struct {
	id       string
	priority int
	main     *formula.Formula
	loop     *formula.Formula
}

// unitPlans compiles the formulas of the side's units and orders them by
// priority, highest first, keeping board order among equals.
func (t *turn) unitPlans() []unitPlan {
	var plans []unitPlan
	for _, u := range t.s.World.SideUnits(t.s.Side) {
		main, loop, prio := t.unitSources(u)
		p := unitPlan{id: u.ID}
		var err error
		if p.main, err = formula.NewOptional(main, t.s.Table); err != nil {
			rules.LogFormulaError("unit formula ignored", err, "unit", u.ID)
		}
		if p.loop, err = formula.NewOptional(loop, t.s.Table); err != nil {
			rules.LogFormulaError("unit loop formula ignored", err, "unit", u.ID)
		}
		if p.main == nil && p.loop == nil {
			continue
		}
		p.priority = t.unitPriority(u, prio)
		plans = append(plans, p)
	}
	slices.SortStableFunc(plans, func(a, b unitPlan) int { return cmp.Compare(b.priority, a.priority) })
	return plans
}

// unitSources picks each formula from the configuration override, else
// from the unit itself.
func (t *turn) unitSources(u *model.Unit) (main, loop, prio formula.Source) {
	own := fmt.Sprintf("<unit %s>", u.ID)
	main = formula.Source{Text: u.Formula, Filename: own}
	loop = formula.Source{Text: u.LoopFormula, Filename: own}
	prio = formula.Source{Text: u.Priority, Filename: own}
	if uc, ok := t.cfg.unitConfig(u.ID, u.Type); ok {
		if !uc.Formula.IsZero() {
			main = uc.Formula.in(t.cfg.File)
		}
		if !uc.LoopFormula.IsZero() {
			loop = uc.LoopFormula.in(t.cfg.File)
		}
		if !uc.Priority.IsZero() {
			prio = uc.Priority.in(t.cfg.File)
		}
	}
	return main, loop, prio
}

func (t *turn) unitPriority(u *model.Unit, src formula.Source) int {
	f, err := formula.NewOptional(src, t.s.Table)
	if err != nil {
		rules.LogFormulaError("unit priority ignored", err, "unit", u.ID)
		return 0
	}
	if f == nil {
		return 0
	}
	v, err := f.Evaluate(t.unitContext(u))
	if err == nil {
		var n int
		if n, err = v.AsInt(); err == nil {
			return n
		}
	}
	rules.LogFormulaError("unit priority failed", err, "unit", u.ID)
	return 0
}

func (t *turn) unitContext(u *model.Unit) formula.Callable {
	return t.s.Context().Set("me", t.s.UnitValue(u))
}

// current re-reads a unit from the world; earlier commands may have moved
// or killed it.
func (t *turn) current(id string) *model.Unit {
	u := t.s.World.UnitByID(id)
	if u == nil || u.Side != t.s.Side {
		return nil
	}
	return u
}

func (t *turn) unitStage() error {
	for _, p := range t.unitPlans() {
		if p.main != nil {
			u := t.current(p.id)
			if u == nil {
				continue
			}
			v, err := p.main.Evaluate(t.unitContext(u))
			if err != nil {
				if !formula.IsFormulaError(err) {
					return err
				}
				rules.LogFormulaError("unit formula failed", err, "unit", p.id)
			} else {
				out, err := t.x.execute(v)
				if err != nil {
					return err
				}
				if out.stop {
					return nil
				}
			}
		}
		if p.loop == nil {
			continue
		}
		alive := func() bool { return t.current(p.id) != nil }
		next := func() (formula.Value, error) {
			return p.loop.Evaluate(t.unitContext(t.current(p.id)))
		}
		if _, err := t.loop("unit "+p.id, next, alive); err != nil {
			return err
		}
		if t.x.ended || t.x.fallback != "" {
			return nil
		}
	}
	return nil
}

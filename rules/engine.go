package rules

import (
	"fmt"
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

// Engine scores a fixed set of candidate actions against the current
// world and picks the best one each cycle. Candidates are kept in
// registration order, which is also the tie-break.
type Engine struct {
	state      *State
	candidates []*CandidateAction
}

func NewEngine(s *State, candidates []*CandidateAction) *Engine {
	return &Engine{state: s, candidates: candidates}
}

// Candidates returns the registered candidates in order.
func (e *Engine) Candidates() []*CandidateAction { return e.candidates }

// Decision is the winner of a cycle: the candidate and a context holding
// the subjects it was scored with, ready for its action formula.
type Decision struct {
	Candidate *CandidateAction
	Context   *formula.MapCallable
}

// Run evaluates the winning candidate's action formula in its context.
func (d Decision) Run() (formula.Value, error) {
	return d.Candidate.Action.Evaluate(d.Context)
}

// Cycle scores every candidate and returns the one with the highest
// score. ok is false when no candidate scored at least 1.
func (e *Engine) Cycle() (d Decision, ok bool) {
	var best *CandidateAction
	for _, c := range e.candidates {
		if err := e.evaluate(c); err != nil {
			LogFormulaError("candidate action evaluation failed", err, "candidate", c.Name)
			c.score, c.me, c.target = 0, formula.Null, formula.Null
			continue
		}
		slog.Debug("candidate action scored", "candidate", c.Name, "score", c.score)
		if best == nil || c.score > best.score {
			best = c
		}
	}
	if best == nil || best.score < 1 {
		return Decision{}, false
	}
	ctx := e.state.Context().Set("me", best.me)
	if best.Type != TypeMovement {
		ctx.Set("target", best.target)
	}
	return Decision{Candidate: best, Context: ctx}, true
}

// evaluate scores c over its subject pools, keeping the first pair that
// reaches the highest score.
func (e *Engine) evaluate(c *CandidateAction) error {
	c.score, c.me, c.target = 0, formula.Null, formula.Null
	s := e.state
	w := s.World

	var mine, others []*model.Unit
	for _, u := range w.SideUnits(s.Side) {
		switch c.Type {
		case TypeAttack:
			if u.AttacksLeft > 0 {
				mine = append(mine, u)
			}
		default:
			if u.Moves > 0 {
				mine = append(mine, u)
			}
		}
	}
	switch c.Type {
	case TypeAttack:
		others = w.EnemyUnits(s.Side)
	case TypeSupport:
		for _, u := range w.Units {
			if !w.IsEnemy(s.Side, u.Side) {
				others = append(others, u)
			}
		}
	}

	mePool, err := e.filter(c, "me", s.units(mine))
	if err != nil {
		return err
	}
	if c.Type == TypeMovement {
		for _, me := range mePool {
			if err := e.score(c, me, formula.Null); err != nil {
				return err
			}
		}
		return nil
	}
	targetPool, err := e.filter(c, "target", s.units(others))
	if err != nil {
		return err
	}
	for _, me := range mePool {
		for _, target := range targetPool {
			if !e.admissible(c, me, target) {
				continue
			}
			if err := e.score(c, me, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// filter narrows a pool with the candidate's filter formula for it, if
// any. The formula sees the pool as input and must return a list.
func (e *Engine) filter(c *CandidateAction, pool string, input formula.Value) ([]formula.Value, error) {
	f, ok := c.Filters[pool]
	if !ok {
		return input.AsList()
	}
	v, err := f.Evaluate(e.state.Context().Set("input", input))
	if err != nil {
		return nil, err
	}
	items, err := v.AsList()
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", pool, err)
	}
	return items, nil
}

// admissible applies the structural preconditions of a pair: support
// targets are someone other than me, attack targets are reachable.
func (e *Engine) admissible(c *CandidateAction, me, target formula.Value) bool {
	mu, ok := me.Callable().(*UnitCallable)
	if !ok {
		return false
	}
	tu, ok := target.Callable().(*UnitCallable)
	if !ok {
		return false
	}
	switch c.Type {
	case TypeSupport:
		return mu.u.ID != tu.u.ID
	case TypeAttack:
		reach := e.state.moveMap(false).destinations(mu.u)
		for _, l := range tu.u.Loc().Adjacent() {
			if _, ok := reach[l]; ok {
				return true
			}
		}
		return false
	}
	return true
}

func (e *Engine) score(c *CandidateAction, me, target formula.Value) error {
	ctx := e.state.Context().Set("me", me)
	if c.Type != TypeMovement {
		ctx.Set("target", target)
	}
	v, err := c.Evaluation.Evaluate(ctx)
	if err != nil {
		return err
	}
	n, err := v.AsInt()
	if err != nil {
		return err
	}
	if c.me.IsNull() || n > c.score {
		c.score, c.me, c.target = n, me, target
	}
	return nil
}

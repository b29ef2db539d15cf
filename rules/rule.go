package rules

import (
	"fmt"
	"slices"

	"github.com/nstehr/vimy/vimy-formula/formula"
)

// Candidate action types.
const (
	TypeMovement = "movement"
	TypeAttack   = "attack"
	TypeSupport  = "support"
)

// CandidateSpec is the source form of a candidate action as written in
// configuration or generated from a doctrine.
type CandidateSpec struct {
	Name       string
	Type       string
	Evaluation formula.Source
	Action     formula.Source
	Filters    map[string]formula.Source // keyed by pool: "me" or "target"
}

// CandidateAction is a named, typed behavior option. It is scored every
// cycle; the subjects that earned the last score are kept with it.
type CandidateAction struct {
	Name       string
	Type       string
	Evaluation *formula.Formula
	Action     *formula.Formula
	Filters    map[string]*formula.Formula

	score  int
	me     formula.Value
	target formula.Value
}

// Score is the result of the last evaluation, 0 when none succeeded.
func (c *CandidateAction) Score() int { return c.score }

// NewCandidateAction parses a candidate spec against table.
func NewCandidateAction(spec CandidateSpec, table *formula.Table) (*CandidateAction, error) {
	switch spec.Type {
	case TypeMovement, TypeAttack, TypeSupport:
	default:
		return nil, fmt.Errorf("candidate action %q: unknown type %q", spec.Name, spec.Type)
	}
	eval, err := formula.NewFromSource(spec.Evaluation, table)
	if err != nil {
		return nil, fmt.Errorf("candidate action %q evaluation: %w", spec.Name, err)
	}
	action, err := formula.NewFromSource(spec.Action, table)
	if err != nil {
		return nil, fmt.Errorf("candidate action %q action: %w", spec.Name, err)
	}
	c := &CandidateAction{Name: spec.Name, Type: spec.Type, Evaluation: eval, Action: action, Filters: map[string]*formula.Formula{}}
	names := make([]string, 0, len(spec.Filters))
	for name := range spec.Filters {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if name != "me" && name != "target" {
			return nil, fmt.Errorf("candidate action %q: filter %q must be me or target", spec.Name, name)
		}
		f, err := formula.NewFromSource(spec.Filters[name], table)
		if err != nil {
			return nil, fmt.Errorf("candidate action %q filter %q: %w", spec.Name, name, err)
		}
		c.Filters[name] = f
	}
	return c, nil
}

// BuildCandidates parses every spec. A spec that fails to parse is logged
// and left out; the others are kept in order.
func BuildCandidates(specs []CandidateSpec, table *formula.Table) []*CandidateAction {
	out := make([]*CandidateAction, 0, len(specs))
	for _, spec := range specs {
		c, err := NewCandidateAction(spec, table)
		if err != nil {
			LogFormulaError("candidate action dropped", err, "candidate", spec.Name)
			continue
		}
		out = append(out, c)
	}
	return out
}

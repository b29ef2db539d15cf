package rules

import (
	"errors"
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/model"
)

// State is everything one AI instance knows: the world it plays in, its
// side, its persistent variables, its function table and the per-cycle
// caches derived from the world. Callables and host functions hold a
// pointer to the State, never to a cached value, so a swapped or mutated
// world is always seen.
type State struct {
	World    *model.World
	Side     int
	Vars     *formula.Map
	Table    *formula.Table
	Doctrine Doctrine

	myMoves    *MoveMapCallable
	enemyMoves *MoveMapCallable
	attacks    []formula.Value
	scanned    bool
}

// NewState creates the AI state for side and registers the host functions
// into a fresh table.
func NewState(w *model.World, side int) *State {
	s := &State{World: w, Side: side, Vars: formula.NewMap(), Table: formula.NewTable(), Doctrine: DefaultDoctrine()}
	registerHostFunctions(s)
	return s
}

// Invalidate drops everything derived from the world. It must be called
// after every mutation of the world.
func (s *State) Invalidate() {
	s.myMoves = nil
	s.enemyMoves = nil
	s.attacks = nil
	s.scanned = false
}

// swapWorld installs w and returns the previous world.
func (s *State) swapWorld(w *model.World) *model.World {
	old := s.World
	s.World = w
	s.Invalidate()
	return old
}

// Root is the AI-wide evaluation context.
func (s *State) Root() formula.Callable { return &AICallable{s: s} }

// Context returns a fresh context on top of the AI root.
func (s *State) Context() *formula.MapCallable { return formula.NewMapCallable(s.Root()) }

// UnitValue wraps u as a unit object, null for a nil unit.
func (s *State) UnitValue(u *model.Unit) formula.Value { return s.unit(u) }

func (s *State) unit(u *model.Unit) formula.Value {
	if u == nil {
		return formula.Null
	}
	return formula.Object(&UnitCallable{u: u, s: s})
}

func (s *State) units(us []*model.Unit) formula.Value {
	out := make([]formula.Value, len(us))
	for i, u := range us {
		out[i] = s.unit(u)
	}
	return formula.List(out...)
}

// moveMap returns the cached reach of my units, or of enemy units at full
// movement.
func (s *State) moveMap(enemy bool) *MoveMapCallable {
	cached := &s.myMoves
	if enemy {
		cached = &s.enemyMoves
	}
	if *cached != nil {
		return *cached
	}
	m := &MoveMapCallable{s: s}
	for _, u := range s.World.Units {
		if enemy != s.World.IsEnemy(s.Side, u.Side) || (!enemy && u.Side != s.Side) {
			continue
		}
		mover := u
		if enemy {
			mover = u.Clone()
			mover.Moves = mover.MaxMoves
		}
		m.units = append(m.units, u)
		m.reach = append(m.reach, s.World.Reach(mover))
	}
	*cached = m
	return m
}

// LogFormulaError reports a script failure with enough context to find the
// offending line. Errors that are not formula errors are logged as is.
func LogFormulaError(msg string, err error, attrs ...any) {
	var fe *formula.Error
	if errors.As(err, &fe) {
		attrs = append(attrs, "kind", fe.Kind.String(), "formula", fe.Formula, "file", fe.Filename, "line", fe.Line, "error", fe.Msg)
	} else {
		attrs = append(attrs, "error", err)
	}
	slog.Warn(msg, attrs...)
}

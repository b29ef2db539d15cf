package formula

import "slices"

func init() {
	registerBuiltins(
		&Function{Name: "min", MinArgs: 1, MaxArgs: -1, Eval: eager(extremum(-1))},
		&Function{Name: "max", MinArgs: 1, MaxArgs: -1, Eval: eager(extremum(1))},
		&Function{Name: "sum", MinArgs: 1, MaxArgs: 2, Eval: eager(sum)},
		&Function{Name: "choose", MinArgs: 2, MaxArgs: 3, Eval: choose},
		&Function{Name: "sort", MinArgs: 1, MaxArgs: 2, Eval: sortFunc},
		&Function{Name: "filter", MinArgs: 2, MaxArgs: 3, Eval: filter},
		&Function{Name: "find", MinArgs: 2, MaxArgs: 3, Eval: find},
		&Function{Name: "map", MinArgs: 2, MaxArgs: 3, Eval: mapFunc},
	)
}

// extremum returns min (dir -1) or max (dir 1) over its arguments, with
// list arguments flattened in.
func extremum(dir int) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		var best Value
		found := false
		consider := func(v Value) {
			if !found || Compare(v, best)*dir > 0 {
				best, found = v, true
			}
		}
		for _, a := range args {
			if a.IsList() {
				for _, e := range a.list {
					consider(e)
				}
				continue
			}
			consider(a)
		}
		return best, nil
	}
}

func sum(args []Value) (Value, error) {
	items, err := args[0].AsList()
	if err != nil {
		return Null, err
	}
	total := Int(0)
	if len(args) == 2 {
		total = args[1]
	}
	for _, e := range items {
		if total, err = total.Add(e); err != nil {
			return Null, err
		}
	}
	return total, nil
}

// iteration is the shared shape of choose, filter, find and map: a
// collection, an optional element name and a per-element expression.
type iteration struct {
	src   Value
	items []Value
	name  string
	body  Expression
	ctx   Callable
}

func newIteration(ctx Callable, args []Expression) (*iteration, error) {
	src, err := args[0].Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	items, err := src.Items()
	if err != nil {
		return nil, err
	}
	it := &iteration{src: src, items: items, body: args[len(args)-1], ctx: ctx}
	if len(args) == 3 {
		if id, ok := args[1].(*identExpr); ok {
			it.name = id.name
		} else {
			n, err := args[1].Evaluate(ctx)
			if err != nil {
				return nil, err
			}
			if it.name, err = n.AsString(); err != nil {
				return nil, err
			}
		}
	}
	return it, nil
}

func (it *iteration) eval(elem Value) (Value, error) {
	return it.body.Evaluate(&elementCallable{elem: elem, name: it.name, backup: it.ctx})
}

// choose returns the element with the highest score; the first one wins ties.
func choose(ctx Callable, args []Expression) (Value, error) {
	it, err := newIteration(ctx, args)
	if err != nil {
		return Null, err
	}
	best, bestScore := Null, Null
	for i, e := range it.items {
		score, err := it.eval(e)
		if err != nil {
			return Null, err
		}
		if i == 0 || Compare(score, bestScore) > 0 {
			best, bestScore = e, score
		}
	}
	return best, nil
}

func filter(ctx Callable, args []Expression) (Value, error) {
	it, err := newIteration(ctx, args)
	if err != nil {
		return Null, err
	}
	var kept []Value
	for _, e := range it.items {
		ok, err := it.eval(e)
		if err != nil {
			return Null, err
		}
		if ok.Truthy() {
			kept = append(kept, e)
		}
	}
	if it.src.IsMap() {
		entries := make([]MapEntry, len(kept))
		for i, e := range kept {
			p := e.obj.(*pairCallable)
			entries[i] = MapEntry{Key: p.key, Value: p.value}
		}
		return MapValue(NewMap(entries...)), nil
	}
	return List(kept...), nil
}

func find(ctx Callable, args []Expression) (Value, error) {
	it, err := newIteration(ctx, args)
	if err != nil {
		return Null, err
	}
	for _, e := range it.items {
		ok, err := it.eval(e)
		if err != nil {
			return Null, err
		}
		if ok.Truthy() {
			return e, nil
		}
	}
	return Null, nil
}

// mapFunc transforms each element; over a map the keys are kept and the
// values replaced.
func mapFunc(ctx Callable, args []Expression) (Value, error) {
	it, err := newIteration(ctx, args)
	if err != nil {
		return Null, err
	}
	out := make([]Value, len(it.items))
	for i, e := range it.items {
		if out[i], err = it.eval(e); err != nil {
			return Null, err
		}
	}
	if it.src.IsMap() {
		entries := make([]MapEntry, len(out))
		for i, e := range it.src.m.Entries() {
			entries[i] = MapEntry{Key: e.Key, Value: out[i]}
		}
		return MapValue(NewMap(entries...)), nil
	}
	return List(out...), nil
}

// sortFunc sorts ascending, or by a comparator formula over a and b that is
// true when a goes before b. The sort is stable.
func sortFunc(ctx Callable, args []Expression) (Value, error) {
	v, err := args[0].Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	items, err := v.AsList()
	if err != nil {
		return Null, err
	}
	out := slices.Clone(items)
	if len(args) == 1 {
		slices.SortStableFunc(out, Compare)
		return List(out...), nil
	}
	var sortErr error
	less := func(a, b Value) bool {
		if sortErr != nil {
			return false
		}
		r, err := args[1].Evaluate(NewMapCallable(ctx).Set("a", a).Set("b", b))
		if err != nil {
			sortErr = err
			return false
		}
		return r.Truthy()
	}
	slices.SortStableFunc(out, func(a, b Value) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return Null, sortErr
	}
	return List(out...), nil
}

package formula

import (
	"log/slog"
	"strings"
)

func init() {
	registerBuiltins(
		&Function{Name: "if", MinArgs: 2, MaxArgs: -1, Eval: ifFunc},
		&Function{Name: "switch", MinArgs: 3, MaxArgs: -1, Eval: switchFunc},
		&Function{Name: "null", MinArgs: 0, MaxArgs: -1, Eval: func(Callable, []Expression) (Value, error) { return Null, nil }},
		&Function{Name: "refcount", MinArgs: 1, MaxArgs: 1, Eval: eager(refcount)},
		&Function{Name: "dir", MinArgs: 1, MaxArgs: 1, Eval: eager(dir)},
		&Function{Name: "debug_print", MinArgs: 1, MaxArgs: 2, Eval: eager(debugPrint)},
		&Function{Name: "size", MinArgs: 1, MaxArgs: 1, Eval: eager(size)},
		&Function{Name: "head", MinArgs: 1, MaxArgs: 1, Eval: eager(head)},
		&Function{Name: "keys", MinArgs: 1, MaxArgs: 1, Eval: eager(keys)},
		&Function{Name: "values", MinArgs: 1, MaxArgs: 1, Eval: eager(values)},
		&Function{Name: "tolist", MinArgs: 1, MaxArgs: 1, Eval: eager(tolist)},
		&Function{Name: "tomap", MinArgs: 1, MaxArgs: 2, Eval: eager(tomap)},
		&Function{Name: "index_of", MinArgs: 2, MaxArgs: 2, Eval: eager(indexOf)},
		&Function{Name: "reverse", MinArgs: 1, MaxArgs: 1, Eval: eager(reverse)},
		&Function{Name: "contains_string", MinArgs: 2, MaxArgs: 2, Eval: eager(containsString)},
		&Function{Name: "concatenate", MinArgs: 1, MaxArgs: -1, Eval: eager(concatenate)},
	)
}

// Eager adapts a function over evaluated arguments. Host functions that do
// not need lazy arguments are written this way.
func Eager(f func(args []Value) (Value, error)) FunctionFunc { return eager(f) }

// eager adapts a function over evaluated arguments.
func eager(f func(args []Value) (Value, error)) FunctionFunc {
	return func(ctx Callable, args []Expression) (Value, error) {
		vals, err := evalArgs(ctx, args)
		if err != nil {
			return Null, err
		}
		return f(vals)
	}
}

func evalArgs(ctx Callable, args []Expression) ([]Value, error) {
	out := make([]Value, len(args))
	for i, a := range args {
		v, err := a.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ifFunc is if(cond, then, [cond2, then2, ...], [else]).
func ifFunc(ctx Callable, args []Expression) (Value, error) {
	i := 0
	for ; i+1 < len(args); i += 2 {
		c, err := args[i].Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		if c.Truthy() {
			return args[i+1].Evaluate(ctx)
		}
	}
	if i < len(args) {
		return args[i].Evaluate(ctx)
	}
	return Null, nil
}

// switchFunc is switch(value, case1, result1, ..., [default]).
func switchFunc(ctx Callable, args []Expression) (Value, error) {
	v, err := args[0].Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	i := 1
	for ; i+1 < len(args); i += 2 {
		c, err := args[i].Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		if Equal(v, c) {
			return args[i+1].Evaluate(ctx)
		}
	}
	if i < len(args) {
		return args[i].Evaluate(ctx)
	}
	return Null, nil
}

// refcount reports whether v shares its storage with copies of itself.
func refcount(args []Value) (Value, error) {
	switch args[0].kind {
	case KindString, KindList, KindMap, KindObject:
		return Int(1), nil
	}
	return Int(0), nil
}

func dir(args []Value) (Value, error) {
	obj, err := args[0].AsCallable()
	if err != nil {
		return Null, err
	}
	names := obj.Inputs()
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = Str(n)
	}
	return List(out...), nil
}

func debugPrint(args []Value) (Value, error) {
	v := args[len(args)-1]
	if len(args) == 2 {
		slog.Info("formula debug", "label", args[0].String(), "value", v.DebugString())
	} else {
		slog.Info("formula debug", "value", v.DebugString())
	}
	return v, nil
}

func size(args []Value) (Value, error) {
	n, err := args[0].Len()
	if err != nil {
		return Null, err
	}
	return Int(n), nil
}

func head(args []Value) (Value, error) {
	items, err := args[0].AsList()
	if err != nil {
		return Null, err
	}
	if len(items) == 0 {
		return Null, nil
	}
	return items[0], nil
}

func keys(args []Value) (Value, error) {
	m, err := args[0].AsMap()
	if err != nil {
		return Null, err
	}
	return List(m.Keys()...), nil
}

func values(args []Value) (Value, error) {
	m, err := args[0].AsMap()
	if err != nil {
		return Null, err
	}
	out := make([]Value, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, e.Value)
	}
	return List(out...), nil
}

// tolist turns a map into a list of key/value pair objects.
func tolist(args []Value) (Value, error) {
	if _, err := args[0].AsMap(); err != nil {
		return Null, err
	}
	items, err := args[0].Items()
	if err != nil {
		return Null, err
	}
	return List(items...), nil
}

// tomap pairs a list of keys with a list of values, or with one list counts
// the occurrences of each element.
func tomap(args []Value) (Value, error) {
	ks, err := args[0].AsList()
	if err != nil {
		return Null, err
	}
	if len(args) == 1 {
		m := NewMap()
		for _, k := range ks {
			n, _ := m.Get(k)
			c, _ := n.AsInt()
			m = m.With(k, Int(c+1))
		}
		return MapValue(m), nil
	}
	vs, err := args[1].AsList()
	if err != nil {
		return Null, err
	}
	if len(ks) != len(vs) {
		return Null, errorf(RuntimeError, "tomap: %d keys but %d values", len(ks), len(vs))
	}
	entries := make([]MapEntry, len(ks))
	for i := range ks {
		entries[i] = MapEntry{Key: ks[i], Value: vs[i]}
	}
	return MapValue(NewMap(entries...)), nil
}

func indexOf(args []Value) (Value, error) {
	items, err := args[1].AsList()
	if err != nil {
		return Null, err
	}
	for i, e := range items {
		if Equal(e, args[0]) {
			return Int(i), nil
		}
	}
	return Int(-1), nil
}

func reverse(args []Value) (Value, error) {
	if s, err := args[0].AsString(); err == nil {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return Str(string(r)), nil
	}
	items, err := args[0].AsList()
	if err != nil {
		return Null, typeError("list or string", args[0])
	}
	out := make([]Value, len(items))
	for i, e := range items {
		out[len(items)-1-i] = e
	}
	return List(out...), nil
}

func containsString(args []Value) (Value, error) {
	s, err := args[0].AsString()
	if err != nil {
		return Null, err
	}
	sub, err := args[1].AsString()
	if err != nil {
		return Null, err
	}
	return Bool(strings.Contains(s, sub)), nil
}

func concatenate(args []Value) (Value, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(a.String())
	}
	return Str(b.String()), nil
}

package formula

import (
	"math/rand/v2"
)

// Expression is a node of a parsed formula. Nodes are immutable once built
// and may be evaluated any number of times.
type Expression interface {
	Evaluate(ctx Callable) (Value, error)
}

type constExpr struct {
	v Value
}

func (e *constExpr) Evaluate(Callable) (Value, error) { return e.v, nil }

type identExpr struct {
	name string
}

func (e *identExpr) Evaluate(ctx Callable) (Value, error) { return ctx.Get(e.name), nil }

// functionsExpr is the functions keyword: every name callable from here.
type functionsExpr struct {
	table *Table
}

func (e *functionsExpr) Evaluate(Callable) (Value, error) {
	names := e.table.Names()
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = Str(n)
	}
	return List(out...), nil
}

type listExpr struct {
	items []Expression
}

func (e *listExpr) Evaluate(ctx Callable) (Value, error) {
	out := make([]Value, len(e.items))
	for i, item := range e.items {
		v, err := item.Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		out[i] = v
	}
	return List(out...), nil
}

type mapExpr struct {
	keys, values []Expression
}

func (e *mapExpr) Evaluate(ctx Callable) (Value, error) {
	entries := make([]MapEntry, len(e.keys))
	for i := range e.keys {
		k, err := e.keys[i].Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		v, err := e.values[i].Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		entries[i] = MapEntry{Key: k, Value: v}
	}
	return MapValue(NewMap(entries...)), nil
}

type unaryExpr struct {
	op      string
	operand Expression
	line    int
}

func (e *unaryExpr) Evaluate(ctx Callable) (Value, error) {
	v, err := e.operand.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	if e.op == "not" {
		return Bool(!v.Truthy()), nil
	}
	r, err := v.Neg()
	if err != nil {
		return Null, atLine(err, e.line)
	}
	return r, nil
}

type binaryExpr struct {
	op          string
	left, right Expression
	line        int
}

func (e *binaryExpr) Evaluate(ctx Callable) (Value, error) {
	l, err := e.left.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	r, err := e.right.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	v, err := applyBinary(e.op, l, r)
	if err != nil {
		return Null, atLine(err, e.line)
	}
	return v, nil
}

func applyBinary(op string, l, r Value) (Value, error) {
	switch op {
	case "+":
		return l.Add(r)
	case "-":
		return l.Sub(r)
	case "*":
		return l.Mul(r)
	case "/":
		return l.Div(r)
	case "%":
		return l.Mod(r)
	case "^":
		return l.Pow(r)
	case "=":
		return Bool(Equal(l, r)), nil
	case "!=":
		return Bool(!Equal(l, r)), nil
	case "<":
		return Bool(Compare(l, r) < 0), nil
	case ">":
		return Bool(Compare(l, r) > 0), nil
	case "<=":
		return Bool(Compare(l, r) <= 0), nil
	case ">=":
		return Bool(Compare(l, r) >= 0), nil
	case "~":
		return Str(l.String() + r.String()), nil
	case "in":
		ok, err := r.Contains(l)
		if err != nil {
			return Null, err
		}
		return Bool(ok), nil
	case "d":
		return rollDice(l, r)
	}
	return Null, errorf(ParseError, "unknown operator %s", op)
}

// maxDice bounds the number of dice in one roll.
const maxDice = 10000

// rollDice sums n rolls of a die with the given number of faces.
func rollDice(n, faces Value) (Value, error) {
	count, err := n.AsInt()
	if err != nil {
		return Null, err
	}
	sides, err := faces.AsInt()
	if err != nil {
		return Null, err
	}
	if sides <= 0 {
		return Null, errorf(RuntimeError, "die with %d faces", sides)
	}
	if count > maxDice {
		return Null, errorf(RuntimeError, "%d dice is more than %d", count, maxDice)
	}
	total := 0
	for i := 0; i < count; i++ {
		total += rand.IntN(sides) + 1
	}
	return Int(total), nil
}

// logicalExpr short-circuits and yields one of its operands.
type logicalExpr struct {
	and         bool
	left, right Expression
}

func (e *logicalExpr) Evaluate(ctx Callable) (Value, error) {
	l, err := e.left.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	if l.Truthy() != e.and {
		return l, nil
	}
	return e.right.Evaluate(ctx)
}

// dotExpr evaluates its right side with the left object as the context.
type dotExpr struct {
	left, right Expression
	line        int
}

func (e *dotExpr) Evaluate(ctx Callable) (Value, error) {
	l, err := e.left.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	var target Callable
	switch l.kind {
	case KindObject:
		target = l.obj
	case KindMap:
		target = mapAttrs{m: l.m}
	case KindNull:
		return Null, nil
	default:
		return Null, atLine(typeError("object or map before '.'", l), e.line)
	}
	if d := callDepth(ctx); d > 0 {
		target = &depthCallable{Callable: target, depth: d}
	}
	return e.right.Evaluate(target)
}

type indexExpr struct {
	left, index Expression
	line        int
}

func (e *indexExpr) Evaluate(ctx Callable) (Value, error) {
	l, err := e.left.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	k, err := e.index.Evaluate(ctx)
	if err != nil {
		return Null, err
	}
	v, err := l.Index(k)
	if err != nil {
		return Null, atLine(err, e.line)
	}
	return v, nil
}

// whereExpr binds names visible to its body and to each other. Bindings are
// evaluated lazily, at most once per evaluation of the body.
type whereExpr struct {
	body  Expression
	names []string
	exprs []Expression
}

func (e *whereExpr) Evaluate(ctx Callable) (Value, error) {
	w := &whereCallable{def: e, base: ctx, cache: make(map[string]Value), busy: make(map[string]bool)}
	v, err := e.body.Evaluate(w)
	if w.err != nil {
		return Null, w.err
	}
	if err != nil {
		return Null, err
	}
	return v, nil
}

type whereCallable struct {
	def   *whereExpr
	base  Callable
	cache map[string]Value
	busy  map[string]bool
	err   error
}

func (w *whereCallable) Get(key string) Value {
	for i, name := range w.def.names {
		if name != key {
			continue
		}
		if v, ok := w.cache[key]; ok {
			return v
		}
		if w.busy[key] {
			w.fail(errorf(RuntimeError, "where binding %s refers to itself", key))
			return Null
		}
		w.busy[key] = true
		v, err := w.def.exprs[i].Evaluate(w)
		w.busy[key] = false
		if err != nil {
			w.fail(err)
			return Null
		}
		w.cache[key] = v
		return v
	}
	return w.base.Get(key)
}

func (w *whereCallable) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *whereCallable) Inputs() []string {
	return append(append([]string{}, w.def.names...), w.base.Inputs()...)
}

type callExpr struct {
	fn   *Function
	args []Expression
	line int
}

func (e *callExpr) Evaluate(ctx Callable) (Value, error) {
	v, err := e.fn.Eval(ctx, e.args)
	if err != nil {
		return Null, atLine(err, e.line)
	}
	return v, nil
}

package formula

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// FunctionFunc evaluates a call. It receives the unevaluated argument
// expressions so functions such as if and filter control evaluation.
type FunctionFunc func(ctx Callable, args []Expression) (Value, error)

// Function is a named function with its accepted argument count.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for no upper bound
	Eval    FunctionFunc
}

func (f *Function) checkArity(n int) error {
	if n < f.MinArgs || (f.MaxArgs >= 0 && n > f.MaxArgs) {
		want := fmt.Sprintf("%d", f.MinArgs)
		switch {
		case f.MaxArgs < 0:
			want += " or more"
		case f.MaxArgs != f.MinArgs:
			want = fmt.Sprintf("%d to %d", f.MinArgs, f.MaxArgs)
		}
		return errorf(ParseError, "function %s takes %s arguments, got %d", f.Name, want, n)
	}
	return nil
}

// builtins is the process-wide tier, filled once at init and read-only after.
var builtins = map[string]*Function{}

func registerBuiltins(fns ...*Function) {
	for _, f := range fns {
		builtins[f.Name] = f
	}
}

// Table is the per-host tier of the function registry: host-injected
// functions plus custom functions defined by configuration or def. Name
// resolution asks the host functions, then custom functions, then the
// built-ins. A nil *Table resolves built-ins only.
type Table struct {
	host   map[string]*Function
	custom map[string]*CustomFunction
}

func NewTable() *Table {
	return &Table{host: make(map[string]*Function), custom: make(map[string]*CustomFunction)}
}

// Register adds host functions, replacing any of the same name.
func (t *Table) Register(fns ...*Function) {
	for _, f := range fns {
		t.host[f.Name] = f
	}
}

// AddCustom defines a custom function. A trailing * on the last parameter
// name marks it as the self argument. The body and optional precondition
// are parsed against t, so the function may call itself.
func (t *Table) AddCustom(name string, params []string, body, precondition Source) (*CustomFunction, error) {
	cf := &CustomFunction{Name: name, Self: -1}
	for i, p := range params {
		if strings.HasSuffix(p, "*") {
			if i != len(params)-1 {
				return nil, errorf(ParseError, "only the last parameter of %s may be marked *", name)
			}
			p = strings.TrimSuffix(p, "*")
			cf.Self = i
		}
		cf.Params = append(cf.Params, p)
	}
	prev, existed := t.custom[name]
	t.custom[name] = cf
	restore := func() {
		if existed {
			t.custom[name] = prev
		} else {
			delete(t.custom, name)
		}
	}
	var err error
	if cf.Body, err = NewFromSource(body, t); err != nil {
		restore()
		return nil, fmt.Errorf("custom function %s: %w", name, err)
	}
	if strings.TrimSpace(precondition.Text) != "" {
		if cf.Precondition, err = NewFromSource(precondition, t); err != nil {
			restore()
			return nil, fmt.Errorf("custom function %s precondition: %w", name, err)
		}
	}
	return cf, nil
}

// Custom returns a custom function by name.
func (t *Table) Custom(name string) (*CustomFunction, bool) {
	if t == nil {
		return nil, false
	}
	cf, ok := t.custom[name]
	return cf, ok
}

// Names lists every resolvable function name, sorted.
func (t *Table) Names() []string {
	seen := make(map[string]bool)
	for n := range builtins {
		seen[n] = true
	}
	if t != nil {
		for n := range t.host {
			seen[n] = true
		}
		for n := range t.custom {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// build resolves name at parse time. Unknown names are parse errors.
func (t *Table) build(name string, args []Expression, line int) (Expression, error) {
	if t != nil {
		if f, ok := t.host[name]; ok {
			return newCall(f, args, line)
		}
		if cf, ok := t.custom[name]; ok {
			if len(args) != len(cf.Params) {
				return nil, errorf(ParseError, "function %s takes %d arguments, got %d", name, len(cf.Params), len(args))
			}
			return &customCallExpr{fn: cf, args: args, line: line}, nil
		}
	}
	if f, ok := builtins[name]; ok {
		return newCall(f, args, line)
	}
	return nil, errorf(ParseError, "unknown function %s", name)
}

func newCall(f *Function, args []Expression, line int) (Expression, error) {
	if err := f.checkArity(len(args)); err != nil {
		return nil, err
	}
	return &callExpr{fn: f, args: args, line: line}, nil
}

// maxCallDepth bounds custom function recursion.
const maxCallDepth = 1000

// CustomFunction is a user-defined function: a body formula evaluated in a
// fresh context holding only its parameters.
type CustomFunction struct {
	Name         string
	Params       []string
	Self         int // index of the self parameter, -1 when there is none
	Body         *Formula
	Precondition *Formula
}

type customCallExpr struct {
	fn   *CustomFunction
	args []Expression
	line int
}

func (e *customCallExpr) Evaluate(ctx Callable) (Value, error) {
	depth := callDepth(ctx) + 1
	if depth > maxCallDepth {
		return Null, atLine(errorf(RuntimeError, "call depth exceeded in %s", e.fn.Name), e.line)
	}
	return e.fn.call(ctx, e.args, depth)
}

func (cf *CustomFunction) call(ctx Callable, args []Expression, depth int) (Value, error) {
	fctx := NewMapCallable(nil)
	fctx.depth = depth
	for i, p := range cf.Params {
		v, err := args[i].Evaluate(ctx)
		if err != nil {
			return Null, err
		}
		fctx.Set(p, v)
		if i == cf.Self {
			fctx.fallback = v.Callable()
		}
	}
	if cf.Precondition != nil {
		ok, err := cf.Precondition.Evaluate(fctx)
		if err != nil {
			return Null, err
		}
		if !ok.Truthy() {
			// A failed precondition is reported but does not stop the call.
			attrs := []any{"function", cf.Name}
			for _, p := range cf.Params {
				attrs = append(attrs, p, fctx.values[p].DebugString())
			}
			slog.Warn("formula function precondition failed", attrs...)
		}
	}
	return cf.Body.Evaluate(fctx)
}

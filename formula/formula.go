package formula

import "strings"

// InlineFilename marks formulas that did not come from a file.
const InlineFilename = "<inline>"

// Source is formula text with the place it was read from. Line is the
// 1-based line of the first character of Text, 0 when unknown.
type Source struct {
	Text     string
	Filename string
	Line     int
}

// Formula is parsed formula text, ready to evaluate against a context.
type Formula struct {
	src      string
	filename string
	line     int
	expr     Expression
}

// New parses inline formula text. Calls resolve against table; a nil table
// sees only the built-in functions.
func New(text string, table *Table) (*Formula, error) {
	return NewFromSource(Source{Text: text}, table)
}

func NewFromSource(s Source, table *Table) (*Formula, error) {
	if s.Filename == "" {
		s.Filename = InlineFilename
	}
	f := &Formula{src: s.Text, filename: s.Filename, line: s.Line}
	e, err := parse(s, table)
	if err != nil {
		return nil, f.attach(err)
	}
	f.expr = e
	return f, nil
}

// NewOptional is NewFromSource that yields a nil formula for blank text.
func NewOptional(s Source, table *Table) (*Formula, error) {
	if strings.TrimSpace(s.Text) == "" {
		return nil, nil
	}
	return NewFromSource(s, table)
}

// Evaluate runs the formula. A nil ctx is an empty context, and a nil
// formula evaluates to null.
func (f *Formula) Evaluate(ctx Callable) (Value, error) {
	if f == nil {
		return Null, nil
	}
	if ctx == nil {
		ctx = emptyCallable{}
	}
	v, err := f.expr.Evaluate(ctx)
	if err != nil {
		return Null, f.attach(err)
	}
	return v, nil
}

func (f *Formula) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

// Eval parses and evaluates text in one step.
func Eval(text string, ctx Callable, table *Table) (Value, error) {
	f, err := New(text, table)
	if err != nil {
		return Null, err
	}
	return f.Evaluate(ctx)
}

package formula

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a formula failure.
type ErrorKind int

const (
	TokenizerError ErrorKind = iota // unrecognized character
	ParseError                      // unresolved function, wrong arity, bad syntax
	TypeError                       // operation applied to an incompatible kind
	RuntimeError                    // explicit domain error such as division by zero
)

func (k ErrorKind) String() string {
	switch k {
	case TokenizerError:
		return "tokenizer error"
	case ParseError:
		return "parse error"
	case TypeError:
		return "type error"
	case RuntimeError:
		return "runtime error"
	}
	return "formula error"
}

// Error is raised for malformed formula text or a failed evaluation. It never
// indicates a host failure; callers recover from it locally.
type Error struct {
	Kind     ErrorKind
	Msg      string
	Formula  string // offending formula text
	Filename string // "<inline>" or the file the formula came from
	Line     int    // 0 when not determinable

	// relLine is the 1-based line inside Formula recorded at the failure
	// site; resolved marks that Formula/Filename/Line are final.
	relLine  int
	resolved bool
}

func (e *Error) Error() string {
	if e.Formula == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s (in %s:%d: %q)", e.Kind, e.Msg, e.Filename, e.Line, e.Formula)
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Errorf builds a script error for host functions.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return errorf(kind, format, args...)
}

// IsFormulaError reports whether err is (or wraps) a script error rather
// than a host failure.
func IsFormulaError(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

// atLine records the position of the failing node if none was recorded yet.
func atLine(err error, line int) error {
	var fe *Error
	if errors.As(err, &fe) && !fe.resolved && fe.relLine == 0 {
		fe.relLine = line
	}
	return err
}

// attach fills in the formula text and location once, at the innermost
// formula that saw the error.
func (f *Formula) attach(err error) error {
	var fe *Error
	if !errors.As(err, &fe) || fe.resolved {
		return err
	}
	fe.Formula = f.src
	fe.Filename = f.filename
	fe.Line = 0
	if f.line > 0 {
		fe.Line = f.line
		if fe.relLine > 0 {
			fe.Line += fe.relLine - 1
		}
	}
	fe.resolved = true
	return err
}

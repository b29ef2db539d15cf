// Package formula implements the AI scripting language: a dynamically typed
// value model, a tokenizer, a Pratt parser building an expression tree bound
// to a function table, and the evaluator that walks that tree against a
// named-attribute context.
package formula

import (
	"math"
	"strings"
)

// Kind is the tag of a Value. The declaration order doubles as the rank used
// to order values of different kinds.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindDecimal
	KindObject
	KindList
	KindString
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// DecimalScale is the fixed-point multiplier of decimal values: a decimal
// stores its value times 1000, giving three fractional digits.
const DecimalScale = 1000

// Value is the single datum of the formula language. The zero Value is null.
// Strings, lists, maps and objects share their backing storage, so copying a
// Value is O(1); no operation ever mutates a shared payload in place.
type Value struct {
	kind Kind
	n    int64
	s    string
	list []Value
	m    *Map
	obj  Callable
}

// Null is the null value.
var Null = Value{}

// Int returns an integer value.
func Int(n int) Value { return Value{kind: KindInt, n: int64(n)} }

// Dec returns a decimal value from its scaled representation, so Dec(1500)
// is 1.5.
func Dec(scaled int64) Value { return Value{kind: KindDecimal, n: scaled} }

// DecFromFloat quantizes f to three fractional digits, rounding half up.
func DecFromFloat(f float64) Value { return Dec(int64(math.Floor(f*DecimalScale + 0.5))) }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns integer 1 for true and 0 for false; the language has no
// separate boolean kind.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// List returns a list holding items. The slice is owned by the value
// afterwards and must not be modified by the caller.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// MapValue wraps m as a value. A nil map becomes an empty map.
func MapValue(m *Map) Value {
	if m == nil {
		m = &Map{}
	}
	return Value{kind: KindMap, m: m}
}

// Object wraps a host callable. A nil callable becomes null.
func Object(c Callable) Value {
	if c == nil {
		return Null
	}
	return Value{kind: KindObject, obj: c}
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) IsInt() bool      { return v.kind == KindInt }
func (v Value) IsDecimal() bool  { return v.kind == KindDecimal }
func (v Value) IsString() bool   { return v.kind == KindString }
func (v Value) IsList() bool     { return v.kind == KindList }
func (v Value) IsMap() bool      { return v.kind == KindMap }
func (v Value) IsObject() bool   { return v.kind == KindObject }
func (v Value) isNumeric() bool  { return v.kind == KindInt || v.kind == KindDecimal }
func (v Value) arithmetic() bool { return v.isNumeric() || v.kind == KindNull }

// AsInt converts integers, decimals (truncated) and null (0).
func (v Value) AsInt() (int, error) {
	switch v.kind {
	case KindInt:
		return int(v.n), nil
	case KindDecimal:
		return int(v.n / DecimalScale), nil
	case KindNull:
		return 0, nil
	}
	return 0, typeError("integer", v)
}

// AsDecimal returns the scaled decimal representation of a numeric value.
func (v Value) AsDecimal() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.n * DecimalScale, nil
	case KindDecimal:
		return v.n, nil
	case KindNull:
		return 0, nil
	}
	return 0, typeError("decimal", v)
}

// AsFloat is AsDecimal as a float64.
func (v Value) AsFloat() (float64, error) {
	d, err := v.AsDecimal()
	if err != nil {
		return 0, err
	}
	return float64(d) / DecimalScale, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", typeError("string", v)
	}
	return v.s, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, typeError("list", v)
	}
	return v.list, nil
}

func (v Value) AsMap() (*Map, error) {
	if v.kind != KindMap {
		return nil, typeError("map", v)
	}
	return v.m, nil
}

func (v Value) AsCallable() (Callable, error) {
	if v.kind != KindObject {
		return nil, typeError("object", v)
	}
	return v.obj, nil
}

// Callable returns the wrapped object, or nil for any other kind.
func (v Value) Callable() Callable {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Truthy reports the boolean meaning of v: null, zero, the empty string and
// empty collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInt, KindDecimal:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return v.m.Len() > 0
	case KindObject:
		return true
	}
	return false
}

// Len is num_elements: the size of a list or map; an object counts as one.
func (v Value) Len() (int, error) {
	switch v.kind {
	case KindList:
		return len(v.list), nil
	case KindMap:
		return v.m.Len(), nil
	case KindObject:
		return 1, nil
	}
	return 0, typeError("list, map or object", v)
}

func (v Value) IsEmpty() (bool, error) {
	n, err := v.Len()
	return n == 0, err
}

// Index implements value[key]. Lists take an integer index and fail when it
// is out of range, maps return null for a missing key, and an object indexed
// at 0 is the object itself.
func (v Value) Index(key Value) (Value, error) {
	switch v.kind {
	case KindList:
		if key.kind != KindInt {
			return Null, typeError("integer index", key)
		}
		i := int(key.n)
		if i < 0 || i >= len(v.list) {
			return Null, errorf(RuntimeError, "list index %d out of range (size %d)", i, len(v.list))
		}
		return v.list[i], nil
	case KindMap:
		val, _ := v.m.Get(key)
		return val, nil
	case KindObject:
		if key.kind == KindInt && key.n == 0 {
			return v, nil
		}
		return Null, errorf(RuntimeError, "object index %s out of range", key.String())
	}
	return Null, typeError("list, map or object", v)
}

// Contains implements the in operator: list membership or map key presence.
func (v Value) Contains(item Value) (bool, error) {
	switch v.kind {
	case KindList:
		for _, e := range v.list {
			if Equal(e, item) {
				return true, nil
			}
		}
		return false, nil
	case KindMap:
		_, ok := v.m.Get(item)
		return ok, nil
	}
	return false, typeError("list or map", v)
}

// Items returns the elements of a list, or the key/value pairs of a map as
// pair objects; the iterating built-ins accept either.
func (v Value) Items() ([]Value, error) {
	switch v.kind {
	case KindList:
		return v.list, nil
	case KindMap:
		out := make([]Value, 0, v.m.Len())
		for _, e := range v.m.entries {
			out = append(out, Object(&pairCallable{key: e.Key, value: e.Value}))
		}
		return out, nil
	}
	return nil, typeError("list or map", v)
}

func typeError(want string, got Value) *Error {
	return errorf(TypeError, "expected %s, got %s", want, got.kind)
}

// String is the display form used by string concatenation and logging.
func (v Value) String() string {
	var b strings.Builder
	_ = v.write(&b, modeDisplay, nil)
	return b.String()
}

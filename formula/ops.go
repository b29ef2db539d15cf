package formula

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Add concatenates two lists, unions two maps (the right operand wins on a
// shared key) and otherwise adds numerically, promoting to decimal when
// either side is decimal.
func (v Value) Add(o Value) (Value, error) {
	switch {
	case v.kind == KindList && o.kind == KindList:
		out := make([]Value, 0, len(v.list)+len(o.list))
		out = append(out, v.list...)
		out = append(out, o.list...)
		return List(out...), nil
	case v.kind == KindMap && o.kind == KindMap:
		return MapValue(v.m.Union(o.m)), nil
	}
	return numeric("+", v, o,
		func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b int64) (int64, error) { return a + b, nil })
}

func (v Value) Sub(o Value) (Value, error) {
	return numeric("-", v, o,
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b int64) (int64, error) { return a - b, nil })
}

func (v Value) Mul(o Value) (Value, error) {
	return numeric("*", v, o,
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b int64) (int64, error) { return divRound(a*b, DecimalScale), nil })
}

// Div truncates integer division and rounds decimal division half away from
// zero at the third fractional digit.
func (v Value) Div(o Value) (Value, error) {
	return numeric("/", v, o,
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errorf(RuntimeError, "division by zero")
			}
			return a / b, nil
		},
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errorf(RuntimeError, "division by zero")
			}
			return divRound(a*DecimalScale, b), nil
		})
}

func (v Value) Mod(o Value) (Value, error) {
	mod := func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errorf(RuntimeError, "modulo by zero")
		}
		return a % b, nil
	}
	return numeric("%", v, o, mod, mod)
}

// Pow raises v to o. Integer powers with a non-negative exponent stay
// integers; everything else goes through math.Pow and is re-quantized.
func (v Value) Pow(o Value) (Value, error) {
	if !v.arithmetic() || !o.arithmetic() {
		return Null, opError("^", v, o)
	}
	if v.kind != KindDecimal && o.kind != KindDecimal && o.n >= 0 {
		result, ok := powInt(v.n, o.n)
		if !ok {
			return Null, errorf(RuntimeError, "integer overflow in %d ^ %d", v.n, o.n)
		}
		return Value{kind: KindInt, n: result}, nil
	}
	base, _ := v.AsFloat()
	exp, _ := o.AsFloat()
	r := math.Pow(base, exp)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Null, errorf(RuntimeError, "%s ^ %s is not a real number", v, o)
	}
	return DecFromFloat(r), nil
}

// powInt is exponentiation by squaring; ok is false on overflow.
func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	ok := true
	for exp > 0 {
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	return c, c/b == a
}

func (v Value) Neg() (Value, error) {
	switch v.kind {
	case KindInt, KindDecimal:
		return Value{kind: v.kind, n: -v.n}, nil
	case KindNull:
		return Int(0), nil
	}
	return Null, typeError("number", v)
}

func numeric(op string, a, b Value, ints, decs func(x, y int64) (int64, error)) (Value, error) {
	if !a.arithmetic() || !b.arithmetic() {
		return Null, opError(op, a, b)
	}
	if a.kind == KindDecimal || b.kind == KindDecimal {
		x, _ := a.AsDecimal()
		y, _ := b.AsDecimal()
		r, err := decs(x, y)
		if err != nil {
			return Null, err
		}
		return Dec(r), nil
	}
	r, err := ints(a.n, b.n)
	if err != nil {
		return Null, err
	}
	return Value{kind: KindInt, n: r}, nil
}

func opError(op string, a, b Value) *Error {
	return errorf(TypeError, "operator %s not defined for %s and %s", op, a.kind, b.kind)
}

// divRound divides rounding half away from zero.
func divRound(num, den int64) int64 {
	q := num / den
	r := num % den
	if r < 0 {
		r = -r
	}
	absDen := den
	if absDen < 0 {
		absDen = -absDen
	}
	if 2*r >= absDen {
		if (num < 0) != (den < 0) {
			q--
		} else {
			q++
		}
	}
	return q
}

// Compare totally orders all values. Integers and decimals compare
// numerically with each other; other kind mismatches fall back to the rank
// of the kind.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.isNumeric() && b.isNumeric() {
			x, _ := a.AsDecimal()
			y, _ := b.AsDecimal()
			return cmp.Compare(x, y)
		}
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case KindInt, KindDecimal:
		return cmp.Compare(a.n, b.n)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindList:
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			if c := Compare(a.list[i], b.list[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.list), len(b.list))
	case KindMap:
		ae, be := a.m.entries, b.m.entries
		for i := 0; i < len(ae) && i < len(be); i++ {
			if c := Compare(ae[i].Key, be[i].Key); c != 0 {
				return c
			}
			if c := Compare(ae[i].Value, be[i].Value); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(ae), len(be))
	case KindObject:
		return compareObjects(a.obj, b.obj)
	}
	return 0
}

// Equal is Compare(a, b) == 0.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// Less is Compare(a, b) < 0.
func Less(a, b Value) bool { return Compare(a, b) < 0 }

func compareObjects(a, b Callable) int {
	if ac, ok := a.(Comparer); ok {
		if c, ok := ac.CompareTo(b); ok {
			return c
		}
	}
	if c := strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); c != 0 {
		return c
	}
	as, aok := a.(Serializer)
	bs, bok := b.(Serializer)
	if aok && bok {
		if c := strings.Compare(as.Serialize(), bs.Serialize()); c != 0 {
			return c
		}
	}
	return cmp.Compare(identity(a), identity(b))
}

// identity is the address of pointer-shaped objects, 0 otherwise.
func identity(c Callable) uintptr {
	rv := reflect.ValueOf(c)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.Pointer()
	}
	return 0
}

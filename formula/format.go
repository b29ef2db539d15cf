package formula

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type writeMode int

const (
	modeDisplay writeMode = iota
	modeSerialize
	modeDebug
)

// Serialize renders v as formula text that evaluates back to an equal value.
// Objects must implement Serializer.
func (v Value) Serialize() (string, error) {
	var b strings.Builder
	if err := v.write(&b, modeSerialize, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DebugString is like the display form but expands the attributes of
// objects one level deep, skipping objects already being expanded.
func (v Value) DebugString() string {
	var b strings.Builder
	_ = v.write(&b, modeDebug, make(map[Callable]bool))
	return b.String()
}

func (v Value) write(b *strings.Builder, mode writeMode, seen map[Callable]bool) error {
	switch v.kind {
	case KindNull:
		if mode == modeDisplay {
			b.WriteString("null")
		} else {
			b.WriteString("null()")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.n, 10))
	case KindDecimal:
		b.WriteString(formatDecimal(v.n, mode != modeDisplay))
	case KindString:
		if mode == modeDisplay {
			b.WriteString(v.s)
		} else {
			b.WriteString(quote(v.s))
		}
	case KindList:
		b.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := e.write(b, nested(mode), seen); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case KindMap:
		if v.m.Len() == 0 {
			b.WriteString("[->]")
			return nil
		}
		b.WriteByte('[')
		for i, e := range v.m.entries {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := e.Key.write(b, nested(mode), seen); err != nil {
				return err
			}
			b.WriteString(" -> ")
			if err := e.Value.write(b, nested(mode), seen); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case KindObject:
		return writeObject(b, v.obj, mode, seen)
	}
	return nil
}

// nested keeps strings quoted inside collections shown for display.
func nested(mode writeMode) writeMode {
	if mode == modeDisplay {
		return modeSerialize
	}
	return mode
}

func writeObject(b *strings.Builder, obj Callable, mode writeMode, seen map[Callable]bool) error {
	if s, ok := obj.(Serializer); ok && mode != modeDebug {
		b.WriteString(s.Serialize())
		return nil
	}
	if mode == modeSerialize {
		return errorf(TypeError, "object %s cannot be serialized", objectName(obj))
	}
	b.WriteString(objectName(obj))
	if mode != modeDebug || seen == nil {
		return nil
	}
	key := reflect.TypeOf(obj).Comparable()
	if key && seen[obj] {
		b.WriteString("{...}")
		return nil
	}
	if key {
		seen[obj] = true
		defer delete(seen, obj)
	}
	b.WriteByte('{')
	for i, name := range obj.Inputs() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		attr := obj.Get(name)
		if inner := attr.Callable(); inner != nil {
			// Only one level of object expansion.
			b.WriteString(objectName(inner))
			continue
		}
		_ = attr.write(b, modeDebug, nil)
	}
	b.WriteByte('}')
	return nil
}

func objectName(obj Callable) string {
	name := fmt.Sprintf("%T", obj)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSuffix(name, "Callable"), "Command")
}

// formatDecimal writes three fractional digits; the short form used for
// display drops a single trailing zero (2.000 shows as 2.00).
func formatDecimal(n int64, full bool) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%s%d.%03d", sign, n/DecimalScale, n%DecimalScale)
	if !full && strings.HasSuffix(s, "0") {
		s = s[:len(s)-1]
	}
	return s
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "[']") + "'"
}

package formula

import "slices"

// Callable is a named-attribute environment. Host entities implement it to
// expose read-only attributes to formulas; unknown attributes are null.
type Callable interface {
	Get(key string) Value
	Inputs() []string
}

// Serializer is implemented by objects that have a formula text form, such
// as loc(3, 4). Objects without it cannot be serialized.
type Serializer interface {
	Serialize() string
}

// Comparer lets an object order itself against another object. ok is false
// when the two objects are not comparable by the receiver.
type Comparer interface {
	CompareTo(other Callable) (c int, ok bool)
}

// MapCallable is an environment built from ordered name bindings. Lookups it
// cannot answer go to the fallback, which is how closures and self
// arguments see through to an outer object.
type MapCallable struct {
	names    []string
	values   map[string]Value
	fallback Callable
	depth    int
}

func NewMapCallable(fallback Callable) *MapCallable {
	return &MapCallable{values: make(map[string]Value), fallback: fallback}
}

// Set binds name to v and returns the receiver for chaining.
func (m *MapCallable) Set(name string, v Value) *MapCallable {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = v
	return m
}

func (m *MapCallable) Get(key string) Value {
	if v, ok := m.values[key]; ok {
		return v
	}
	if m.fallback != nil {
		return m.fallback.Get(key)
	}
	return Null
}

func (m *MapCallable) Inputs() []string {
	out := slices.Clone(m.names)
	if m.fallback != nil {
		for _, n := range m.fallback.Inputs() {
			if _, ok := m.values[n]; !ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// Fallback returns the delegate context, if any.
func (m *MapCallable) Fallback() Callable { return m.fallback }

// pairCallable is one key/value binding of a map seen as an object.
type pairCallable struct {
	key, value Value
}

func (p *pairCallable) Get(key string) Value {
	switch key {
	case "key":
		return p.key
	case "value":
		return p.value
	}
	return Null
}

func (p *pairCallable) Inputs() []string { return []string{"key", "value"} }

func (p *pairCallable) CompareTo(other Callable) (int, bool) {
	o, ok := other.(*pairCallable)
	if !ok {
		return 0, false
	}
	if c := Compare(p.key, o.key); c != 0 {
		return c, true
	}
	return Compare(p.value, o.value), true
}

// mapAttrs exposes the string keys of a map as attributes, so m.key reads
// m['key'].
type mapAttrs struct {
	m *Map
}

func (a mapAttrs) Get(key string) Value {
	v, _ := a.m.Get(Str(key))
	return v
}

func (a mapAttrs) Inputs() []string {
	var out []string
	for _, e := range a.m.Entries() {
		if e.Key.IsString() {
			out = append(out, e.Key.s)
		}
	}
	return out
}

// elementCallable is the context of one element inside filter, map, find
// and choose. Without a name the element's own attributes come first, then
// self and value name the element; with a name only that name is bound.
type elementCallable struct {
	elem   Value
	name   string
	backup Callable
}

func (e *elementCallable) Get(key string) Value {
	if e.name != "" {
		if key == e.name {
			return e.elem
		}
		return e.backup.Get(key)
	}
	if obj := e.elem.Callable(); obj != nil {
		if v := obj.Get(key); !v.IsNull() {
			return v
		}
	}
	if key == "self" || key == "value" {
		return e.elem
	}
	return e.backup.Get(key)
}

func (e *elementCallable) Inputs() []string {
	if e.name != "" {
		return append([]string{e.name}, e.backup.Inputs()...)
	}
	var out []string
	if obj := e.elem.Callable(); obj != nil {
		out = append(out, obj.Inputs()...)
	}
	out = append(out, "self", "value")
	return append(out, e.backup.Inputs()...)
}

// emptyCallable answers null for everything.
type emptyCallable struct{}

func (emptyCallable) Get(string) Value  { return Null }
func (emptyCallable) Inputs() []string { return nil }

// depthCallable keeps the custom-function depth when evaluation moves into
// an object's attributes after a '.'.
type depthCallable struct {
	Callable
	depth int
}

// callDepth finds the custom-function nesting depth of ctx.
func callDepth(ctx Callable) int {
	for ctx != nil {
		switch c := ctx.(type) {
		case *MapCallable:
			if c.depth > 0 {
				return c.depth
			}
			ctx = c.fallback
		case *whereCallable:
			ctx = c.base
		case *elementCallable:
			ctx = c.backup
		case *depthCallable:
			return c.depth
		default:
			return 0
		}
	}
	return 0
}

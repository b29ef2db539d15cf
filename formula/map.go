package formula

import (
	"slices"
	"sort"
)

// MapEntry is one key/value binding of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is an immutable associative collection keyed by Value. Entries are
// kept sorted by Compare, so iteration order is the key order.
type Map struct {
	entries []MapEntry
}

// NewMap builds a map from entries. When a key repeats, the later entry wins.
func NewMap(entries ...MapEntry) *Map {
	sorted := slices.Clone(entries)
	sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i].Key, sorted[j].Key) })
	out := sorted[:0]
	for _, e := range sorted {
		if n := len(out); n > 0 && Equal(out[n-1].Key, e.Key) {
			out[n-1].Value = e.Value
			continue
		}
		out = append(out, e)
	}
	return &Map{entries: out}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *Map) find(key Value) (int, bool) {
	if m == nil {
		return 0, false
	}
	i := sort.Search(len(m.entries), func(i int) bool { return Compare(m.entries[i].Key, key) >= 0 })
	return i, i < len(m.entries) && Equal(m.entries[i].Key, key)
}

// Get returns the value bound to key.
func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.find(key)
	if !ok {
		return Null, false
	}
	return m.entries[i].Value, true
}

// Entries returns the bindings in key order. The slice must not be modified.
func (m *Map) Entries() []MapEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Keys returns the keys in order.
func (m *Map) Keys() []Value {
	out := make([]Value, 0, m.Len())
	for _, e := range m.Entries() {
		out = append(out, e.Key)
	}
	return out
}

// With returns a new map with key bound to value.
func (m *Map) With(key, value Value) *Map {
	i, ok := m.find(key)
	entries := make([]MapEntry, 0, m.Len()+1)
	entries = append(entries, m.Entries()[:i]...)
	entries = append(entries, MapEntry{Key: key, Value: value})
	if ok {
		i++
	}
	entries = append(entries, m.Entries()[i:]...)
	return &Map{entries: entries}
}

// Union merges o into a copy of m; o's bindings override m's.
func (m *Map) Union(o *Map) *Map {
	entries := make([]MapEntry, 0, m.Len()+o.Len())
	entries = append(entries, m.Entries()...)
	entries = append(entries, o.Entries()...)
	return NewMap(entries...)
}

// Package jsonval implements the wire value model and JSON codec used by the
// bridge. A value is one of: nil, bool, float64, string, or *Table. Tables
// are the single generic container; whether a table is written as a JSON
// array or object is decided at encode time by one predicate (see IsArray).
package jsonval

// Value is a decoded or to-be-encoded JSON value: nil, bool, float64,
// string, or *Table. Values must be finite and acyclic.
type Value = any

// Key identifies a Table slot. Keys are either integers or strings; the two
// spaces are distinct (IntKey(1) is not StringKey("1")).
type Key struct {
	str   string
	index int
	isInt bool
}

func StringKey(s string) Key { return Key{str: s} }

func IntKey(i int) Key { return Key{index: i, isInt: true} }

// IsInt reports whether the key is an integer key.
func (k Key) IsInt() bool { return k.isInt }

// Index returns the integer key value. Only meaningful when IsInt is true.
func (k Key) Index() int { return k.index }

// Name returns the string key value. Only meaningful when IsInt is false.
func (k Key) Name() string { return k.str }

// Table is an ordered keyed container. Insertion order is preserved so that
// re-encoding is stable, but it carries no semantic meaning for object
// equality.
type Table struct {
	keys    []Key
	entries map[Key]Value
}

func NewTable() *Table {
	return &Table{entries: make(map[Key]Value)}
}

// Array builds a table with the integer keys 1..len(vals), which encodes as
// a JSON array (unless empty).
func Array(vals ...Value) *Table {
	t := NewTable()
	for _, v := range vals {
		t.Append(v)
	}
	return t
}

// Set inserts or replaces the entry for k. A nil value is stored as a
// present entry holding Null; use Delete to remove a key.
func (t *Table) Set(k Key, v Value) {
	if _, ok := t.entries[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.entries[k] = v
}

// SetString is Set with a string key.
func (t *Table) SetString(name string, v Value) { t.Set(StringKey(name), v) }

// SetIndex is Set with an integer key.
func (t *Table) SetIndex(i int, v Value) { t.Set(IntKey(i), v) }

// Append adds v under the next contiguous integer key (1-based).
func (t *Table) Append(v Value) {
	next := 0
	for _, k := range t.keys {
		if k.isInt && k.index > next {
			next = k.index
		}
	}
	t.Set(IntKey(next+1), v)
}

// Delete removes the entry for k if present.
func (t *Table) Delete(k Key) {
	if _, ok := t.entries[k]; !ok {
		return
	}
	delete(t.entries, k)
	for i, kk := range t.keys {
		if kk == k {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for k and whether the key is present. A key holding
// Null is present with a nil value.
func (t *Table) Get(k Key) (Value, bool) {
	v, ok := t.entries[k]
	return v, ok
}

// GetString is Get with a string key.
func (t *Table) GetString(name string) (Value, bool) { return t.Get(StringKey(name)) }

// Index is Get with an integer key.
func (t *Table) Index(i int) (Value, bool) { return t.Get(IntKey(i)) }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.keys) }

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (t *Table) Keys() []Key { return t.keys }

// IsArray reports whether the table encodes as a JSON array: its key set
// must be exactly the contiguous integers 1..N for some N >= 1. An empty
// table is NOT an array — it always encodes as {}, because an empty
// container carries no evidence of array-ness. This is the only place the
// discrimination heuristic lives.
func (t *Table) IsArray() (n int, ok bool) {
	n = len(t.keys)
	if n == 0 {
		return 0, false
	}
	for _, k := range t.keys {
		if !k.isInt || k.index < 1 || k.index > n {
			return 0, false
		}
	}
	// Keys are unique (map-backed), within 1..n, and there are n of them,
	// so they are exactly 1..n.
	return n, true
}

// Equal reports value equality. Tables compare as mappings: same key set,
// recursively equal values; insertion order is ignored. Numbers compare
// exactly, so NaN is never equal to anything including itself.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case *Table:
		bv, ok := b.(*Table)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, present := bv.Get(k)
			if !present || !Equal(av.entries[k], bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

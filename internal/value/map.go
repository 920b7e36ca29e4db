package value

// Key is the set of permitted map key types.
type Key interface {
	~int64 | ~string
}

// Elem is the set of permitted map value types.
type Elem interface {
	~int64 | ~float64 | ~string
}

// Map is a reference-shared associative array. Copying a Map copies the
// reference: mutation through one copy is visible through all others.
// Maps are single-thread only; crossing a thread boundary requires a
// deep copy (see Freeze).
type Map[K Key, V Elem] struct {
	t *table[K, V]
}

type table[K Key, V Elem] struct {
	entries map[K]V
}

// NewMap creates a new empty map.
func NewMap[K Key, V Elem]() Map[K, V] {
	return Map[K, V]{t: &table[K, V]{entries: make(map[K]V)}}
}

// FromGoMap creates a Map whose initial contents are copied from m.
func FromGoMap[K Key, V Elem](m map[K]V) Map[K, V] {
	t := &table[K, V]{entries: make(map[K]V, len(m))}
	for k, v := range m {
		t.entries[k] = v
	}
	return Map[K, V]{t: t}
}

// Lookup returns the value for key. If the key is absent it is inserted
// with the zero value first, so a subsequent Contains returns true
// (AWK semantics: referencing an array element creates it).
func (m Map[K, V]) Lookup(key K) V {
	v, ok := m.t.entries[key]
	if !ok {
		var zero V
		m.t.entries[key] = zero
		return zero
	}
	return v
}

// Peek returns the value for key without inserting on a miss.
func (m Map[K, V]) Peek(key K) (V, bool) {
	v, ok := m.t.entries[key]
	return v, ok
}

// Contains reports whether key is present.
func (m Map[K, V]) Contains(key K) bool {
	_, ok := m.t.entries[key]
	return ok
}

// Store inserts or overwrites the value for key.
func (m Map[K, V]) Store(key K, val V) {
	m.t.entries[key] = val
}

// Delete removes a single key. Deleting an absent key is a no-op.
func (m Map[K, V]) Delete(key K) {
	delete(m.t.entries, key)
}

// Clear removes all keys.
func (m Map[K, V]) Clear() {
	clear(m.t.entries)
}

// Len returns the number of keys.
func (m Map[K, V]) Len() int {
	return len(m.t.entries)
}

// SameRef reports whether two maps alias the same underlying table.
func (m Map[K, V]) SameRef(o Map[K, V]) bool {
	return m.t == o.t
}

// Iter returns a snapshot iterator over the current key set. Mutating
// the map after the snapshot is taken does not affect the iterator.
func (m Map[K, V]) Iter() *Iter[K] {
	keys := make([]K, 0, len(m.t.entries))
	for k := range m.t.entries {
		keys = append(keys, k)
	}
	return &Iter[K]{keys: keys}
}

// Freeze returns a plain, independently-owned copy of the map contents,
// safe to move across a thread boundary.
func (m Map[K, V]) Freeze() map[K]V {
	out := make(map[K]V, len(m.t.entries))
	for k, v := range m.t.entries {
		out[k] = v
	}
	return out
}

// IncInt adds delta to the integer value stored under key, inserting the
// zero value first if absent, and returns the new value.
func IncInt[K Key](m Map[K, int64], key K, delta int64) int64 {
	n := m.t.entries[key] + delta
	m.t.entries[key] = n
	return n
}

// IncFloat adds delta to the float value stored under key, inserting the
// zero value first if absent, and returns the new value.
func IncFloat[K Key](m Map[K, float64], key K, delta float64) float64 {
	n := m.t.entries[key] + delta
	m.t.entries[key] = n
	return n
}

// Iter is a snapshot iterator over a map's keys. The key set is
// materialized at creation time and never resizes afterward.
type Iter[K Key] struct {
	keys []K
	pos  int
}

// HasNext reports whether any keys remain.
func (it *Iter[K]) HasNext() bool {
	return it.pos < len(it.keys)
}

// Next returns the next key and advances the cursor. Calling Next with
// no remaining keys is a programming error and panics.
func (it *Iter[K]) Next() K {
	if it.pos >= len(it.keys) {
		panic("rawk: iterator exhausted")
	}
	k := it.keys[it.pos]
	it.pos++
	return k
}

// Len returns the total number of keys in the snapshot.
func (it *Iter[K]) Len() int {
	return len(it.keys)
}

package value

import (
	"sort"
	"testing"
)

func TestMapImplicitInsert(t *testing.T) {
	m := NewMap[string, int64]()

	if m.Contains("x") {
		t.Fatal("fresh map should not contain x")
	}
	if got := m.Lookup("x"); got != 0 {
		t.Errorf("Lookup on missing key = %d, want 0", got)
	}
	// The lookup itself must create the key.
	if !m.Contains("x") {
		t.Error("Lookup should insert the missing key")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestMapPeekDoesNotInsert(t *testing.T) {
	m := NewMap[int64, string]()
	if _, ok := m.Peek(5); ok {
		t.Fatal("Peek on empty map reported a hit")
	}
	if m.Len() != 0 {
		t.Errorf("Peek inserted a key: Len = %d", m.Len())
	}
}

func TestMapReferenceSharing(t *testing.T) {
	a := NewMap[string, int64]()
	b := a

	a.Store("k", 10)
	if got := b.Lookup("k"); got != 10 {
		t.Errorf("mutation through a not visible through b: got %d", got)
	}
	b.Store("k", 20)
	if got := a.Lookup("k"); got != 20 {
		t.Errorf("mutation through b not visible through a: got %d", got)
	}
	if !a.SameRef(b) {
		t.Error("copies should alias the same table")
	}
	if a.SameRef(NewMap[string, int64]()) {
		t.Error("distinct maps should not alias")
	}
}

func TestMapDeleteAndClear(t *testing.T) {
	m := NewMap[int64, int64]()
	for i := int64(0); i < 5; i++ {
		m.Store(i, i*i)
	}
	m.Delete(2)
	if m.Contains(2) {
		t.Error("Delete left the key behind")
	}
	m.Delete(99) // absent, no-op
	if m.Len() != 4 {
		t.Errorf("Len = %d, want 4", m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", m.Len())
	}
}

func TestIncInt(t *testing.T) {
	m := NewMap[string, int64]()

	if got := IncInt(m, "n", 1); got != 1 {
		t.Errorf("first IncInt = %d, want 1", got)
	}
	if got := IncInt(m, "n", 4); got != 5 {
		t.Errorf("second IncInt = %d, want 5", got)
	}
	if got := m.Lookup("n"); got != 5 {
		t.Errorf("stored value = %d, want 5", got)
	}
}

func TestIncFloat(t *testing.T) {
	m := NewMap[int64, float64]()
	IncFloat(m, 1, 0.5)
	if got := IncFloat(m, 1, 0.25); got != 0.75 {
		t.Errorf("IncFloat = %v, want 0.75", got)
	}
}

func TestIterSnapshot(t *testing.T) {
	m := NewMap[string, int64]()
	m.Store("a", 1)
	m.Store("b", 2)
	m.Store("c", 3)

	it := m.Iter()

	// Mutations after the snapshot must be invisible to the iterator.
	m.Delete("b")
	m.Store("d", 4)

	var keys []string
	for it.HasNext() {
		keys = append(keys, it.Next())
	}
	sort.Strings(keys)

	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("iterated %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestIterExhaustedPanics(t *testing.T) {
	m := NewMap[int64, int64]()
	m.Store(1, 1)
	it := m.Iter()
	it.Next()

	defer func() {
		if recover() == nil {
			t.Error("Next past the end should panic")
		}
	}()
	it.Next()
}

func TestFreezeIndependence(t *testing.T) {
	m := NewMap[string, string]()
	m.Store("k", "v")

	frozen := m.Freeze()
	m.Store("k", "changed")
	m.Store("new", "x")

	if frozen["k"] != "v" {
		t.Errorf("frozen copy mutated: %q", frozen["k"])
	}
	if _, ok := frozen["new"]; ok {
		t.Error("frozen copy grew with the source")
	}

	back := FromGoMap(frozen)
	back.Store("k", "other")
	if got := m.Lookup("k"); got != "changed" {
		t.Errorf("FromGoMap aliased the source: %q", got)
	}
}

package registry

import (
	"reflect"
	"testing"
)

func art(path string) *Artifact { return &Artifact{Path: path} }

func TestLRUCapacityClamped(t *testing.T) {
	for _, n := range []int{-3, 0} {
		if got := NewLRU(n).Capacity(); got != 1 {
			t.Errorf("NewLRU(%d).Capacity() = %d, want 1", n, got)
		}
	}
	if got := NewLRU(5).Capacity(); got != 5 {
		t.Errorf("NewLRU(5).Capacity() = %d, want 5", got)
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRU(2)
	c.Put("A", art("a"))
	c.Put("B", art("b"))

	if _, ok := c.Get("A"); !ok {
		t.Fatal("Get(A) missed after Put")
	}
	if evicted := c.Put("C", art("c")); evicted != "B" {
		t.Errorf("Put(C) evicted %q, want B", evicted)
	}

	if !c.Contains("A") || !c.Contains("C") {
		t.Errorf("cache keys = %v, want A and C", c.Keys())
	}
	if c.Contains("B") {
		t.Error("B survived eviction")
	}
}

func TestLRUMissHasNoSideEffect(t *testing.T) {
	c := NewLRU(2)
	c.Put("A", art("a"))
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) reported a hit")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after miss, want 1", c.Len())
	}
}

func TestLRUPutUpdateDoesNotEvict(t *testing.T) {
	c := NewLRU(2)
	c.Put("A", art("a"))
	c.Put("B", art("b"))
	if evicted := c.Put("A", art("a2")); evicted != "" {
		t.Errorf("updating Put evicted %q, want none", evicted)
	}
	got, _ := c.Get("A")
	if got.Path != "a2" {
		t.Errorf("updated value = %q, want a2", got.Path)
	}
	// A is now most recent, so a new key pushes out B.
	if evicted := c.Put("C", art("c")); evicted != "B" {
		t.Errorf("Put(C) evicted %q, want B", evicted)
	}
}

func TestLRUContainsDoesNotTouchRecency(t *testing.T) {
	c := NewLRU(2)
	c.Put("A", art("a"))
	c.Put("B", art("b"))
	if !c.Contains("A") {
		t.Fatal("Contains(A) = false")
	}
	// Contains must not have promoted A, so A is still the oldest.
	if evicted := c.Put("C", art("c")); evicted != "A" {
		t.Errorf("Put(C) evicted %q, want A", evicted)
	}
}

func TestLRUKeysMostRecentFirst(t *testing.T) {
	c := NewLRU(3)
	c.Put("A", art("a"))
	c.Put("B", art("b"))
	c.Put("C", art("c"))
	c.Get("A")
	want := []string{"A", "C", "B"}
	if got := c.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestLRURemoveAndClear(t *testing.T) {
	c := NewLRU(3)
	c.Put("A", art("a"))
	c.Put("B", art("b"))

	if !c.Remove("A") {
		t.Error("Remove(A) = false, want true")
	}
	if c.Remove("A") {
		t.Error("second Remove(A) = true, want false")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after remove, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", c.Len())
	}
	if evicted := c.Put("X", art("x")); evicted != "" {
		t.Errorf("Put after Clear evicted %q, want none", evicted)
	}
}

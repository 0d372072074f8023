package window

import "testing"

func TestRegistry_AllocGet(t *testing.T) {
	var r registry

	h := r.alloc("first")
	v, ok := r.get(h)
	if !ok {
		t.Fatal("get returned false for a live handle")
	}
	if v != "first" {
		t.Errorf("get = %v, want %q", v, "first")
	}
	if r.count() != 1 {
		t.Errorf("count = %d, want 1", r.count())
	}
}

func TestRegistry_Release(t *testing.T) {
	var r registry

	h := r.alloc("x")
	if !r.release(h) {
		t.Fatal("release returned false for a live handle")
	}
	if _, ok := r.get(h); ok {
		t.Error("get should fail after release")
	}
	if r.release(h) {
		t.Error("double release should return false")
	}
	if r.count() != 0 {
		t.Errorf("count = %d, want 0", r.count())
	}
}

func TestRegistry_StaleHandleAfterReuse(t *testing.T) {
	var r registry

	old := r.alloc("old")
	r.release(old)

	// The freed slot is reused, but the old handle must not resolve to
	// the new occupant.
	fresh := r.alloc("new")
	if fresh.slot != old.slot {
		t.Fatalf("slot not reused: got %d, want %d", fresh.slot, old.slot)
	}
	if _, ok := r.get(old); ok {
		t.Error("stale handle resolved after slot reuse")
	}
	v, ok := r.get(fresh)
	if !ok || v != "new" {
		t.Errorf("get(fresh) = %v, %v, want %q, true", v, ok, "new")
	}
}

func TestRegistry_ZeroHandle(t *testing.T) {
	var r registry
	r.alloc("x")

	var zero Handle
	if zero.Valid() {
		t.Error("zero handle should not be valid")
	}
	if _, ok := r.get(zero); ok {
		t.Error("zero handle should not resolve")
	}
}

func TestRegistry_Clear(t *testing.T) {
	var r registry

	h1 := r.alloc("a")
	h2 := r.alloc("b")
	r.clear()

	if r.count() != 0 {
		t.Errorf("count = %d, want 0", r.count())
	}
	if _, ok := r.get(h1); ok {
		t.Error("h1 should not resolve after clear")
	}

	// Pre-clear handles must not alias items allocated afterwards.
	h3 := r.alloc("c")
	if _, ok := r.get(h2); ok {
		t.Error("stale pre-clear handle resolved")
	}
	if v, ok := r.get(h3); !ok || v != "c" {
		t.Errorf("get(h3) = %v, %v, want %q, true", v, ok, "c")
	}
}

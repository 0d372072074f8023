package cache

import "testing"

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name    string
		typ     PolicyType
		wantErr bool
	}{
		{name: "lru", typ: PolicyLRU, wantErr: false},
		{name: "lfu", typ: PolicyLFU, wantErr: false},
		{name: "fifo", typ: PolicyFIFO, wantErr: false},
		{name: "unknown", typ: "clock", wantErr: true},
		{name: "empty", typ: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newPolicy(tt.typ)
			if (err != nil) != tt.wantErr {
				t.Errorf("newPolicy(%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
			}
			if !tt.wantErr && p == nil {
				t.Errorf("newPolicy(%q) returned nil policy", tt.typ)
			}
		})
	}
}

func TestLRUPolicy_EvictionOrder(t *testing.T) {
	p := newLRUPolicy()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	// Access refreshes recency.
	p.OnGet("a")

	want := []string{"b", "c", "a"}
	for _, w := range want {
		got, ok := p.Evict()
		if !ok {
			t.Fatalf("Evict returned empty, want %q", w)
		}
		if got != w {
			t.Errorf("Evict() = %q, want %q", got, w)
		}
	}

	if _, ok := p.Evict(); ok {
		t.Error("Evict should return false when empty")
	}
}

func TestLRUPolicy_ReputRefreshes(t *testing.T) {
	p := newLRUPolicy()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("a") // Replace counts as a fresh access.

	got, ok := p.Evict()
	if !ok || got != "b" {
		t.Errorf("Evict() = %q, %v, want %q, true", got, ok, "b")
	}
}

func TestLFUPolicy_EvictionOrder(t *testing.T) {
	p := newLFUPolicy()

	p.OnPut("rare")
	p.OnPut("common")
	p.OnPut("mid")

	p.OnGet("common")
	p.OnGet("common")
	p.OnGet("common")
	p.OnGet("mid")

	want := []string{"rare", "mid", "common"}
	for _, w := range want {
		got, ok := p.Evict()
		if !ok {
			t.Fatalf("Evict returned empty, want %q", w)
		}
		if got != w {
			t.Errorf("Evict() = %q, want %q", got, w)
		}
	}
}

func TestLFUPolicy_TieBreaksOldest(t *testing.T) {
	p := newLFUPolicy()

	// Both at frequency 1; the earlier insert loses.
	p.OnPut("first")
	p.OnPut("second")

	got, ok := p.Evict()
	if !ok || got != "first" {
		t.Errorf("Evict() = %q, %v, want %q, true", got, ok, "first")
	}
}

func TestLFUPolicy_RemoveMaintainsBuckets(t *testing.T) {
	p := newLFUPolicy()

	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.Remove("b")

	got, ok := p.Evict()
	if !ok || got != "a" {
		t.Errorf("Evict() = %q, %v, want %q, true", got, ok, "a")
	}
	if _, ok := p.Evict(); ok {
		t.Error("Evict should return false when empty")
	}

	// Removing an unknown key is a no-op.
	p.Remove("missing")
}

func TestFIFOPolicy_IgnoresAccess(t *testing.T) {
	p := newFIFOPolicy()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")

	// Heavy access must not change insertion order.
	p.OnGet("a")
	p.OnGet("a")
	p.OnGet("a")

	want := []string{"a", "b", "c"}
	for _, w := range want {
		got, ok := p.Evict()
		if !ok {
			t.Fatalf("Evict returned empty, want %q", w)
		}
		if got != w {
			t.Errorf("Evict() = %q, want %q", got, w)
		}
	}
}

func TestFIFOPolicy_Remove(t *testing.T) {
	p := newFIFOPolicy()

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.Remove("b")

	got, ok := p.Evict()
	if !ok || got != "a" {
		t.Errorf("Evict() = %q, %v, want %q, true", got, ok, "a")
	}
	got, ok = p.Evict()
	if !ok || got != "c" {
		t.Errorf("Evict() = %q, %v, want %q, true", got, ok, "c")
	}
}

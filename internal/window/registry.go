package window

// Handle identifies one materialized item. Handles are generation-checked:
// after the item is destroyed the handle stops resolving, even if its slot
// is later reused for another item. The zero Handle never resolves.
type Handle struct {
	slot uint32
	gen  uint32
}

// Valid reports whether the handle could ever resolve. It does not check
// liveness; use the renderer's Lookup for that.
func (h Handle) Valid() bool {
	return h.gen != 0
}

type regEntry struct {
	gen   uint32
	value any
	live  bool
}

// registry is a slot arena for materialized items. Freed slots are reused,
// with the generation bumped so stale handles miss.
type registry struct {
	entries []regEntry
	free    []uint32
	live    int
}

// alloc stores v and returns its handle.
func (r *registry) alloc(v any) Handle {
	r.live++
	if n := len(r.free); n > 0 {
		slot := r.free[n-1]
		r.free = r.free[:n-1]
		e := &r.entries[slot]
		e.value = v
		e.live = true
		return Handle{slot: slot, gen: e.gen}
	}
	r.entries = append(r.entries, regEntry{gen: 1, value: v, live: true})
	return Handle{slot: uint32(len(r.entries) - 1), gen: 1}
}

// get resolves a handle to its stored value.
func (r *registry) get(h Handle) (any, bool) {
	if int(h.slot) >= len(r.entries) {
		return nil, false
	}
	e := &r.entries[h.slot]
	if !e.live || e.gen != h.gen {
		return nil, false
	}
	return e.value, true
}

// release destroys the item behind h. Returns false if the handle was
// already dead.
func (r *registry) release(h Handle) bool {
	if int(h.slot) >= len(r.entries) {
		return false
	}
	e := &r.entries[h.slot]
	if !e.live || e.gen != h.gen {
		return false
	}
	e.live = false
	e.value = nil
	e.gen++
	r.live--
	r.free = append(r.free, h.slot)
	return true
}

// count returns the number of live items.
func (r *registry) count() int {
	return r.live
}

// clear destroys every live item. Slots and generations are preserved so
// handles issued before the clear keep failing rather than aliasing later
// allocations.
func (r *registry) clear() {
	for i := range r.entries {
		e := &r.entries[i]
		if e.live {
			e.live = false
			e.value = nil
			e.gen++
			r.free = append(r.free, uint32(i))
		}
	}
	r.live = 0
}

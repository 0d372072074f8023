package window

import (
	"math"
	"sync"

	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
)

// Renderer maintains the materialized slice of a bound list.
type Renderer struct {
	mu       sync.Mutex
	cfg      Config
	viewport int
	items    []any
	render   RenderFunc
	fraction float64
	offsets  []int // cumulative extents when HeightFunc is set

	start, end   int
	materialized map[int]Handle
	reg          registry

	recomputes        uint64
	totalMaterialized uint64
	totalDestroyed    uint64

	logger *logging.Logger
	bus    *event.Bus
}

// Item is one materialized item, as exposed by Items.
type Item struct {
	Index    int
	Handle   Handle
	Rendered any
}

// New creates a Renderer. Bind it to data before scrolling.
func New(cfg Config) *Renderer {
	cfg.setDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Renderer{
		cfg:          cfg,
		materialized: make(map[int]Handle),
		logger:       logger.WithComponent("window"),
		bus:          cfg.Bus,
	}
}

// Bind attaches the renderer to a data slice and render callback, replacing
// any previous binding. All previously materialized items are destroyed and
// the window is recomputed from the current scroll position.
func (r *Renderer) Bind(items []any, render RenderFunc) {
	r.mu.Lock()
	for idx, h := range r.materialized {
		r.destroyLocked(idx, h)
	}
	r.items = items
	r.render = render
	r.rebuildOffsetsLocked()
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// UpdateData replaces the bound data. Every materialized item is torn down
// and the window rebuilt from scratch, so render callbacks run again even
// for indices that stayed in range.
func (r *Renderer) UpdateData(items []any) {
	r.mu.Lock()
	for idx, h := range r.materialized {
		r.destroyLocked(idx, h)
	}
	r.items = items
	r.rebuildOffsetsLocked()
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// SetViewport sets the container extent in rows and recomputes.
func (r *Renderer) SetViewport(height int) {
	r.mu.Lock()
	if height < 0 {
		height = 0
	}
	r.viewport = height
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// ScrollToFraction scrolls to a position expressed as a fraction in [0, 1]
// of the scrollable extent.
func (r *Renderer) ScrollToFraction(f float64) {
	r.mu.Lock()
	r.fraction = clampFraction(f)
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// ScrollTo scrolls so the given index is the first visible item (as far as
// the scrollable extent allows).
func (r *Renderer) ScrollTo(index int) {
	r.mu.Lock()
	r.fraction = r.fractionForLocked(index)
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// ScrollBy moves the first visible item by delta items.
func (r *Renderer) ScrollBy(delta int) {
	r.mu.Lock()
	first := r.firstVisibleLocked()
	r.fraction = r.fractionForLocked(first + delta)
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// VisibleRange returns the current materialization range [start, end),
// buffer included.
func (r *Renderer) VisibleRange() (start, end int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start, r.end
}

// Configure applies a partial reconfiguration and recomputes once.
func (r *Renderer) Configure(o Overrides) {
	r.mu.Lock()
	if o.ItemHeight != nil && *o.ItemHeight > 0 {
		r.cfg.ItemHeight = *o.ItemHeight
		r.rebuildOffsetsLocked()
	}
	if o.Buffer != nil && *o.Buffer >= 0 {
		r.cfg.Buffer = *o.Buffer
	}
	if o.MinVisible != nil && *o.MinVisible > 0 {
		r.cfg.MinVisible = *o.MinVisible
	}
	if o.MaxVisible != nil && *o.MaxVisible > 0 {
		r.cfg.MaxVisible = *o.MaxVisible
	}
	if r.cfg.MaxVisible < r.cfg.MinVisible {
		r.cfg.MaxVisible = r.cfg.MinVisible
	}
	if o.SmoothScroll != nil {
		r.cfg.SmoothScroll = *o.SmoothScroll
	}
	ev := r.recomputeLocked()
	r.mu.Unlock()
	r.publish(ev)
}

// Lookup resolves a handle to its rendered value. Returns false once the
// item has left the materialization range.
func (r *Renderer) Lookup(h Handle) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reg.get(h)
}

// Items returns the materialized items in index order.
func (r *Renderer) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Item, 0, len(r.materialized))
	for i := r.start; i < r.end; i++ {
		h, ok := r.materialized[i]
		if !ok {
			continue
		}
		v, _ := r.reg.get(h)
		out = append(out, Item{Index: i, Handle: h, Rendered: v})
	}
	return out
}

// Offset returns the absolute extent offset of the item at index: the
// cumulative height of everything before it.
func (r *Renderer) Offset(index int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offsetLocked(index)
}

// Stats is a snapshot of the renderer's state.
type Stats struct {
	TotalItems        int     `json:"total_items"`
	Materialized      int     `json:"materialized"`
	Start             int     `json:"start"`
	End               int     `json:"end"`
	ScrollFraction    float64 `json:"scroll_fraction"`
	ItemsPerScreen    int     `json:"items_per_screen"`
	Buffer            int     `json:"buffer"`
	SmoothScroll      bool    `json:"smooth_scroll"`
	Recomputes        uint64  `json:"recomputes"`
	MaterializedTotal uint64  `json:"materialized_total"`
	DestroyedTotal    uint64  `json:"destroyed_total"`
}

// Stats returns a snapshot of the renderer's state.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		TotalItems:        len(r.items),
		Materialized:      r.reg.count(),
		Start:             r.start,
		End:               r.end,
		ScrollFraction:    r.fraction,
		ItemsPerScreen:    r.itemsPerScreenLocked(),
		Buffer:            r.cfg.Buffer,
		SmoothScroll:      r.cfg.SmoothScroll,
		Recomputes:        r.recomputes,
		MaterializedTotal: r.totalMaterialized,
		DestroyedTotal:    r.totalDestroyed,
	}
}

// recomputeLocked derives the materialization range from the scroll
// fraction, destroys items that left it, and renders items that entered it.
// Returns the event to publish after unlock, or nil if nothing changed.
func (r *Renderer) recomputeLocked() *event.WindowRecomputedEvent {
	total := len(r.items)
	perScreen := r.itemsPerScreenLocked()

	maxStart := total - perScreen
	if maxStart < 0 {
		maxStart = 0
	}
	// The small bias tolerates round-off from index -> fraction -> index
	// round trips in ScrollTo and ScrollBy.
	first := int(math.Floor(r.fraction*float64(maxStart) + 1e-9))
	if first > maxStart {
		first = maxStart
	}

	start := first - r.cfg.Buffer
	if start < 0 {
		start = 0
	}
	end := first + perScreen + r.cfg.Buffer
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	destroyed := 0
	for idx, h := range r.materialized {
		if idx < start || idx >= end {
			r.destroyLocked(idx, h)
			destroyed++
		}
	}

	made := 0
	if r.render != nil {
		for i := start; i < end; i++ {
			if _, ok := r.materialized[i]; ok {
				continue
			}
			r.materialized[i] = r.reg.alloc(r.render(i, r.items[i]))
			made++
		}
	}

	changed := start != r.start || end != r.end
	r.start, r.end = start, end
	r.recomputes++
	r.totalMaterialized += uint64(made)

	if !changed && made == 0 && destroyed == 0 {
		return nil
	}
	r.logger.Debug("window recomputed",
		"start", start, "end", end, "materialized", made, "destroyed", destroyed)
	ev := event.NewWindowRecomputedEvent(start, end, made, destroyed)
	return &ev
}

// destroyLocked tears down one materialized item.
func (r *Renderer) destroyLocked(idx int, h Handle) {
	rendered, _ := r.reg.get(h)
	r.reg.release(h)
	delete(r.materialized, idx)
	r.totalDestroyed++
	if r.cfg.OnDestroy != nil {
		r.cfg.OnDestroy(idx, rendered)
	}
}

// itemsPerScreenLocked computes how many items fit the viewport, clamped to
// the configured min/max.
func (r *Renderer) itemsPerScreenLocked() int {
	h := r.cfg.ItemHeight
	if r.cfg.HeightFunc != nil {
		if n := len(r.items); n > 0 {
			if avg := r.offsets[n] / n; avg > 0 {
				h = avg
			}
		}
	}
	if h <= 0 {
		h = 1
	}
	per := (r.viewport + h - 1) / h
	if per < r.cfg.MinVisible {
		per = r.cfg.MinVisible
	}
	if per > r.cfg.MaxVisible {
		per = r.cfg.MaxVisible
	}
	return per
}

// rebuildOffsetsLocked recomputes the cumulative extent table for variable
// item heights. With a fixed height, offsets are computed arithmetically
// and no table is kept.
func (r *Renderer) rebuildOffsetsLocked() {
	if r.cfg.HeightFunc == nil {
		r.offsets = nil
		return
	}
	r.offsets = make([]int, len(r.items)+1)
	for i, item := range r.items {
		h := r.cfg.HeightFunc(i, item)
		if h < 0 {
			h = 0
		}
		r.offsets[i+1] = r.offsets[i] + h
	}
}

func (r *Renderer) offsetLocked(index int) int {
	if index < 0 {
		return 0
	}
	if r.offsets != nil {
		if index >= len(r.offsets) {
			index = len(r.offsets) - 1
		}
		return r.offsets[index]
	}
	return index * r.cfg.ItemHeight
}

// fractionForLocked converts a target first-visible index into a scroll
// fraction.
func (r *Renderer) fractionForLocked(index int) float64 {
	total := len(r.items)
	maxStart := total - r.itemsPerScreenLocked()
	if maxStart <= 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index > maxStart {
		index = maxStart
	}
	return float64(index) / float64(maxStart)
}

// firstVisibleLocked returns the index of the first visible item.
func (r *Renderer) firstVisibleLocked() int {
	maxStart := len(r.items) - r.itemsPerScreenLocked()
	if maxStart < 0 {
		maxStart = 0
	}
	first := int(math.Floor(r.fraction*float64(maxStart) + 1e-9))
	if first > maxStart {
		first = maxStart
	}
	return first
}

func (r *Renderer) publish(ev *event.WindowRecomputedEvent) {
	if ev == nil || r.bus == nil {
		return
	}
	r.bus.Publish(*ev)
}

func clampFraction(f float64) float64 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

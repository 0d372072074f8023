package window

import (
	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
)

// Defaults applied when Config leaves a field unset. Buffer is the
// exception: zero is a valid explicit value, so only a negative Buffer
// falls back to the default.
const (
	defaultItemHeight = 1
	defaultBuffer     = 10
	defaultMinVisible = 1
	defaultMaxVisible = 200
)

// HeightFunc supplies a per-item extent for lists with variable item
// heights. When set, it overrides Config.ItemHeight.
type HeightFunc func(index int, item any) int

// RenderFunc materializes one item. It is called exactly once per item per
// stay inside the materialization range; the returned value is what Lookup
// and Items expose for the item's handle.
type RenderFunc func(index int, item any) any

// DestroyFunc is called when a materialized item leaves the range, with the
// value RenderFunc produced for it.
type DestroyFunc func(index int, rendered any)

// Config configures a Renderer. The zero value is usable.
type Config struct {
	// ItemHeight is the fixed per-item extent in rows. Ignored when
	// HeightFunc is set. Zero means defaultItemHeight.
	ItemHeight int

	// HeightFunc, when non-nil, supplies variable per-item extents.
	HeightFunc HeightFunc

	// Buffer is how many items beyond the visible range to keep
	// materialized on each side. Zero disables the buffer; negative
	// means defaultBuffer.
	Buffer int

	// MinVisible and MaxVisible clamp the computed items-per-screen.
	MinVisible int
	MaxVisible int

	// SmoothScroll enables fractional scrolling in hosts that support it.
	// The renderer only carries the flag; the optimizer may clear it
	// under load.
	SmoothScroll bool

	// OnDestroy, when non-nil, observes items leaving the range.
	OnDestroy DestroyFunc

	// Logger, when non-nil, receives renderer diagnostics.
	Logger *logging.Logger

	// Bus, when non-nil, receives WindowRecomputedEvent publications.
	Bus *event.Bus
}

func (c *Config) setDefaults() {
	if c.ItemHeight <= 0 {
		c.ItemHeight = defaultItemHeight
	}
	if c.Buffer < 0 {
		c.Buffer = defaultBuffer
	}
	if c.MinVisible <= 0 {
		c.MinVisible = defaultMinVisible
	}
	if c.MaxVisible <= 0 {
		c.MaxVisible = defaultMaxVisible
	}
	if c.MaxVisible < c.MinVisible {
		c.MaxVisible = c.MinVisible
	}
}

// Overrides is a partial reconfiguration: nil fields keep their current
// value. Applied atomically by Configure, followed by one recompute.
type Overrides struct {
	ItemHeight   *int
	Buffer       *int
	MinVisible   *int
	MaxVisible   *int
	SmoothScroll *bool
}

// Package window computes and maintains the materialized slice of a large
// list: only the items inside the visible range, plus a configurable buffer
// on each side, are ever rendered. Memory and per-frame work stay bounded by
// a constant regardless of how long the backing list grows, which is the
// property the optimizer leans on when it shrinks buffers under load.
//
// A Renderer is bound to a data slice and a render callback:
//
//	r := window.New(window.Config{ItemHeight: 1, Buffer: 10})
//	r.SetViewport(40)
//	r.Bind(rows, func(index int, item any) any {
//		return styleRow(item)
//	})
//
// Scrolling (ScrollTo, ScrollToFraction, ScrollBy) and data updates
// recompute the range: items leaving it are destroyed, items entering it are
// rendered exactly once, and every materialized item is assigned its
// absolute offset. Materialized items are tracked through generation-checked
// handles, so a handle held across a recompute that destroyed its item
// simply stops resolving instead of aliasing a newer item.
//
// Safe for concurrent use, but intended to be driven by a single host loop;
// the render callback is invoked synchronously under the renderer's lock and
// must not call back into the Renderer.
package window

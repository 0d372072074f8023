// Package optimizer is the engine's autonomic controller. On a sampling
// interval it captures a MetricsSnapshot of engine health (heap, CPU, host
// loop turnaround, render latency, cache and scheduler statistics), appends
// it to a bounded history ring, and evaluates a prioritized rule set
// against it.
//
// Rules are data: a predicate over the latest snapshot, a corrective
// action, a priority, and a cooldown. A rule fires only when its predicate
// trips and its cooldown has elapsed since the previous firing, which keeps
// a persistently-true condition from oscillating the system (fire, fix,
// immediately re-fire on noise). New rules are installed with AddRule
// without touching the sampling loop.
//
// The optimizer only reads the public statistics snapshots of the cache,
// scheduler, and registered renderers. It never takes another component's
// lock, so rule actions are free to call mutating operations (SetMaxBytes,
// SetWorkers, Configure) on those same components.
//
// Report produces a JSON-serializable self-description, Suggestions derives
// human-facing diagnostics purely from the latest snapshot, and
// ManualOptimize runs every action once synchronously as an operator escape
// hatch.
package optimizer

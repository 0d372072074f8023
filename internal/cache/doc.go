// Package cache provides a byte-budgeted in-memory key-value store with
// pluggable eviction policies, per-entry time-to-live, and tag/dependency
// invalidation.
//
// The cache never exceeds its configured byte budget: when an insert would
// overflow, entries are evicted under the active policy (LRU, LFU, or FIFO)
// until the new value fits, or the insert is rejected whole. Expired entries
// and entries whose dependencies have disappeared are treated as misses and
// removed on access, so invalidation propagates through dependency chains
// without recursive bookkeeping.
//
// The core type is [Cache]. Eviction behavior is selected with a
// [PolicyType] and can be changed at runtime via [Cache.SetPolicy], which
// the optimizer uses when re-tuning a cold cache.
//
// Usage:
//
//	c := cache.New(cache.Config{MaxBytes: 1 << 20, Policy: cache.PolicyLRU})
//	c.Put("user:42", profile, cache.WithTTL(5*time.Minute), cache.WithTags("users"))
//	if v, ok := c.Get("user:42"); ok {
//	    // ...
//	}
//	c.InvalidateByTag("users")
//
// # Thread Safety
//
// All Cache methods are safe for concurrent use. A single mutex covers each
// logical operation; it is never held while event handlers run.
package cache

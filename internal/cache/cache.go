package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/attunedev/attune/internal/event"
	"github.com/attunedev/attune/internal/logging"
)

// Removal reasons published with CacheEvictedEvent.
const (
	reasonCapacity   = "capacity"
	reasonExpired    = "expired"
	reasonTag        = "tag"
	reasonDependency = "dependency"
)

// Config holds the cache's construction-time settings.
type Config struct {
	// MaxBytes is the byte budget for all cached values combined
	// (0 = unbounded).
	MaxBytes int64

	// Policy selects the eviction policy. Defaults to PolicyLRU.
	Policy PolicyType

	// DefaultTTL applies to entries stored without an explicit TTL
	// (0 = no expiry).
	DefaultTTL time.Duration

	// FallbackEntryBytes is charged for values whose serialized size
	// cannot be computed. Defaults to 1024.
	FallbackEntryBytes int64

	// Logger receives debug/warn diagnostics. Defaults to a nop logger.
	Logger *logging.Logger

	// Bus, when non-nil, receives CacheEvictedEvent publications.
	Bus *event.Bus
}

// Cache is a byte-budgeted key-value store with TTL and tag/dependency
// invalidation. All methods are safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	pol      policy
	polType  PolicyType
	maxBytes int64
	used     int64

	// tagIndex maps a tag to the keys carrying it; depIndex maps a
	// dependency key to the keys depending on it. Both are maintained
	// incrementally so invalidation touches only affected entries.
	tagIndex map[string]map[string]struct{}
	depIndex map[string]map[string]struct{}

	defaultTTL    time.Duration
	fallbackBytes int64

	hits          uint64
	misses        uint64
	evictions     uint64
	expirations   uint64
	invalidations uint64

	logger *logging.Logger
	bus    *event.Bus
}

// New creates a Cache from the given config. Zero-value fields fall back to
// defaults; an unknown policy falls back to LRU.
func New(cfg Config) *Cache {
	if cfg.Policy == "" {
		cfg.Policy = PolicyLRU
	}
	pol, err := newPolicy(cfg.Policy)
	if err != nil {
		cfg.Policy = PolicyLRU
		pol, _ = newPolicy(PolicyLRU)
	}
	if cfg.FallbackEntryBytes <= 0 {
		cfg.FallbackEntryBytes = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	return &Cache{
		entries:       make(map[string]*entry),
		pol:           pol,
		polType:       cfg.Policy,
		maxBytes:      cfg.MaxBytes,
		tagIndex:      make(map[string]map[string]struct{}),
		depIndex:      make(map[string]map[string]struct{}),
		defaultTTL:    cfg.DefaultTTL,
		fallbackBytes: cfg.FallbackEntryBytes,
		logger:        cfg.Logger.WithComponent("cache"),
		bus:           cfg.Bus,
	}
}

// PutOption customizes a single Put call.
type PutOption func(*putOptions)

type putOptions struct {
	ttl  time.Duration
	tags []string
	deps []string
}

// WithTTL sets the entry's time-to-live. Zero means the cache default.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *putOptions) { o.ttl = ttl }
}

// WithTags attaches tags to the entry for bulk invalidation.
func WithTags(tags ...string) PutOption {
	return func(o *putOptions) { o.tags = tags }
}

// WithDependencies declares keys this entry depends on. If any dependency
// is removed or expires, the entry is invalidated on its next access or by
// InvalidateByDependency.
func WithDependencies(keys ...string) PutOption {
	return func(o *putOptions) { o.deps = keys }
}

// Put stores a value under the key, evicting entries under the active policy
// if needed to stay within the byte budget. It returns false, without any
// partial insertion, when the value cannot fit even after eviction.
func (c *Cache) Put(key string, value any, opts ...PutOption) bool {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl == 0 {
		o.ttl = c.defaultTTL
	}

	size := c.estimateSize(value)

	c.mu.Lock()
	var events []event.Event

	if c.maxBytes > 0 && size > c.maxBytes {
		c.mu.Unlock()
		c.logger.Warn("value exceeds cache budget", "key", key, "size", size, "max_bytes", c.maxBytes)
		return false
	}

	// Replacing an existing entry frees its budget first.
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}

	// Evict until the new value fits.
	for c.maxBytes > 0 && c.used+size > c.maxBytes {
		victimKey, ok := c.pol.Evict()
		if !ok {
			c.mu.Unlock()
			c.publish(events)
			c.logger.Warn("eviction could not free enough space", "key", key, "size", size)
			return false
		}
		victim, ok := c.entries[victimKey]
		if !ok {
			continue
		}
		c.detachLocked(victim)
		c.evictions++
		events = append(events, event.NewCacheEvictedEvent(victimKey, reasonCapacity))
		c.logger.Debug("evicted entry", "key", victimKey, "reason", reasonCapacity)
	}

	now := time.Now()
	e := &entry{
		key:          key,
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		ttl:          o.ttl,
		size:         size,
		tags:         o.tags,
		deps:         o.deps,
	}
	c.entries[key] = e
	c.used += size
	for _, tag := range o.tags {
		if c.tagIndex[tag] == nil {
			c.tagIndex[tag] = make(map[string]struct{})
		}
		c.tagIndex[tag][key] = struct{}{}
	}
	for _, dep := range o.deps {
		if c.depIndex[dep] == nil {
			c.depIndex[dep] = make(map[string]struct{})
		}
		c.depIndex[dep][key] = struct{}{}
	}
	c.pol.OnPut(key)

	c.mu.Unlock()
	c.publish(events)
	return true
}

// Get returns the value stored under key. Expired entries and entries with
// missing or expired dependencies are removed and reported as misses.
func (c *Cache) Get(key string) (any, bool) {
	now := time.Now()

	c.mu.Lock()
	var events []event.Event

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if e.expired(now) {
		c.removeLocked(e)
		c.misses++
		c.expirations++
		events = append(events, event.NewCacheEvictedEvent(key, reasonExpired))
		c.mu.Unlock()
		c.publish(events)
		c.logger.Debug("entry expired", "key", key)
		return nil, false
	}

	// A missing or expired dependency invalidates this entry. Expired
	// dependencies are removed too, which propagates invalidation down
	// chains lazily instead of re-evaluating recursively.
	for _, depKey := range e.deps {
		dep, ok := c.entries[depKey]
		if ok && dep.expired(now) {
			c.removeLocked(dep)
			c.expirations++
			events = append(events, event.NewCacheEvictedEvent(depKey, reasonExpired))
			ok = false
		}
		if !ok {
			c.removeLocked(e)
			c.misses++
			c.invalidations++
			events = append(events, event.NewCacheEvictedEvent(key, reasonDependency))
			c.mu.Unlock()
			c.publish(events)
			c.logger.Debug("entry invalidated by dependency", "key", key, "dependency", depKey)
			return nil, false
		}
	}

	e.lastAccessed = now
	e.accessCount++
	c.pol.OnGet(key)
	c.hits++
	value := e.value
	c.mu.Unlock()
	return value, true
}

// GetOrDefault returns the value stored under key, or def on a miss.
func (c *Cache) GetOrDefault(key string, def any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Remove deletes the entry stored under key.
// Returns true if an entry was removed.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// InvalidateByTag removes every entry carrying the tag and returns how many
// entries were removed.
func (c *Cache) InvalidateByTag(tag string) int {
	c.mu.Lock()
	var events []event.Event

	keys := c.tagIndex[tag]
	count := 0
	for key := range keys {
		if e, ok := c.entries[key]; ok {
			c.removeLocked(e)
			c.invalidations++
			events = append(events, event.NewCacheEvictedEvent(key, reasonTag))
			count++
		}
	}
	c.mu.Unlock()
	c.publish(events)

	if count > 0 {
		c.logger.Debug("invalidated by tag", "tag", tag, "count", count)
	}
	return count
}

// InvalidateByDependency removes every entry that directly depends on the
// given key and returns how many entries were removed. Entries further down
// a dependency chain are invalidated lazily on their next access.
func (c *Cache) InvalidateByDependency(key string) int {
	c.mu.Lock()
	var events []event.Event

	dependents := c.depIndex[key]
	count := 0
	for depKey := range dependents {
		if e, ok := c.entries[depKey]; ok {
			c.removeLocked(e)
			c.invalidations++
			events = append(events, event.NewCacheEvictedEvent(depKey, reasonDependency))
			count++
		}
	}
	c.mu.Unlock()
	c.publish(events)

	if count > 0 {
		c.logger.Debug("invalidated by dependency", "dependency", key, "count", count)
	}
	return count
}

// SweepExpired removes every entry whose TTL has elapsed and returns how
// many were removed. Expired entries are normally dropped lazily on access;
// the sweep reclaims the ones nothing reads anymore.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	var events []event.Event

	now := time.Now()
	count := 0
	for key, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(e)
			c.expirations++
			events = append(events, event.NewCacheEvictedEvent(key, reasonExpired))
			count++
		}
	}
	c.mu.Unlock()
	c.publish(events)

	if count > 0 {
		c.logger.Debug("swept expired entries", "count", count)
	}
	return count
}

// Clear removes all entries and resets byte accounting. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.tagIndex = make(map[string]map[string]struct{})
	c.depIndex = make(map[string]map[string]struct{})
	c.used = 0
	pol, _ := newPolicy(c.polType)
	c.pol = pol
}

// SetPolicy switches the eviction policy at runtime. Existing entries are
// re-registered with the new policy in an arbitrary order; access history
// does not carry over.
func (c *Cache) SetPolicy(t PolicyType) error {
	pol, err := newPolicy(t)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		pol.OnPut(key)
	}
	c.pol = pol
	c.polType = t
	c.logger.Info("eviction policy changed", "policy", t.String())
	return nil
}

// SetMaxBytes adjusts the byte budget at runtime, evicting under the active
// policy until the cache fits the new budget.
func (c *Cache) SetMaxBytes(maxBytes int64) {
	c.mu.Lock()
	var events []event.Event

	c.maxBytes = maxBytes
	for c.maxBytes > 0 && c.used > c.maxBytes {
		victimKey, ok := c.pol.Evict()
		if !ok {
			break
		}
		if victim, ok := c.entries[victimKey]; ok {
			c.detachLocked(victim)
			c.evictions++
			events = append(events, event.NewCacheEvictedEvent(victimKey, reasonCapacity))
		}
	}
	c.mu.Unlock()
	c.publish(events)
}

// Keys returns a snapshot of the keys currently stored.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Info returns metadata for the entry under key without counting as an
// access, or false if no live entry exists.
func (c *Cache) Info(key string) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(time.Now()) {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Key:          e.key,
		CreatedAt:    e.createdAt,
		LastAccessed: e.lastAccessed,
		AccessCount:  e.accessCount,
		TTL:          e.ttl,
		Size:         e.size,
		Tags:         append([]string(nil), e.tags...),
		Dependencies: append([]string(nil), e.deps...),
	}, true
}

// removeLocked detaches the entry from all structures. The policy forgets
// the key without counting an eviction. Must be called with c.mu held.
func (c *Cache) removeLocked(e *entry) {
	c.detachLocked(e)
	c.pol.Remove(e.key)
}

// detachLocked removes the entry from the table and indices and releases its
// budget, leaving policy bookkeeping to the caller. Must be called with c.mu
// held.
func (c *Cache) detachLocked(e *entry) {
	delete(c.entries, e.key)
	c.used -= e.size
	for _, tag := range e.tags {
		delete(c.tagIndex[tag], e.key)
		if len(c.tagIndex[tag]) == 0 {
			delete(c.tagIndex, tag)
		}
	}
	for _, dep := range e.deps {
		delete(c.depIndex[dep], e.key)
		if len(c.depIndex[dep]) == 0 {
			delete(c.depIndex, dep)
		}
	}
}

// estimateSize computes the serialized size of a value. Values that cannot
// be marshaled are charged a conservative fixed size instead of being
// rejected.
func (c *Cache) estimateSize(value any) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("size estimation failed, using fallback", "fallback_bytes", c.fallbackBytes)
		return c.fallbackBytes
	}
	return int64(len(data))
}

// publish sends collected events after the cache lock has been released, so
// subscriber callbacks can safely re-enter the cache.
func (c *Cache) publish(events []event.Event) {
	if c.bus == nil {
		return
	}
	for _, e := range events {
		c.bus.Publish(e)
	}
}

package cache

import "time"

// entry is the internal record for one cached value. It is owned exclusively
// by the Cache and mutated on every read under the cache lock.
type entry struct {
	key          string
	value        any
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  uint64
	ttl          time.Duration // 0 = no expiry
	size         int64
	tags         []string
	deps         []string
}

// expired reports whether the entry's TTL has elapsed at the given time.
func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// EntryInfo is a read-only view of a cached entry's metadata, returned by
// inspection helpers. Values are copies taken under the cache lock.
type EntryInfo struct {
	Key          string        `json:"key"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	AccessCount  uint64        `json:"access_count"`
	TTL          time.Duration `json:"ttl"`
	Size         int64         `json:"size"`
	Tags         []string      `json:"tags,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
}

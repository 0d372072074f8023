package cache

// Statistics is a point-in-time snapshot of the cache's counters and
// derived rates.
type Statistics struct {
	Entries       int     `json:"entries"`
	UsedBytes     int64   `json:"used_bytes"`
	MaxBytes      int64   `json:"max_bytes"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	Expirations   uint64  `json:"expirations"`
	Invalidations uint64  `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
	Policy        string  `json:"policy"`
}

// Statistics returns a snapshot of the cache's current counters.
func (c *Cache) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Statistics{
		Entries:       len(c.entries),
		UsedBytes:     c.used,
		MaxBytes:      c.maxBytes,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Expirations:   c.expirations,
		Invalidations: c.invalidations,
		Policy:        c.polType.String(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

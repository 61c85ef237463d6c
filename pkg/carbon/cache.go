package carbon

import (
	"sync"
	"time"

	"github.com/cass-sched/cass/pkg/clock"
)

// DefaultCacheTTL is how long a reading is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Cache holds recent readings per zone. It is owned by the caller and passed
// explicitly to the source that fills it.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]Reading
}

// NewCache creates a cache. A zero ttl uses DefaultCacheTTL; a nil clock uses
// real time.
func NewCache(ttl time.Duration, clk clock.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Cache{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]Reading),
	}
}

// Get returns the cached reading for zone if it is still fresh.
func (c *Cache) Get(zone string) (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[zone]
	if !ok {
		return Reading{}, false
	}
	if c.clock.Since(r.FetchedAt) >= c.ttl {
		delete(c.entries, zone)
		return Reading{}, false
	}
	return r, true
}

// Put stores r, keyed by its zone.
func (c *Cache) Put(r Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[r.Zone] = r
}

// Invalidate drops the entry for zone.
func (c *Cache) Invalidate(zone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, zone)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Reading)
}

// Len returns the number of entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

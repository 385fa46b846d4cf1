package mqtt

import (
	"sync"
	"time"
)

const (
	identityCacheTTL     = 300 * time.Second
	identityCacheMaxSize = 256

	unknownDeviceCooldown = 600 * time.Second
)

type identityEntry struct {
	sensorID int64
	expires  time.Time
}

// identityCache maps friendly names to sensor ids with a fixed TTL and a
// bounded size. Misses fall through to a registry scan, so eviction only
// costs a lookup.
type identityCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]identityEntry
	now     func() time.Time
}

func newIdentityCache() *identityCache {
	return &identityCache{
		ttl:     identityCacheTTL,
		maxSize: identityCacheMaxSize,
		entries: map[string]identityEntry{},
		now:     time.Now,
	}
}

func (c *identityCache) Get(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[name]
	if !ok {
		return 0, false
	}

	if c.now().After(entry.expires) {
		delete(c.entries, name)
		return 0, false
	}

	return entry.sensorID, true
}

func (c *identityCache) Put(name string, sensorID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[name] = identityEntry{
		sensorID: sensorID,
		expires:  c.now().Add(c.ttl),
	}
}

func (c *identityCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]identityEntry{}
}

// evictOldest removes the entry closest to expiry. Callers hold the lock.
func (c *identityCache) evictOldest() {
	var oldest string
	var oldestExpiry time.Time

	for name, entry := range c.entries {
		if oldest == "" || entry.expires.Before(oldestExpiry) {
			oldest = name
			oldestExpiry = entry.expires
		}
	}

	if oldest != "" {
		delete(c.entries, oldest)
	}
}

// cooldownLog throttles log lines about unknown devices to one per name
// per window.
type cooldownLog struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

func newCooldownLog() *cooldownLog {
	return &cooldownLog{
		window: unknownDeviceCooldown,
		last:   map[string]time.Time{},
		now:    time.Now,
	}
}

// ShouldLog reports whether the name is outside its cooldown window and
// restarts the window when it is.
func (c *cooldownLog) ShouldLog(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[name]; ok && now.Sub(last) < c.window {
		return false
	}

	c.last[name] = now
	return true
}

func (c *cooldownLog) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = map[string]time.Time{}
}

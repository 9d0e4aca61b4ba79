package effect

import (
	"hash/fnv"
	"slices"
	"sync"
)

// Key identifies a compilation: the source and both entry points.
type Key struct {
	hash          uint64
	vertexEntry   string
	fragmentEntry string
}

// MakeKey builds the cache key of an effect compilation.
func MakeKey(source, vertexEntry, fragmentEntry string) Key {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return Key{hash: h.Sum64(), vertexEntry: vertexEntry, fragmentEntry: fragmentEntry}
}

// Cache keeps compiled programs so that identical effects and device
// resets do not recompile. When it grows past its soft limit the least
// recently used quarter is evicted.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*cacheEntry
	softLimit int
	tick      int64

	hits, misses uint64
}

type cacheEntry struct {
	prog  *Program
	atime int64
}

// NewCache creates a cache. A softLimit of 0 means unlimited.
func NewCache(softLimit int) *Cache {
	return &Cache{entries: make(map[Key]*cacheEntry), softLimit: softLimit}
}

// Compile returns the cached program for the given source and entry
// points, compiling it on a miss. Failed compilations are not cached.
func (c *Cache) Compile(source, vertexEntry, fragmentEntry string, toSPIRV SPIRVFunc) (*Program, error) {
	key := MakeKey(source, vertexEntry, fragmentEntry)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[key]; ok && e.prog.Source == source {
		e.atime = c.tick
		c.hits++
		return e.prog, nil
	}
	c.misses++

	prog, err := Compile(source, vertexEntry, fragmentEntry, toSPIRV)
	if err != nil {
		return nil, err
	}
	c.entries[key] = &cacheEntry{prog: prog, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return prog, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops every cached program.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*cacheEntry)
	c.tick = 0
}

// evictOldest removes entries until the cache is at three quarters of
// its soft limit. Caller must hold c.mu.
func (c *Cache) evictOldest() {
	target := max(1, c.softLimit*3/4)
	if len(c.entries) <= target {
		return
	}
	type aged struct {
		key   Key
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}
	slices.SortFunc(all, func(a, b aged) int {
		switch {
		case a.atime < b.atime:
			return -1
		case a.atime > b.atime:
			return 1
		}
		return 0
	})
	for _, a := range all[:len(all)-target] {
		delete(c.entries, a.key)
	}
}

package nest

import (
	"sort"
	"sync"
)

// Cache is the in-memory mirror of the service's status.
//
// It is replaced wholesale by FetchStatus and patched one record at a time
// by Subscribe. The mutex only keeps map access safe across goroutines; it
// does not order a mutation against a concurrent long-poll.
type Cache struct {
	mutex    sync.RWMutex
	snapshot Snapshot
	fetched  bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{}
}

// Fetched reports whether a full status has ever been stored
func (c *Cache) Fetched() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.fetched
}

// Replace swaps in a freshly fetched snapshot
func (c *Cache) Replace(s Snapshot) {
	if s == nil {
		s = Snapshot{}
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.snapshot = s
	c.fetched = true
}

// Reset forgets everything, as after a new login
func (c *Cache) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.snapshot = nil
	c.fetched = false
}

// ApplyUpdate stores a copy of record at category.entityID, stamped with
// version and timestamp, and returns another copy. The category map is
// created on first use. Applying the same update twice leaves the cache as
// applying it once.
func (c *Cache) ApplyUpdate(category Category, entityID string, record *Record, version, timestamp int64) *Record {
	stored := record.Clone()
	if stored == nil {
		stored = NewRecord(nil, 0, 0)
	}
	stored.Version = version
	stored.Timestamp = timestamp

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.snapshot == nil {
		c.snapshot = Snapshot{}
	}
	if c.snapshot[category] == nil {
		c.snapshot[category] = map[string]*Record{}
	}
	c.snapshot[category][entityID] = stored
	return stored.Clone()
}

// Record returns a copy of the record at category.id
func (c *Cache) Record(category Category, id string) (*Record, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	r, ok := c.snapshot[category][id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Version returns the cached version of category.id
func (c *Cache) Version(category Category, id string) (int64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	r, ok := c.snapshot[category][id]
	if !ok {
		return 0, false
	}
	return r.Version, true
}

// Has reports whether category.id is cached
func (c *Cache) Has(category Category, id string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.snapshot[category][id]
	return ok
}

// IDs returns the sorted ids under a category
func (c *Cache) IDs(category Category) []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	ids := make([]string, 0, len(c.snapshot[category]))
	for id := range c.snapshot[category] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the cached status
func (c *Cache) Snapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.snapshot.Clone()
}

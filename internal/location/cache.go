package location

import (
	"sort"
	"sync"
	"time"
)

// Entry is a cached position sample stamped with its insertion time.
type Entry struct {
	UserID     string
	Sample     PositionSample
	InsertedAt time.Time
}

// Cache is the process-local hot path for position reads. Entries older
// than the TTL are considered stale and are evicted by Sweep; the
// durable store stays the source of truth. Not shared across processes.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]Entry{},
	}
}

// Put overwrites any existing entry for the user and stamps it fresh.
func (c *Cache) Put(userID string, sample PositionSample) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := Entry{UserID: userID, Sample: sample, InsertedAt: c.now()}
	c.entries[userID] = entry
	return entry
}

func (c *Cache) Get(userID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	return entry, ok
}

// IsFresh reports whether the user has an entry no older than the TTL.
func (c *Cache) IsFresh(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	return ok && c.now().Sub(entry.InsertedAt) <= c.ttl
}

// MarkOffline flips the cached sample offline without evicting it.
// Distinct from sweep eviction: the entry stays readable until the TTL
// runs out.
func (c *Cache) MarkOffline(userID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return Entry{}, false
	}
	entry.Sample.Online = false
	entry.InsertedAt = c.now()
	c.entries[userID] = entry
	return entry, true
}

// Sweep evicts every entry older than the TTL and returns how many were
// removed. Eviction is hard removal, no tombstones.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for userID, entry := range c.entries {
		if now.Sub(entry.InsertedAt) > c.ttl {
			delete(c.entries, userID)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Status reports the cache contents for diagnostics.
func (c *Cache) Status() MemoryStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	status := MemoryStatus{Users: make([]UserCacheStatus, 0, len(c.entries))}
	for userID, entry := range c.entries {
		age := now.Sub(entry.InsertedAt)
		fresh := age <= c.ttl
		if fresh {
			status.Active++
		} else {
			status.Stale++
		}
		status.Users = append(status.Users, UserCacheStatus{
			UserID:     userID,
			InsertedAt: entry.InsertedAt,
			AgeSeconds: int64(age.Seconds()),
			Fresh:      fresh,
			Online:     entry.Sample.Online,
		})
	}
	status.TotalCached = len(c.entries)
	sort.Slice(status.Users, func(i, j int) bool {
		return status.Users[i].UserID < status.Users[j].UserID
	})
	return status
}

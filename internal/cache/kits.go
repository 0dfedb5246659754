package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"openkits-api/internal/model"
)

// KitCache is a bounded in-memory index of kits keyed by id, with a fixed
// TTL counted from the last write of each entry. Entries are handed out as
// clones so callers can never mutate cached state in place.
type KitCache struct {
	mu         sync.RWMutex
	entries    map[int64]*kitEntry
	ttl        time.Duration
	maxEntries int

	stopSweep chan struct{}
	stopOnce  sync.Once
}

type kitEntry struct {
	kit       *model.Kit
	expiresAt time.Time
}

// NewKitCache creates a kit cache with the given entry bound and write TTL.
func NewKitCache(maxEntries int, ttl time.Duration) *KitCache {
	c := &KitCache{
		entries:    make(map[int64]*kitEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		stopSweep:  make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Get returns a clone of the cached kit, or nil on a miss.
func (c *KitCache) Get(id int64) *model.Kit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[id]
	if !exists || time.Now().After(e.expiresAt) {
		return nil
	}
	return e.kit.Clone()
}

// GetByName returns a clone of the first cached kit whose name contains the
// given text, case-insensitively. Candidates are scanned in ascending id
// order so the result matches the backing store's lowest-id policy.
func (c *KitCache) GetByName(name string) *model.Kit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(name)
	now := time.Now()

	ids := make([]int64, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		e := c.entries[id]
		if now.After(e.expiresAt) {
			continue
		}
		if strings.Contains(strings.ToLower(e.kit.Name), needle) {
			return e.kit.Clone()
		}
	}
	return nil
}

// Put stores a clone of the kit, refreshing its TTL and evicting the entry
// closest to expiry when the bound is reached.
func (c *KitCache) Put(kit *model.Kit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[kit.ID]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictSoonest()
	}

	c.entries[kit.ID] = &kitEntry{
		kit:       kit.Clone(),
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Mutate applies fn to the cached kit if present and fresh, refreshing its
// TTL. A miss is a no-op; the next read reloads from the store.
func (c *KitCache) Mutate(id int64, fn func(*model.Kit)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[id]
	if !exists || time.Now().After(e.expiresAt) {
		return
	}
	fn(e.kit)
	e.expiresAt = time.Now().Add(c.ttl)
}

// Invalidate removes the entry for the given id.
func (c *KitCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

// Values returns clones of all fresh entries in ascending id order.
func (c *KitCache) Values() []model.Kit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	kits := make([]model.Kit, 0, len(c.entries))
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		kits = append(kits, *e.kit.Clone())
	}
	sort.Slice(kits, func(i, j int) bool { return kits[i].ID < kits[j].ID })
	return kits
}

// Len returns the number of fresh entries.
func (c *KitCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, e := range c.entries {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *KitCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int64]*kitEntry)
}

// Close stops the background sweep goroutine.
func (c *KitCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopSweep)
	})
}

// evictSoonest removes the entry closest to expiry. Callers hold the lock.
func (c *KitCache) evictSoonest() {
	var victim int64
	var soonest time.Time
	found := false
	for id, e := range c.entries {
		if !found || e.expiresAt.Before(soonest) {
			victim = id
			soonest = e.expiresAt
			found = true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func (c *KitCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for id, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, id)
				}
			}
			c.mu.Unlock()
		case <-c.stopSweep:
			return
		}
	}
}

// Package cache holds the in-process mirror of the availability maps.
// All reads are served from here, never directly from the backing store.
package cache

import (
	"sync"
	"time"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

type kindState struct {
	m           domain.AvailabilityMap
	lastUpdated time.Time
}

// Cache is the authoritative in-process copy of both availability maps.
// It is unbounded and keyed by business identifiers; there is no eviction.
type Cache struct {
	mu    sync.RWMutex
	kinds map[domain.Kind]*kindState
}

func New() *Cache {
	return &Cache{kinds: map[domain.Kind]*kindState{
		domain.KindProducts: {m: domain.AvailabilityMap{}},
		domain.KindFlavors:  {m: domain.AvailabilityMap{}},
	}}
}

// Load replaces the map for a kind wholesale. Called on startup and again
// after a reconnect, when the store's state may have diverged.
func (c *Cache) Load(kind domain.Kind, m domain.AvailabilityMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.kinds[kind]
	if st == nil {
		return
	}
	st.m = m.Clone()
	st.lastUpdated = time.Now().UTC()
}

// Get returns a defensive copy of the current map for a kind together with
// the time it last changed. It never fails; an unloaded kind yields an empty
// map.
func (c *Cache) Get(kind domain.Kind) (domain.AvailabilityMap, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.kinds[kind]
	if st == nil {
		return domain.AvailabilityMap{}, time.Time{}
	}
	return st.m.Clone(), st.lastUpdated
}

// ApplyBulk merges patch into the existing map key by key: a specified key
// overwrites, unspecified keys are untouched. This is a merge, not a
// replace. Returns the number of keys applied.
func (c *Cache) ApplyBulk(kind domain.Kind, patch domain.AvailabilityMap) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.kinds[kind]
	if st == nil {
		return 0
	}
	for k, v := range patch {
		st.m[k] = v
	}
	st.lastUpdated = time.Now().UTC()
	return len(patch)
}

// Clear empties the map for a kind.
func (c *Cache) Clear(kind domain.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.kinds[kind]
	if st == nil {
		return
	}
	st.m = domain.AvailabilityMap{}
	st.lastUpdated = time.Now().UTC()
}

// Len reports the number of entries for a kind.
func (c *Cache) Len(kind domain.Kind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.kinds[kind]
	if st == nil {
		return 0
	}
	return len(st.m)
}

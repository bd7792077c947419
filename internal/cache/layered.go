package cache

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
)

// LayeredCache consults its tiers fastest first. A hit in a slower tier is
// copied into every faster one; writes go to all tiers.
type LayeredCache struct {
	tiers []Cache
	hits  []atomic.Int64 // per tier
	miss  atomic.Int64
}

// NewLayeredCache creates a memory tier in front of a disk tier
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewTiered(
		NewMemoryCache(memoryTTL, 10*time.Minute),
		NewDiskCache(diskDir, diskTTL),
	)
}

// NewTiered stacks caches, fastest first
func NewTiered(tiers ...Cache) *LayeredCache {
	return &LayeredCache{
		tiers: tiers,
		hits:  make([]atomic.Int64, len(tiers)),
	}
}

// Get returns the value from the fastest tier holding it
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	for i, tier := range c.tiers {
		val, found := tier.Get(key)
		if !found {
			continue
		}
		c.hits[i].Add(1)
		for _, faster := range c.tiers[:i] {
			_ = faster.Set(key, val, 0)
		}
		return val, true
	}
	c.miss.Add(1)
	return nil, false
}

// Set stores a value in every tier
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	for i, tier := range c.tiers {
		if err := tier.Set(key, value, ttl); err != nil {
			return eris.Wrapf(err, "cache tier %d", i)
		}
	}
	return nil
}

// Delete removes a value from every tier
func (c *LayeredCache) Delete(key string) error {
	return c.each(func(t Cache) error { return t.Delete(key) })
}

// Clear empties every tier
func (c *LayeredCache) Clear() error {
	return c.each(Cache.Clear)
}

// Stats returns hits per tier, fastest first, and misses
func (c *LayeredCache) Stats() (hits []int64, misses int64) {
	hits = make([]int64, len(c.hits))
	for i := range c.hits {
		hits[i] = c.hits[i].Load()
	}
	return hits, c.miss.Load()
}

// each applies fn to all tiers, even after a failure
func (c *LayeredCache) each(fn func(Cache) error) error {
	var errs []error
	for _, tier := range c.tiers {
		if err := fn(tier); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package cache

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LayeredCache checks memory before disk. Each layer has its own lifetime:
// memory entries never outlive memoryTTL, disk entries keep the TTL given
// to Set. Disk hits are promoted to memory for memoryTTL.
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// Stats counts lookups per layer
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:      NewDiskCache(diskDir, diskTTL),
		memoryTTL: memoryTTL,
	}
}

// Get checks memory, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		c.memoryHits.Add(1)
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		c.diskHits.Add(1)
		_ = c.memory.Set(key, val, c.memoryTTL)
		return val, true
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores value on disk for ttl and in memory for the shorter of ttl and
// the memory TTL
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, c.memoryLifetime(ttl)); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) memoryLifetime(ttl time.Duration) time.Duration {
	if c.memoryTTL > 0 && (ttl <= 0 || c.memoryTTL < ttl) {
		return c.memoryTTL
	}
	return ttl
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Stats returns the lookup counters since creation
func (c *LayeredCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}

// LogStats logs the lookup counters of c when it keeps any
func LogStats(c Cache) {
	lc, ok := c.(*LayeredCache)
	if !ok || lc == nil {
		return
	}
	s := lc.Stats()
	zap.L().Info("cache: stats",
		zap.Int64("memory_hits", s.MemoryHits),
		zap.Int64("disk_hits", s.DiskHits),
		zap.Int64("misses", s.Misses))
}

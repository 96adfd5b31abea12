// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package cache provides the two caches OwlDoor layers in front of slow or
// rate-limited lookups: an in-process TTL map (Cache) and a badger-backed
// persistent store (Persistent) that survives restarts.
package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/owldoor/internal/metrics"
)

const cleanupInterval = 5 * time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe in-memory cache with per-entry expiration.
// A background goroutine sweeps expired entries until Close is called.
type Cache[V any] struct {
	name string
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]entry[V]

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// Stats tracks cache efficiency.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Keys        int
	LastCleanup time.Time
}

// New creates a cache. name labels the Prometheus hit/miss counters.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Evictions++ })
		ok = false
	}

	metrics.RecordCache(c.name, ok)
	if !ok {
		c.record(func(s *Stats) { s.Misses++ })
		var zero V
		return zero, false
	}
	c.record(func(s *Stats) { s.Hits++ })
	return e.value, true
}

// Set stores value with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.record(func(s *Stats) { s.Evictions++ })
	}
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	n := int64(len(c.entries))
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
	c.record(func(s *Stats) { s.Evictions += n })
}

// GetStats returns a snapshot of cache statistics.
func (c *Cache[V]) GetStats() Stats {
	c.mu.RLock()
	keys := len(c.entries)
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.Keys = keys
	return s
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache[V]) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache[V]) cleanup() {
	now := c.now()
	var evicted int64

	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += evicted
		s.LastCleanup = now
	})
}

func (c *Cache[V]) record(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

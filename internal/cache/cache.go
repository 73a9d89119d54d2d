// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package cache provides the short-lived, component-owned caches used by the
// gateway: a generic in-memory TTL map and a badger-backed byte store.
//
// Both have an explicit lifecycle. A TTL is created by its owning component,
// its janitor runs as a supervised service (Serve), and Close releases it on
// shutdown. Nothing survives a restart.
package cache

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached value with its expiry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// TTL is a thread-safe in-memory cache where every entry expires after a
// fixed or per-entry lifetime.
type TTL[V any] struct {
	name     string
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry[V]
	stats   Stats
	closed  bool
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	interval time.Duration
	now      func() time.Time
}

// WithJanitorInterval sets how often Serve sweeps expired entries.
func WithJanitorInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewTTL creates a cache whose entries live for ttl unless set with an
// explicit lifetime. No goroutine is started; run Serve under a supervisor to
// reclaim memory from entries nobody reads again.
func NewTTL[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{interval: time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[V]{
		name:     name,
		ttl:      ttl,
		interval: o.interval,
		now:      o.now,
		entries:  make(map[string]Entry[V]),
	}
}

// Get returns the value for key if present and not expired. Expired entries
// are removed on access.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return zero, false
	}

	if !now.Before(entry.ExpiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && !now.Before(cur.ExpiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
			c.stats.TotalKeys = int64(len(c.entries))
		}
		c.stats.Misses++
		c.mu.Unlock()
		return zero, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return entry.Value, true
}

// Set stores value under key with the default TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl or a closed
// cache makes this a no-op.
func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.entries[key] = Entry[V]{Value: value, ExpiresAt: c.now().Add(ttl)}
	c.stats.TotalKeys = int64(len(c.entries))
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the counters.
func (c *TTL[V]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (c *TTL[V]) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTL[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Evictions += int64(removed)
	c.stats.TotalKeys = int64(len(c.entries))
	c.stats.LastCleanup = now
	return removed
}

// Serve runs the janitor until ctx is cancelled. It implements
// suture.Service.
func (c *TTL[V]) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// String identifies the janitor in supervisor logs.
func (c *TTL[V]) String() string {
	return "cache-janitor-" + c.name
}

// Close drops all entries. Further writes are ignored.
func (c *TTL[V]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = make(map[string]Entry[V])
	c.stats.TotalKeys = 0
	return nil
}

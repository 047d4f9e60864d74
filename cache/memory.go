package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	policy  Policy
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy) *MemoryCache {
	return NewMemoryCacheWithClock(policy, time.Now)
}

// NewMemoryCacheWithClock is NewMemoryCache with an injectable clock.
func NewMemoryCacheWithClock(policy Policy, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		policy:  policy,
		now:     now,
	}
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Another goroutine may have replaced the entry since the read.
		if current, ok := c.entries[key]; ok && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores a value with the given TTL, clamped to the policy's MaxTTL.
// TTL=0 means no caching. When the cache is full, expired entries are
// dropped first, then the entry closest to expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if c.policy.MaxTTL > 0 && ttl > c.policy.MaxTTL {
		ttl = c.policy.MaxTTL
	}

	now := c.now()
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.policy.MaxEntries > 0 && len(c.entries) >= c.policy.MaxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = &cacheEntry{value: stored, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if !found || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.expiresAt, true
		}
	}
	if len(c.entries) >= c.policy.MaxEntries && found {
		delete(c.entries, oldestKey)
	}
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)

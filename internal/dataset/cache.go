package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/metrics"
)

// GeometryCache stores raw geometry payloads. Get reports a miss with
// (nil, false, nil).
type GeometryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// MemoryCache is a concurrent-safe LRU cache with TTL expiration.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type memoryEntry struct {
	data      []byte
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewMemoryCache creates a MemoryCache with the given capacity and TTL.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns a cached payload.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false, nil
	}

	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.miss()
		return nil, false, nil
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return entry.data, true, nil
}

func (c *MemoryCache) miss() {
	c.misses.Add(1)
	metrics.CacheMisses.WithLabelValues("memory").Inc()
}

// Put stores a payload, evicting the oldest entry if at capacity.
func (c *MemoryCache) Put(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &memoryEntry{data: data, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return nil
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &memoryEntry{data: data, createdAt: time.Now()}
	c.order = append(c.order, key)
	return nil
}

// Stats returns cache performance statistics.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Tiered consults caches in order and backfills the faster tiers on a hit
// further down. Errors from a tier are logged and treated as misses.
type Tiered []GeometryCache

// Get implements GeometryCache.
func (t Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, c := range t {
		data, ok, err := c.Get(ctx, key)
		if err != nil {
			zap.L().Warn("dataset: cache get", zap.String("key", key), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		for _, faster := range t[:i] {
			if err := faster.Put(ctx, key, data); err != nil {
				zap.L().Warn("dataset: cache backfill", zap.String("key", key), zap.Error(err))
			}
		}
		return data, true, nil
	}
	return nil, false, nil
}

// Put writes to every tier and returns the first error.
func (t Tiered) Put(ctx context.Context, key string, data []byte) error {
	var first error
	for _, c := range t {
		if err := c.Put(ctx, key, data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

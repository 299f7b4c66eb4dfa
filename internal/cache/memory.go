package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// memoryCache implements Cache using in-memory storage
type memoryCache struct {
	mu      sync.Mutex
	items   map[string]*cacheItem
	maxKeys int
	ttl     time.Duration
	logger  *zap.Logger
	stats   CacheStats
	stopCh  chan struct{}
	once    sync.Once
}

type cacheItem struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates a new in-memory cache with LRU eviction past MaxKeys
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &memoryCache{
		items:   make(map[string]*cacheItem),
		maxKeys: config.MaxKeys,
		ttl:     config.TTL,
		logger:  logger.With(zap.String("component", "memory_cache")),
		stopCh:  make(chan struct{}),
	}

	interval := config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go c.cleanup(interval)

	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		if ok {
			delete(c.items, key)
		}
		c.stats.Misses++
		return nil, false
	}
	item.accessedAt = time.Now()
	c.stats.Hits++
	return append([]byte(nil), item.value...), true
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxKeys > 0 && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}
	now := time.Now()
	c.items[key] = &cacheItem{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}
	c.stats.Sets++
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if _, ok := c.items[key]; ok {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Keys = int64(len(c.items))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return &stats, nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

// evictLRU evicts the least recently used item; caller holds mu
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldest) {
			oldestKey = key
			oldest = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

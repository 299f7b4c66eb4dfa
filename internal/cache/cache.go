// Package cache stores serialized read models (leaderboards, the badge ladder)
// in process memory or Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores opaque byte values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes keys matching a trailing-* pattern such as "leaderboard:*"
	DeletePattern(ctx context.Context, pattern string) error

	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Sets     int64   `json:"sets"`
	Deletes  int64   `json:"deletes"`
	Keys     int64   `json:"keys"`
	HitRatio float64 `json:"hit_ratio"`
}

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration
type Config struct {
	Provider        string        `json:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl"`
	MaxKeys         int           `json:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval"`

	RedisURL      string `json:"-"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"-"`
	PoolSize      int    `json:"pool_size"`
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             time.Minute,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
		PoolSize:        10,
	}
}

// NewCache creates a cache for the configured provider
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// TYPED HELPERS
// ===============================

// GetJSON decodes the value stored under key into a T
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes value as JSON and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// Remember returns the cached value for key or computes, stores and returns it.
// A nil cache always computes. Cache write failures are logged, not returned.
func Remember[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := GetJSON[T](ctx, c, key); ok {
			return v, nil
		}
	}

	v, err := fn()
	if err != nil || c == nil {
		return v, err
	}

	if err := SetJSON(ctx, c, key, v, ttl); err != nil && logger != nil {
		logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// matchPattern performs simple trailing wildcard matching
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}
	return str == pattern
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"triphub/internal/config"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache is the read-through cache used for progression snapshots and the
// leaderboard. Values are stored as JSON; callers unmarshal into their own
// types.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Health(ctx context.Context) error
	Stats() *Stats
	Close() error
}

// Stats holds hit/miss counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Keys    int64 `json:"keys"`
}

// New builds a cache from configuration: redis when configured, an in-memory
// cache otherwise.
func New(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	switch cfg.Provider {
	case "redis":
		return newRedisCache(cfg, logger)
	case "memory", "":
		return newMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}

// ===============================
// MEMORY CACHE
// ===============================

type memoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	maxKeys int
	logger  *zap.Logger
	stats   Stats
	stopCh  chan struct{}
	once    sync.Once
}

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

func newMemoryCache(cfg *config.CacheConfig, logger *zap.Logger) *memoryCache {
	c := &memoryCache{
		items:   make(map[string]memoryItem),
		maxKeys: cfg.MaxKeys,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(item.expiresAt) {
		c.mu.Lock()
		if !ok {
			c.stats.Misses++
		} else {
			delete(c.items, key)
			c.stats.Misses++
		}
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(item.payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxKeys {
		c.evictOldest()
	}

	c.items[key] = memoryItem{payload: payload, expiresAt: time.Now().Add(ttl)}
	c.stats.Sets++
	c.stats.Keys = int64(len(c.items))
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
	c.stats.Keys = int64(len(c.items))
	return nil
}

func (c *memoryCache) Health(ctx context.Context) error { return nil }

func (c *memoryCache) Stats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	return &s
}

func (c *memoryCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) evictOldest() {
	var oldestKey string
	var oldestExpiry time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = item.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.stats.Keys = int64(len(c.items))
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// ===============================
// REDIS CACHE
// ===============================

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	mu     sync.Mutex
	stats  Stats
}

func newRedisCache(cfg *config.CacheConfig, logger *zap.Logger) (*redisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	opts.DB = cfg.RedisDB
	opts.PoolSize = cfg.PoolSize

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache connected", zap.Int("pool_size", opts.PoolSize))
	return &redisCache{client: client, logger: logger}, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.count(func(s *Stats) { s.Misses++ })
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	c.count(func(s *Stats) { s.Hits++ })
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	c.count(func(s *Stats) { s.Sets++ })
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	c.count(func(s *Stats) { s.Deletes += int64(len(keys)) })
	return nil
}

func (c *redisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Stats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	return &s
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

func (c *redisCache) count(fn func(*Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

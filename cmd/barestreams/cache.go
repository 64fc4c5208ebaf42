package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nanstate/barestreams/pkg/rcache"
)

func init() {
	gob.Register(cacheItem{})
}

// cacheItem is what actually gets gob-encoded into either backend.
// Expires is the zero value for entries set with no TTL.
type cacheItem struct {
	Value   string
	Expires time.Time
}

var _ rcache.Cache = (*fastCache)(nil)

// fastCache is the in-process, single-node result cache, backed by
// github.com/VictoriaMetrics/fastcache the way the teacher's own
// resultCache wraps it in cmd/deflix-stremio/cache.go. fastcache has no
// notion of per-key TTL or deletion, so expiry is carried inside the
// gob-encoded item and checked on Get; an expired entry is treated as a
// miss but is left in place until fastcache itself evicts it.
type fastCache struct {
	cache *fastcache.Cache
}

func newFastCache(maxBytes int) *fastCache {
	return &fastCache{cache: fastcache.New(maxBytes)}
}

// Get implements rcache.Cache.
func (c *fastCache) Get(key string) (string, bool, error) {
	raw, found := c.cache.HasGet(nil, []byte(key))
	if !found {
		return "", false, nil
	}
	var item cacheItem
	if err := gobDecode(raw, &item); err != nil {
		return "", false, fmt.Errorf("decoding cache entry: %w", err)
	}
	if !item.Expires.IsZero() && time.Now().After(item.Expires) {
		return "", false, nil
	}
	return item.Value, true, nil
}

// Set implements rcache.Cache.
func (c *fastCache) Set(key, value string, ttl time.Duration) error {
	item := cacheItem{Value: value}
	if ttl > 0 {
		item.Expires = time.Now().Add(ttl)
	}
	b, err := gobEncode(item)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	c.cache.Set([]byte(key), b)
	return nil
}

var _ rcache.Cache = (*redisCache)(nil)

// redisCache is the multi-node result cache, backed by
// github.com/go-redis/redis/v8 the way the teacher's main.go wires
// "REDIS_URL" into a *redis.Client. Unlike fastCache it relies on
// Redis's own EX expiry instead of an embedded deadline.
type redisCache struct {
	rdb *redis.Client
}

func newRedisCache(ctx context.Context, redisURL string) (*redisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redisURL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging Redis: %w", err)
	}
	return &redisCache{rdb: rdb}, nil
}

// Get implements rcache.Cache.
func (c *redisCache) Get(key string) (string, bool, error) {
	val, err := c.rdb.Get(context.Background(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting from Redis: %w", err)
	}
	return val, true, nil
}

// Set implements rcache.Cache.
func (c *redisCache) Set(key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(context.Background(), key, value, ttl).Err(); err != nil {
		return fmt.Errorf("setting in Redis: %w", err)
	}
	return nil
}

func gobEncode(item cacheItem) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte, item *cacheItem) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(item)
}

// resultCacheBytes sizes the fallback in-process cache. fastcache rounds
// this up internally; 64 MiB comfortably holds the cached JSON stream
// lists for a single node without a Redis instance.
const resultCacheBytes = 64 * 1024 * 1024

// newResultCache picks the result cache backend: Redis when configured,
// otherwise the in-process fastcache fallback, logging the choice either
// way.
func newResultCache(cfg config, logger *zap.Logger) rcache.Cache {
	if cfg.RedisURL == "" {
		logger.Info("No redisURL configured, using in-process result cache", zap.Int("maxBytes", resultCacheBytes))
		return newFastCache(resultCacheBytes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := newRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("Couldn't connect to Redis", zap.Error(err))
	}
	logger.Info("Using Redis-backed result cache")
	return rc
}

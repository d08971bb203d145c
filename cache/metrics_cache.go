package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"LoudGate/core/loudness"
	"LoudGate/logger"

	"github.com/redis/go-redis/v9"
)

// DefaultMetricsTTL 缓存过期时间
const DefaultMetricsTTL = time.Hour

// MetricsCache caches loudness measurements in Redis. Measurement of an
// unchanged file is deterministic, so the key binds path, size and mtime;
// any mutation of the file invalidates the entry naturally.
type MetricsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMetricsCache creates a MetricsCache with the given TTL
// (DefaultMetricsTTL when zero).
func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	if ttl <= 0 {
		ttl = DefaultMetricsTTL
	}
	return &MetricsCache{client: client, ttl: ttl}
}

// buildKey derives the cache key from the file identity. Returns an error
// when the file cannot be stat'ed.
func buildKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("loudgate:metrics:%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()), nil
}

// Get returns the cached metrics for path, or ok=false on a miss.
// Cache errors degrade to a miss; they never fail a measurement.
func (c *MetricsCache) Get(ctx context.Context, path string) (*loudness.Metrics, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	key, err := buildKey(path)
	if err != nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("metrics cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	var metrics loudness.Metrics
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		logger.Warn("metrics cache entry corrupt", logger.String("key", key))
		return nil, false
	}
	return &metrics, true
}

// Put stores the metrics for path. Best-effort; errors are only logged.
func (c *MetricsCache) Put(ctx context.Context, path string, metrics *loudness.Metrics) {
	if c == nil || c.client == nil || metrics == nil {
		return
	}

	key, err := buildKey(path)
	if err != nil {
		return
	}

	data, err := json.Marshal(metrics)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("metrics cache write failed", logger.ErrorField(err))
	}
}

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onco-tier-server/internal/domain"
)

// RedisCache is the Redis-backed evidence cache shared across replicas.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// cachedRecord wraps an evidence record with its expiry so stale entries can
// be detected even if Redis TTL handling is bypassed.
type cachedRecord struct {
	Record    *domain.EvidenceRecord `json:"record"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewRedisCache creates a Redis evidence cache from a redis:// URL.
func NewRedisCache(cfg domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisCache{client: client, defaultTTL: ttl}, nil
}

func cacheKey(key string) string {
	return "evidence:" + key
}

// Get returns the cached record for a gene:variant key, if present and fresh.
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.EvidenceRecord, bool, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached record: %w", err)
	}
	if time.Now().After(cached.ExpiresAt) {
		return nil, false, nil
	}
	return cached.Record, true, nil
}

// Set stores the record under the gene:variant key with the default TTL.
func (r *RedisCache) Set(ctx context.Context, key string, record *domain.EvidenceRecord) error {
	cached := cachedRecord{
		Record:    record,
		ExpiresAt: time.Now().Add(r.defaultTTL),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to encode record for cache: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(key), data, r.defaultTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate removes a cached record.
func (r *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

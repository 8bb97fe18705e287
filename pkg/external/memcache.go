package external

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/onco-tier-server/internal/domain"
)

// MemoryCache is the in-process evidence cache used when no Redis URL is
// configured, backed by an expirable LRU.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.EvidenceRecord]
}

// NewMemoryCache creates an in-process evidence cache.
func NewMemoryCache(cfg domain.CacheConfig) *MemoryCache {
	size := cfg.MaxItems
	if size <= 0 {
		size = 2048
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.EvidenceRecord](size, nil, ttl),
	}
}

// Get returns the cached record, if present.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.EvidenceRecord, bool, error) {
	record, ok := m.lru.Get(key)
	return record, ok, nil
}

// Set stores the record.
func (m *MemoryCache) Set(_ context.Context, key string, record *domain.EvidenceRecord) error {
	m.lru.Add(key, record)
	return nil
}

// Invalidate removes a cached record.
func (m *MemoryCache) Invalidate(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Close is a no-op for the in-process cache.
func (m *MemoryCache) Close() error { return nil }

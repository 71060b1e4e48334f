// Package cache provides the report cache tiers used by the estimation
// service: an in-process LRU with expiry and an optional Redis tier.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pediatric-gfr-server/internal/domain"
)

// MemoryCache is a size bounded in-process report cache whose entries
// expire after a fixed TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.EstimationReport]
}

// NewMemoryCache creates a cache holding at most maxItems reports.
// A zero ttl disables expiry.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative, got %s", ttl)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.EstimationReport](maxItems, nil, ttl),
	}, nil
}

// Get returns the cached report for key.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.EstimationReport, bool) {
	return c.lru.Get(key)
}

// Set stores report under key, evicting the least recently used entry when full.
func (c *MemoryCache) Set(_ context.Context, key string, report *domain.EstimationReport) error {
	c.lru.Add(key, report)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/domain"
)

// Key derives the cache key for an evaluation. Evaluate is a pure function
// of the patient and the resolved configuration, so the digest of both
// identifies the report.
func Key(patient domain.PatientInput, cfg domain.EngineConfig) (string, error) {
	payload, err := json.Marshal(struct {
		Patient domain.PatientInput `json:"p"`
		Config  domain.EngineConfig `json:"c"`
	}{patient, cfg})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Stats counts lookups per tier.
type Stats struct {
	MemoryHits   int64 `json:"memory_hits"`
	MemoryMisses int64 `json:"memory_misses"`
	RemoteHits   int64 `json:"remote_hits"`
	RemoteMisses int64 `json:"remote_misses"`
}

// TieredCache checks the memory tier first and falls back to an optional
// remote tier, back-filling memory on a remote hit.
type TieredCache struct {
	memory *MemoryCache
	remote domain.ReportCache
	logger *logrus.Logger

	memoryHits, memoryMisses atomic.Int64
	remoteHits, remoteMisses atomic.Int64
}

// NewTieredCache combines the tiers. remote may be nil.
func NewTieredCache(memory *MemoryCache, remote domain.ReportCache, logger *logrus.Logger) *TieredCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &TieredCache{memory: memory, remote: remote, logger: logger}
}

// Get implements domain.ReportCache.
func (c *TieredCache) Get(ctx context.Context, key string) (*domain.EstimationReport, bool) {
	if report, ok := c.memory.Get(ctx, key); ok {
		c.memoryHits.Add(1)
		return report, true
	}
	c.memoryMisses.Add(1)

	if c.remote == nil {
		return nil, false
	}
	report, ok := c.remote.Get(ctx, key)
	if !ok {
		c.remoteMisses.Add(1)
		return nil, false
	}
	c.remoteHits.Add(1)
	c.memory.Set(ctx, key, report)
	return report, true
}

// Set writes to every tier. A remote failure is logged and not returned.
func (c *TieredCache) Set(ctx context.Context, key string, report *domain.EstimationReport) error {
	if err := c.memory.Set(ctx, key, report); err != nil {
		return err
	}
	if c.remote != nil {
		if err := c.remote.Set(ctx, key, report); err != nil {
			c.logger.WithError(err).Warn("Failed to write report to remote cache")
		}
	}
	return nil
}

// Stats returns a snapshot of the hit counters.
func (c *TieredCache) Stats() Stats {
	return Stats{
		MemoryHits:   c.memoryHits.Load(),
		MemoryMisses: c.memoryMisses.Load(),
		RemoteHits:   c.remoteHits.Load(),
		RemoteMisses: c.remoteMisses.Load(),
	}
}

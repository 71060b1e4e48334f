package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pediatric-gfr-server/internal/domain"
)

const keyPrefix = "gfr:report:"

// RedisCache is the shared report tier. Calls go through a circuit breaker
// so an unavailable Redis degrades to cache misses.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisCache connects to the Redis instance named by cfg.RedisURL.
func NewRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.DefaultTTL, logger), nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	c := &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-report-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return c
}

// Get returns the cached report. Any Redis failure is reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.EstimationReport, bool) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			// a miss is not a failure of the backend
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		c.logger.WithError(err).Debug("Redis cache lookup failed")
		return nil, false
	}
	val, _ := result.([]byte)
	if val == nil {
		return nil, false
	}

	var report domain.EstimationReport
	if err := json.Unmarshal(val, &report); err != nil {
		c.client.Del(ctx, keyPrefix+key)
		return nil, false
	}
	return &report, true
}

// Set stores the report with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, report *domain.EstimationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to store report in Redis: %w", err)
	}
	return nil
}

// State returns the breaker state, for health reporting.
func (c *RedisCache) State() gobreaker.State {
	return c.breaker.State()
}

// Health pings Redis directly, bypassing the breaker.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for analysis
// results that are expensive to recompute.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultReportTTL   = 15 * time.Minute
	DefaultFeedbackTTL = 5 * time.Minute
	DefaultWeightsTTL  = 1 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeyReport   = "studyflow:cache:report:"   // + student_id
	KeyFeedback = "studyflow:cache:feedback:" // + student_id + ":" + date
	KeyWeights  = "studyflow:cache:weights:"  // + student_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	ReportTTL   time.Duration
	FeedbackTTL time.Duration
	WeightsTTL  time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ReportTTL:      DefaultReportTTL,
		FeedbackTTL:    DefaultFeedbackTTL,
		WeightsTTL:     DefaultWeightsTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. An unreachable Redis yields a
// disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// GetReport loads a cached analysis report into dest.
func (c *Cache) GetReport(ctx context.Context, studentID string, dest any) (bool, error) {
	return c.get(ctx, KeyReport+studentID, dest)
}

// SetReport caches an analysis report.
func (c *Cache) SetReport(ctx context.Context, studentID string, report any) error {
	return c.set(ctx, KeyReport+studentID, report, c.config.ReportTTL)
}

// GetFeedback loads cached daily feedback into dest.
func (c *Cache) GetFeedback(ctx context.Context, studentID, date string, dest any) (bool, error) {
	return c.get(ctx, KeyFeedback+studentID+":"+date, dest)
}

// SetFeedback caches daily feedback.
func (c *Cache) SetFeedback(ctx context.Context, studentID, date string, fb any) error {
	return c.set(ctx, KeyFeedback+studentID+":"+date, fb, c.config.FeedbackTTL)
}

// GetWeights loads cached learning weights into dest.
func (c *Cache) GetWeights(ctx context.Context, studentID string, dest any) (bool, error) {
	return c.get(ctx, KeyWeights+studentID, dest)
}

// SetWeights caches learning weights.
func (c *Cache) SetWeights(ctx context.Context, studentID string, w any) error {
	return c.set(ctx, KeyWeights+studentID, w, c.config.WeightsTTL)
}

// InvalidateStudent drops every cached value for a student. Called
// when plans or sessions change.
func (c *Cache) InvalidateStudent(ctx context.Context, studentID string) error {
	if err := c.delete(ctx, KeyReport+studentID); err != nil {
		return err
	}
	if err := c.delete(ctx, KeyWeights+studentID); err != nil {
		return err
	}
	return c.deletePattern(ctx, KeyFeedback+studentID+":*")
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

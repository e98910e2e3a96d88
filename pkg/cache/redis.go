package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clockwise-api/internal/config"
)

// ErrNotFound is returned when a key is not found in cache
var ErrNotFound = errors.New("key not found in cache")

// RedisClient represents Redis cache client
type RedisClient struct {
	client *redis.Client
	config config.CacheConfig
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.CacheConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConnections,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: rdb,
		config: cfg,
	}, nil
}

// Set stores a value with TTL
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, data, ttl).Err()
}

// Get retrieves a value and unmarshals it
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Delete removes a key
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping checks the Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Market-data memoization. This is a best-effort, time-boxed cache: a
// miss or a Redis failure simply means the caller refetches.

// SetSeries caches a fetched market-data series keyed by symbol and range.
func (r *RedisClient) SetSeries(ctx context.Context, symbol string, from, to int64, series interface{}) error {
	key := fmt.Sprintf("marketdata:%s:%d:%d", symbol, from, to)
	return r.Set(ctx, key, series, r.config.MarketDataTTL)
}

// GetSeries retrieves a cached market-data series.
func (r *RedisClient) GetSeries(ctx context.Context, symbol string, from, to int64, dest interface{}) error {
	key := fmt.Sprintf("marketdata:%s:%d:%d", symbol, from, to)
	return r.Get(ctx, key, dest)
}

// SetMetrics caches the persisted metrics listing.
func (r *RedisClient) SetMetrics(ctx context.Context, metrics interface{}) error {
	return r.Set(ctx, "metrics:all", metrics, r.config.MetricsTTL)
}

// GetMetrics retrieves the cached metrics listing.
func (r *RedisClient) GetMetrics(ctx context.Context, dest interface{}) error {
	return r.Get(ctx, "metrics:all", dest)
}

// InvalidateMetrics removes the metrics listing after an upload.
func (r *RedisClient) InvalidateMetrics(ctx context.Context) error {
	return r.Delete(ctx, "metrics:all")
}

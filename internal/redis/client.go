// Package redis provides the distributed cache tier client.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/commerce-platform/cache-coordinator/internal/cache"
	"github.com/commerce-platform/cache-coordinator/internal/config"
)

// Client wraps a go-redis universal client. Every operation is bounded by the
// configured op timeout so a slow backend degrades to a miss instead of
// stalling the request path.
type Client struct {
	client      redis.UniversalClient
	opTimeout   time.Duration
	clusterMode bool
	logger      *zap.Logger
}

// NewClient creates a new Redis client based on configuration.
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client redis.UniversalClient

	if cfg.ClusterMode {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", zap.Error(err))
		return nil, cache.WrapError(cache.ErrTierDown, "failed to connect to redis", err)
	}

	logger.Info("redis client connected",
		zap.Bool("cluster_mode", cfg.ClusterMode),
		zap.Int("pool_size", cfg.PoolSize),
		zap.Duration("op_timeout", cfg.OpTimeout),
	)

	return &Client{
		client:      client,
		opTimeout:   cfg.OpTimeout,
		clusterMode: cfg.ClusterMode,
		logger:      logger,
	}, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get retrieves a value by key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	result, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, cache.ErrNotFound
		}
		return nil, cache.WrapError(cache.ErrTierDown, "redis get failed", err)
	}
	return result, nil
}

// Set stores a value with TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cache.WrapError(cache.ErrTierDown, "redis set failed", err)
	}
	return nil
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	result, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, cache.WrapError(cache.ErrTierDown, "redis del failed", err)
	}
	return result, nil
}

// DelPattern deletes every key matching the glob pattern using SCAN, in
// batches. Pattern deletes can touch many keys, so they get a wider bound
// than single-key operations.
func (c *Client) DelPattern(ctx context.Context, pattern string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*c.opTimeoutOrSecond())
	defer cancel()

	var deleted int64
	iter := c.client.Scan(ctx, 0, pattern, 500).Iterator()

	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := flush(); err != nil {
				return deleted, cache.WrapError(cache.ErrTierDown, "redis pattern delete failed", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, cache.WrapError(cache.ErrTierDown, "redis scan failed", err)
	}
	if err := flush(); err != nil {
		return deleted, cache.WrapError(cache.ErrTierDown, "redis pattern delete failed", err)
	}

	return deleted, nil
}

func (c *Client) opTimeoutOrSecond() time.Duration {
	if c.opTimeout > 0 {
		return c.opTimeout
	}
	return time.Second
}

// Ping checks Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return cache.WrapError(cache.ErrTierDown, "redis ping failed", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// IsClusterMode returns whether the client is in cluster mode.
func (c *Client) IsClusterMode() bool {
	return c.clusterMode
}

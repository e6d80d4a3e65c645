package redis

import (
	"context"
	"time"

	"kindred-sheets/backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client with the handful of operations the
// backend uses: key/value helpers and stream appends for analytics events.
type Client struct {
	client *redis.Client
}

// NewClient creates a redis client from application configuration
func NewClient() *Client {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &Client{client: client}
}

// Ping verifies connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores a key with expiration
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Del removes a key
func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// AppendStream appends a value map to a redis stream
func (c *Client) AppendStream(ctx context.Context, stream string, values map[string]interface{}) error {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Err()
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restaurantapi/orders-service/internal/pkg/breaker"
)

// Redis is the distributed cache backend. Every call goes through the
// circuit breaker, so a dead Redis fails fast instead of stalling each
// request while it times out; callers degrade to the store on any error.
type Redis struct {
	client *redis.Client
	brk    *breaker.Breaker
}

func NewRedis(client *redis.Client, brk *breaker.Breaker) *Redis {
	return &Redis{client: client, brk: brk}
}

// Ping checks connectivity. Failure is not fatal to the service, the
// breaker handles an unreachable backend from the first request on.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.brk.Allow(); err != nil {
		return nil, err
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.brk.Success()
			return nil, ErrMiss
		}
		c.brk.Failure()
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	c.brk.Success()
	return b, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.brk.Allow(); err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.brk.Failure()
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	c.brk.Success()
	return nil
}

func (c *Redis) Remove(ctx context.Context, key string) error {
	if err := c.brk.Allow(); err != nil {
		return err
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.brk.Failure()
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	c.brk.Success()
	return nil
}

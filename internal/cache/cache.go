package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss reports an absent or expired entry. Callers treat it the same
// way in both cases; the cache is never the source of truth.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized snapshots under logical resource keys. Values
// expire after their ttl; Set overwrites unconditionally; Remove is
// idempotent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

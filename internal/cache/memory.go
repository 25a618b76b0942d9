package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	value    []byte
	deadline time.Time
}

// Memory is a capacity-bounded in-process backend for single-instance
// deployments and tests. The expirable LRU takes one TTL for the whole
// cache, while callers pass a TTL per key, so reapTTL only bounds how long
// a dead entry can occupy a slot; the per-entry deadline is what Get
// enforces.
type Memory struct {
	lru *expirable.LRU[string, entry]
}

func NewMemory(size int, reapTTL time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, entry](size, nil, reapTTL)}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := c.lru.Get(key)
	if !ok || time.Now().After(e.deadline) {
		return nil, ErrMiss
	}
	return e.value, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.lru.Add(key, entry{value: value, deadline: time.Now().Add(ttl)})
	return nil
}

func (c *Memory) Remove(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed boards per game slug for a short TTL.
type Cache interface {
	Get(ctx context.Context, slug string) (Board, bool, error)
	Set(ctx context.Context, slug string, b Board) error
	Invalidate(ctx context.Context, slug string) error
}

type memoryEntry struct {
	board   Board
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Get(_ context.Context, slug string) (Board, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[slug]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return Board{}, false, nil
	}
	return e.board, true, nil
}

func (c *MemoryCache) Set(_ context.Context, slug string, b Board) error {
	c.mu.Lock()
	c.entries[slug] = memoryEntry{board: b, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, slug string) error {
	c.mu.Lock()
	delete(c.entries, slug)
	c.mu.Unlock()
	return nil
}

// RedisCache keeps boards in Redis so several readers share one computation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(slug string) string { return "leaderboard:" + slug }

func (c *RedisCache) Get(ctx context.Context, slug string) (Board, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Board{}, false, nil
	}
	if err != nil {
		return Board{}, false, fmt.Errorf("redis get: %w", err)
	}
	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return Board{}, false, fmt.Errorf("decoding cached board: %w", err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, slug string, b Board) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(slug), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, slug string) error {
	if err := c.client.Del(ctx, redisKey(slug)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

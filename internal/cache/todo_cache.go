package cache

import (
	"context"
	"encoding/json"
	"time"

	dom "github.com/3alqassab/todo-app/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyListPrefix    = "todo:list:"
	keyOverduePrefix = "todo:overdue:"
)

// TodoCache caches per-owner todo list and overdue results in Redis.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list for ownerID or nil if miss.
func (c *TodoCache) GetList(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	return c.get(ctx, keyListPrefix+ownerID.String())
}

// SetList stores the list for ownerID in cache.
func (c *TodoCache) SetList(ctx context.Context, ownerID uuid.UUID, list []dom.Todo) error {
	return c.set(ctx, keyListPrefix+ownerID.String(), list)
}

// GetOverdue returns the cached overdue list for ownerID or nil if miss.
func (c *TodoCache) GetOverdue(ctx context.Context, ownerID uuid.UUID) ([]dom.Todo, error) {
	return c.get(ctx, keyOverduePrefix+ownerID.String())
}

// SetOverdue stores the overdue list for ownerID in cache.
func (c *TodoCache) SetOverdue(ctx context.Context, ownerID uuid.UUID, list []dom.Todo) error {
	return c.set(ctx, keyOverduePrefix+ownerID.String(), list)
}

// Invalidate removes both cached views for ownerID (cache invalidation on write).
func (c *TodoCache) Invalidate(ctx context.Context, ownerID uuid.UUID) error {
	return c.rdb.Del(ctx, keyListPrefix+ownerID.String(), keyOverduePrefix+ownerID.String()).Err()
}

func (c *TodoCache) get(ctx context.Context, key string) ([]dom.Todo, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []dom.Todo
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *TodoCache) set(ctx context.Context, key string, list []dom.Todo) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SnapshotCache stores permission sets keyed by role id.
type SnapshotCache interface {
	Get(ctx context.Context, roleID uint) (PermissionSet, bool, error)
	Set(ctx context.Context, roleID uint, set PermissionSet, ttl time.Duration) error
	Invalidate(ctx context.Context, roleID uint) error
}

// CachedSource serves snapshots from a cache and falls back to the next source.
// Any cache failure is treated as a miss.
type CachedSource struct {
	next  PermissionSource
	cache SnapshotCache
	ttl   time.Duration
	lg    *zap.SugaredLogger
}

func NewCachedSource(next PermissionSource, cache SnapshotCache, ttl time.Duration, lg *zap.SugaredLogger) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl, lg: lg}
}

func (c *CachedSource) PermissionsFor(ctx context.Context, roleID uint) (PermissionSet, error) {
	set, ok, err := c.cache.Get(ctx, roleID)
	if err != nil {
		c.lg.Warnw("permission cache read failed", "role_id", roleID, "error", err)
	} else if ok {
		return set, nil
	}
	set, err = c.next.PermissionsFor(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, roleID, set, c.ttl); err != nil {
		c.lg.Warnw("permission cache write failed", "role_id", roleID, "error", err)
	}
	return set, nil
}

func (c *CachedSource) Invalidate(ctx context.Context, roleID uint) error {
	return c.cache.Invalidate(ctx, roleID)
}

// RedisCache keeps snapshots as JSON arrays of titles.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "classhub:rbac:role"}
}

func (r *RedisCache) key(roleID uint) string {
	return fmt.Sprintf("%s:%d:permissions", r.prefix, roleID)
}

func (r *RedisCache) Get(ctx context.Context, roleID uint) (PermissionSet, bool, error) {
	raw, err := r.client.Get(ctx, r.key(roleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read permission snapshot: %w", err)
	}
	var titles []string
	if err := json.Unmarshal(raw, &titles); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal permission snapshot: %w", err)
	}
	return NewPermissionSet(titles...), true, nil
}

func (r *RedisCache) Set(ctx context.Context, roleID uint, set PermissionSet, ttl time.Duration) error {
	raw, err := json.Marshal(set.Titles())
	if err != nil {
		return fmt.Errorf("failed to marshal permission snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(roleID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store permission snapshot: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, roleID uint) error {
	if err := r.client.Del(ctx, r.key(roleID)).Err(); err != nil {
		return fmt.Errorf("failed to delete permission snapshot: %w", err)
	}
	return nil
}

type memoryEntry struct {
	set     PermissionSet
	expires time.Time
}

// MemoryCache is a process local SnapshotCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uint]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[uint]memoryEntry{}, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, roleID uint) (PermissionSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[roleID]
	if !ok || (!e.expires.IsZero() && m.now().After(e.expires)) {
		return nil, false, nil
	}
	return e.set, true, nil
}

func (m *MemoryCache) Set(_ context.Context, roleID uint, set PermissionSet, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.entries[roleID] = memoryEntry{set: set, expires: exp}
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, roleID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, roleID)
	return nil
}

package mpesa

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"sync"
	"time"
)

// MemoryTokenCache keeps token in process memory
type MemoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenCache creates new MemoryTokenCache instance
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{now: time.Now}
}

// Get returns token if it has not expired
func (mc *MemoryTokenCache) Get(_ context.Context) (string, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.token == "" || !mc.now().Before(mc.expiresAt) {
		return "", false, nil
	}
	return mc.token, true, nil
}

// Set stores token for ttl
func (mc *MemoryTokenCache) Set(_ context.Context, token string, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.token = token
	mc.expiresAt = mc.now().Add(ttl)
	return nil
}

// Delete forgets token
func (mc *MemoryTokenCache) Delete(_ context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.token = ""
	mc.expiresAt = time.Time{}
	return nil
}

const redisTokenKey = "mpesa:access_token"

// RedisTokenCache shares token between service instances
type RedisTokenCache struct {
	rdb *redis.Client
	key string
}

// NewRedisTokenCache creates new RedisTokenCache instance
func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb, key: redisTokenKey}
}

// Get returns cached token
func (rc *RedisTokenCache) Get(ctx context.Context) (string, bool, error) {
	token, err := rc.rdb.Get(ctx, rc.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Set stores token with expiration
func (rc *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return rc.rdb.Set(ctx, rc.key, token, ttl).Err()
}

// Delete removes shared token so every instance fetches a new one
func (rc *RedisTokenCache) Delete(ctx context.Context) error {
	return rc.rdb.Del(ctx, rc.key).Err()
}

var (
	_ TokenCache = (*MemoryTokenCache)(nil)
	_ TokenCache = (*RedisTokenCache)(nil)
)

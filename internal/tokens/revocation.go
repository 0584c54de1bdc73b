package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers revoked token ids until the token would have expired.
type Revocations interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	Revoked(ctx context.Context, id string) (bool, error)
}

// RedisRevocations keeps revoked ids as expiring keys.
type RedisRevocations struct {
	client *redis.Client
	prefix string
}

func NewRedisRevocations(client *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "revoked:token:"
	}
	return &RedisRevocations{client: client, prefix: prefix}
}

func (r *RedisRevocations) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+id, "1", ttl).Err()
}

func (r *RedisRevocations) Revoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocations is the single-process fallback used without redis.
type MemoryRevocations struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{until: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryRevocations) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.until {
		if !now.Before(exp) {
			delete(m.until, k)
		}
	}
	if ttl > 0 {
		m.until[id] = now.Add(ttl)
	}
	return nil
}

func (m *MemoryRevocations) Revoked(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.until[id]
	return ok && m.now().Before(exp), nil
}

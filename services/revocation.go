package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers logged-out session ids until their tokens would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// MemoryRevocationList keeps revoked ids in process memory.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty in-memory revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryRevocationList) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, k)
		}
	}
	if until.After(now) {
		m.entries[id] = until
	}
	return nil
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.entries, id)
		return false, nil
	}
	return true, nil
}

const revokedKeyPrefix = "session:revoked:"

// RedisRevocationList stores revoked ids as redis keys that expire with the token.
type RedisRevocationList struct {
	client *redis.Client
}

// NewRedisRevocationList creates a revocation list backed by redis.
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Set(ctx, revokedKeyPrefix+id, "1", ttl).Err()
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := r.client.Exists(ctx, revokedKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegistrationGuard caps successful registrations per client IP per day.
// It fails open: without redis, or when redis errors, registrations are allowed.
type RegistrationGuard struct {
	client    *redis.Client
	maxPerDay int
	now       func() time.Time
}

// NewRegistrationGuard creates a guard; maxPerDay <= 0 or a nil client disables it.
func NewRegistrationGuard(client *redis.Client, maxPerDay int) *RegistrationGuard {
	return &RegistrationGuard{client: client, maxPerDay: maxPerDay, now: time.Now}
}

func (g *RegistrationGuard) key(ip string) string {
	return "reg:succday:" + ip + ":" + g.now().Format("20060102")
}

// Allow reports whether ip may register another account today.
func (g *RegistrationGuard) Allow(ctx context.Context, ip string) bool {
	if g == nil || g.client == nil || g.maxPerDay <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := g.client.Get(ctx, g.key(ip)).Int()
	if err != nil {
		// redis.Nil: nothing recorded today
		return true
	}
	return n < g.maxPerDay
}

// Record counts a successful registration for ip; the counter expires at the end of the day.
func (g *RegistrationGuard) Record(ctx context.Context, ip string) {
	if g == nil || g.client == nil || g.maxPerDay <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := g.key(ip)
	if err := g.client.Incr(ctx, key).Err(); err == nil {
		now := g.now()
		ttl := now.Truncate(24 * time.Hour).Add(24 * time.Hour).Sub(now)
		_ = g.client.Expire(ctx, key, ttl).Err()
	}
}

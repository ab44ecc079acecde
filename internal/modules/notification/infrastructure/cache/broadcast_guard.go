package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

const broadcastKeyPrefix = "notification:broadcast:"

// RedisBroadcastGuard remembers issued broadcast keys so the same logical
// broadcast cannot run twice within the TTL, across all instances.
type RedisBroadcastGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBroadcastGuard(client *redis.Client, ttl time.Duration) *RedisBroadcastGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisBroadcastGuard{client: client, ttl: ttl}
}

// Claim returns domain.ErrDuplicateBroadcast when key was already claimed.
func (g *RedisBroadcastGuard) Claim(ctx context.Context, key string) error {
	ok, err := g.client.SetNX(ctx, broadcastKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrDuplicateBroadcast
	}
	return nil
}

// Release forgets key so the broadcast can be issued again.
func (g *RedisBroadcastGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, broadcastKeyPrefix+key).Err()
}

// NoopBroadcastGuard accepts every key. Used when Redis is disabled.
type NoopBroadcastGuard struct{}

func (NoopBroadcastGuard) Claim(context.Context, string) error   { return nil }
func (NoopBroadcastGuard) Release(context.Context, string) error { return nil }

package redis

import (
	"context"
	"fmt"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisPresenceStore struct {
	client *redis.Client
	prefix string
}

func NewRedisPresenceStore(client *redis.Client) ports.PresenceStore {
	return &RedisPresenceStore{
		client: client,
		prefix: "streampulse:presence:",
	}
}

func (r *RedisPresenceStore) presenceKey(email domain.Email) string {
	return r.prefix + string(email)
}

func (r *RedisPresenceStore) SetState(ctx context.Context, email domain.Email, state domain.PresenceState, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.presenceKey(email), string(state), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set presence marker: %w", err)
	}
	return nil
}

// GetState treats a missing key as offline; Redis expiry is the offline
// transition in the TTL model.
func (r *RedisPresenceStore) GetState(ctx context.Context, email domain.Email) (domain.PresenceState, error) {
	val, err := r.client.Get(ctx, r.presenceKey(email)).Result()
	if err == redis.Nil {
		return domain.PresenceOffline, nil
	}
	if err != nil {
		return domain.PresenceOffline, fmt.Errorf("failed to get presence marker: %w", err)
	}
	return domain.PresenceState(val), nil
}

func (r *RedisPresenceStore) Refresh(ctx context.Context, email domain.Email, ttl time.Duration) error {
	ok, err := r.client.Expire(ctx, r.presenceKey(email), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh presence marker: %w", err)
	}
	if !ok {
		return domain.ErrPresenceNotFound
	}
	return nil
}

func (r *RedisPresenceStore) Clear(ctx context.Context, email domain.Email) error {
	if err := r.client.Del(ctx, r.presenceKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to clear presence marker: %w", err)
	}
	return nil
}

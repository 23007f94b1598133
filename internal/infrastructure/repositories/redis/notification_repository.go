package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisNotificationRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisNotificationRepository(client *redis.Client) ports.NotificationRepository {
	return &RedisNotificationRepository{
		client: client,
		prefix: "streampulse:",
	}
}

func (r *RedisNotificationRepository) notificationKey(id domain.NotificationID) string {
	return r.prefix + "notification:" + string(id)
}

func (r *RedisNotificationRepository) unsentKey(user domain.Email) string {
	return r.prefix + "unsent:" + string(user)
}

func (r *RedisNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// SetNX keeps Create insert-only so a restore cannot clobber a row
	// that advanced past the snapshot.
	created, err := r.client.SetNX(ctx, r.notificationKey(n.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	if !created {
		return fmt.Errorf("notification already exists: %s", n.ID)
	}
	if !n.Sent {
		if err := r.client.SAdd(ctx, r.unsentKey(n.User), string(n.ID)).Err(); err != nil {
			return fmt.Errorf("failed to index notification: %w", err)
		}
	}
	return nil
}

func (r *RedisNotificationRepository) ListUnsent(ctx context.Context, user domain.Email) ([]*domain.Notification, error) {
	ids, err := r.client.SMembers(ctx, r.unsentKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unsent notifications: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var out []*domain.Notification
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.notificationKey(domain.NotificationID(id))).Result()
		if err == redis.Nil {
			// Row expired or was deleted; drop the dangling index entry.
			r.client.SRem(ctx, r.unsentKey(user), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get notification %s: %w", id, err)
		}

		var n domain.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification %s: %w", id, err)
		}
		out = append(out, &n)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RedisNotificationRepository) List(ctx context.Context) ([]*domain.Notification, error) {
	pattern := r.prefix + "notification:*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var out []*domain.Notification
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			// Key expired between the scan and the read.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get notification %s: %w", iter.Val(), err)
		}

		var n domain.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification %s: %w", iter.Val(), err)
		}
		out = append(out, &n)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RedisNotificationRepository) MarkSent(ctx context.Context, id domain.NotificationID, retention time.Duration) error {
	key := r.notificationKey(id)
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return domain.ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get notification from Redis: %w", err)
	}

	var n domain.Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	n.Sent = true

	updated, err := json.Marshal(&n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, updated, retention)
	pipe.SRem(ctx, r.unsentKey(n.User), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

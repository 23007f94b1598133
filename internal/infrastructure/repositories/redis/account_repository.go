package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisAccountRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisAccountRepository(client *redis.Client) ports.AccountRepository {
	return &RedisAccountRepository{
		client: client,
		prefix: "streampulse:account:",
	}
}

func (r *RedisAccountRepository) accountKey(email domain.Email) string {
	return r.prefix + string(email)
}

func (r *RedisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.accountKey(account.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set account in Redis: %w", err)
	}
	if !ok {
		return domain.ErrEmailTaken
	}

	return nil
}

func (r *RedisAccountRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.Account, error) {
	data, err := r.client.Get(ctx, r.accountKey(email)).Result()
	if err == redis.Nil {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account from Redis: %w", err)
	}

	var account domain.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	return &account, nil
}

package repositories

import (
	"context"

	"streampulse/internal/core/ports"
	"streampulse/internal/infrastructure/repositories/memory"
	redisrepo "streampulse/internal/infrastructure/repositories/redis"
	"streampulse/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// RedisClient exposes the shared client for components that need raw
// pub/sub access. Nil when running on memory repositories.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

// CreateProfileRepository creates a profile repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateProfileRepository() ports.ProfileRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisProfileRepository(f.redisClient)
	}
	return memory.NewMemoryProfileRepository()
}

// CreateAccountRepository creates an account repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateAccountRepository() ports.AccountRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisAccountRepository(f.redisClient)
	}
	return memory.NewMemoryAccountRepository()
}

// CreateNotificationRepository creates a notification repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateNotificationRepository() ports.NotificationRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisNotificationRepository(f.redisClient)
	}
	return memory.NewMemoryNotificationRepository()
}

// CreatePresenceStore creates a presence store (Redis or memory with fallback)
func (f *RepositoryFactory) CreatePresenceStore() ports.PresenceStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisPresenceStore(f.redisClient)
	}
	return memory.NewMemoryPresenceStore()
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}

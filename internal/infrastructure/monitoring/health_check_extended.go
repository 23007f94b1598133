package monitoring

import (
	"context"
	"errors"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// healthProbeEmail is never a real account; a not-found answer proves the
// repository is reachable.
const healthProbeEmail = domain.Email("healthcheck@streampulse.invalid")

// AddRedisCheck adds a Redis health check
func (h *HealthChecker) AddRedisCheck(client *redis.Client, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, timeout)
}

// AddRepositoryCheck adds a profile repository health check
func (h *HealthChecker) AddRepositoryCheck(repo ports.ProfileRepository, timeout time.Duration) {
	h.AddCheck("repository", func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, err := repo.GetByEmail(ctx, healthProbeEmail)
		if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return false, err
		}
		return true, nil
	}, timeout)
}

// GetReadinessStatus returns readiness status for load balancer
func (h *HealthChecker) GetReadinessStatus(ctx context.Context) HealthStatus {
	return h.CheckAll(ctx)
}

package distributed

import (
	"context"
	"time"

	"streampulse/internal/core/services"
	"streampulse/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepLockKey = "sweep:follows"

// RedisSweepGate backs the follow-repair sweep with a Redis lock so only one
// API instance scans the edge sets at a time.
type RedisSweepGate struct {
	locks  *distributed.LockManager
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewRedisSweepGate(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *RedisSweepGate {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisSweepGate{
		locks:  distributed.NewLockManager(client, "streampulse:lock:"),
		ttl:    ttl,
		logger: logger,
	}
}

func (g *RedisSweepGate) Acquire(ctx context.Context) (func(), bool, error) {
	// A fresh lock per sweep: the lock renews itself until released.
	lock := g.locks.AcquireLock(sweepLockKey, g.ttl)
	acquired, err := lock.TryLock(ctx)
	if err != nil || !acquired {
		return nil, false, err
	}
	release := func() {
		if err := lock.Unlock(context.Background()); err != nil {
			g.logger.Warnw("failed to release sweep lock", "error", err)
		}
	}
	return release, true, nil
}

var _ services.SweepGate = (*RedisSweepGate)(nil)

package services

import (
	"context"
	"errors"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"go.uber.org/zap"
)

// presenceService is the heartbeat/TTL presence model: a session marker is
// renewed by heartbeats and expires on its own when a client vanishes, so
// best-effort unload delivery is no longer load-bearing.
type presenceService struct {
	store  ports.PresenceStore
	logger *zap.SugaredLogger
	config PresenceConfig
}

type PresenceConfig struct {
	// HeartbeatTTL is how long a presence marker survives without renewal.
	HeartbeatTTL time.Duration
}

func NewPresenceService(store ports.PresenceStore, cfg PresenceConfig, logger *zap.SugaredLogger) ports.PresenceService {
	return &presenceService{
		store:  store,
		logger: logger,
		config: cfg,
	}
}

func (s *presenceService) Connect(ctx context.Context, email domain.Email) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingIdentity
	}
	return s.store.SetState(ctx, email, domain.PresenceOnline, s.config.HeartbeatTTL)
}

func (s *presenceService) Heartbeat(ctx context.Context, email domain.Email) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingIdentity
	}
	err := s.store.Refresh(ctx, email, s.config.HeartbeatTTL)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		// Marker already expired; treat the heartbeat as a reconnect.
		return s.store.SetState(ctx, email, domain.PresenceOnline, s.config.HeartbeatTTL)
	}
	return err
}

// Away marks a hidden tab. The session is still reachable for popups later,
// so it must not be confused with offline (which would trigger emails).
func (s *presenceService) Away(ctx context.Context, email domain.Email) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingIdentity
	}
	return s.store.SetState(ctx, email, domain.PresenceAway, s.config.HeartbeatTTL)
}

func (s *presenceService) Disconnect(ctx context.Context, email domain.Email) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingIdentity
	}
	if err := s.store.Clear(ctx, email); err != nil {
		// Unload delivery is best-effort; the TTL is the backstop.
		s.logger.Warnw("failed to clear presence, marker will expire",
			"email", email,
			"error", err,
		)
		return err
	}
	return nil
}

func (s *presenceService) IsOnline(ctx context.Context, email domain.Email) (bool, error) {
	state, err := s.store.GetState(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	return state == domain.PresenceOnline, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/utils"

	"go.uber.org/zap"
)

type followService struct {
	profiles ports.ProfileRepository
	metrics  *MetricsService
	logger   *zap.SugaredLogger
}

func NewFollowService(
	profiles ports.ProfileRepository,
	metrics *MetricsService,
	logger *zap.SugaredLogger,
) ports.FollowService {
	return &followService{
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *followService) Toggle(ctx context.Context, actor, target domain.Email) (ports.FollowState, error) {
	actor = normalizeEmail(actor)
	target = normalizeEmail(target)

	if actor == "" {
		return "", domain.ErrMissingIdentity
	}
	if actor == target {
		return "", domain.ErrSelfFollow
	}

	// The actor must exist; the target may not (a pending follow is kept on
	// the actor side so it survives target creation).
	if _, err := s.profiles.GetByEmail(ctx, actor); err != nil {
		return "", fmt.Errorf("failed to load actor profile: %w", err)
	}

	_, err := s.profiles.GetByEmail(ctx, target)
	if errors.Is(err, domain.ErrProfileNotFound) {
		if err := s.profiles.AddPendingFollow(ctx, actor, target); err != nil {
			return "", fmt.Errorf("failed to record pending follow: %w", err)
		}
		s.logger.Infow("pending follow recorded",
			"actor", actor,
			"target", target,
		)
		s.metrics.RecordFollowToggle()
		return ports.StatePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load target profile: %w", err)
	}

	following, err := s.profiles.ToggleFollow(ctx, actor, target)
	if err != nil {
		return "", fmt.Errorf("failed to toggle follow: %w", err)
	}

	s.metrics.RecordFollowToggle()
	if following {
		return ports.StateFollowing, nil
	}
	return ports.StateNotFollowing, nil
}

func normalizeEmail(e domain.Email) domain.Email {
	return domain.Email(utils.NormalizeEmail(string(e)))
}

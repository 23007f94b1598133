package services

import (
	"context"
	"fmt"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFanoutConcurrency = 8

type liveService struct {
	profiles      ports.ProfileRepository
	notifications ports.NotificationRepository
	presence      ports.PresenceStore
	feed          ports.NotificationFeed
	email         ports.EmailSender
	metrics       *MetricsService
	logger        *zap.SugaredLogger
	maxConcurrent int
}

func NewLiveService(
	profiles ports.ProfileRepository,
	notifications ports.NotificationRepository,
	presence ports.PresenceStore,
	feed ports.NotificationFeed,
	email ports.EmailSender,
	metrics *MetricsService,
	logger *zap.SugaredLogger,
	maxConcurrent int,
) ports.LiveService {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultFanoutConcurrency
	}
	return &liveService{
		profiles:      profiles,
		notifications: notifications,
		presence:      presence,
		feed:          feed,
		email:         email,
		metrics:       metrics,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

func (s *liveService) GoLive(ctx context.Context, owner domain.Email) (bool, error) {
	owner = normalizeEmail(owner)
	if owner == "" {
		return false, domain.ErrMissingIdentity
	}

	changed, err := s.profiles.SetLive(ctx, owner, true)
	if err != nil {
		return false, fmt.Errorf("failed to set live flag: %w", err)
	}

	// Fan out only on the false->true transition. A repeated "go live"
	// click must not re-notify followers.
	if changed {
		s.metrics.RecordLiveStart()
		if err := s.fanout(ctx, owner); err != nil {
			// The channel is live; a broken fan-out is logged, not returned.
			s.logger.Errorw("go-live fan-out failed",
				"owner", owner,
				"error", err,
			)
		}
	}

	return changed, nil
}

func (s *liveService) StopLive(ctx context.Context, owner domain.Email) (bool, error) {
	owner = normalizeEmail(owner)
	if owner == "" {
		return false, domain.ErrMissingIdentity
	}

	changed, err := s.profiles.SetLive(ctx, owner, false)
	if err != nil {
		return false, fmt.Errorf("failed to clear live flag: %w", err)
	}
	if changed {
		s.metrics.RecordLiveStop()
	}
	return changed, nil
}

func (s *liveService) ListLive(ctx context.Context) ([]*domain.Profile, error) {
	channels, err := s.profiles.LiveChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live channels: %w", err)
	}

	out := make([]*domain.Profile, 0, len(channels))
	for _, email := range channels {
		profile, err := s.profiles.GetByEmail(ctx, email)
		if err != nil {
			// The channel went offline or was removed after the index read.
			continue
		}
		if profile.IsLive {
			out = append(out, profile)
		}
	}
	return out, nil
}

// fanout notifies every follower of a channel that just went live. Followers
// are re-read after the flag write so a stale snapshot from before the
// transition cannot be used. Per-follower failures are isolated: one broken
// profile or one refused email never aborts the rest of the batch.
func (s *liveService) fanout(ctx context.Context, owner domain.Email) error {
	ownerProfile, err := s.profiles.GetByEmail(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to load owner profile: %w", err)
	}

	followers, err := s.profiles.Followers(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list followers: %w", err)
	}

	ctx, span := tracing.TraceFanout(ctx, string(ownerProfile.Username), len(followers))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, follower := range followers {
		follower := follower
		g.Go(func() error {
			if err := s.notifyFollower(gctx, ownerProfile.Username, follower); err != nil {
				s.metrics.RecordFanoutFailure()
				s.logger.Warnw("failed to notify follower",
					"streamer", ownerProfile.Username,
					"follower", follower,
					"error", err,
				)
			}
			// Always nil: errors are isolated per follower.
			return nil
		})
	}

	return g.Wait()
}

func (s *liveService) notifyFollower(ctx context.Context, streamer domain.Username, follower domain.Email) error {
	profile, err := s.profiles.GetByEmail(ctx, follower)
	if err != nil {
		return fmt.Errorf("failed to load follower profile: %w", err)
	}

	state, err := s.presence.GetState(ctx, follower)
	if err != nil {
		return fmt.Errorf("failed to read presence: %w", err)
	}

	switch {
	case state == domain.PresenceOnline && profile.Prefs.Popup:
		n := &domain.Notification{
			ID:        domain.NotificationID(uuid.New().String()),
			Streamer:  streamer,
			User:      follower,
			Sent:      false,
			CreatedAt: time.Now(),
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		s.metrics.RecordNotificationCreated()
		// Feed publish is best-effort: the row is persisted, so a
		// reconnecting session will still pick it up from the unsent list.
		if err := s.feed.Publish(ctx, n); err != nil {
			s.logger.Warnw("failed to publish notification to feed",
				"notification_id", n.ID,
				"user", follower,
				"error", err,
			)
		}

	case state == domain.PresenceOffline && profile.Prefs.Email:
		subject := fmt.Sprintf("%s is live!", streamer)
		body := fmt.Sprintf("<p>%s just went live. Tune in now to catch the stream.</p>", streamer)
		if _, err := s.email.Send(ctx, follower, subject, body); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		s.metrics.RecordEmailSent()

	default:
		// Away sessions and followers without matching prefs get nothing.
	}

	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/validation"

	"go.uber.org/zap"
)

// DefaultProfilePic is used when a user completes their profile without
// providing a picture.
const DefaultProfilePic = "https://cdn.pixabay.com/photo/2023/02/18/11/00/icon-7797704_640.png"

type profileService struct {
	profiles ports.ProfileRepository
	logger   *zap.SugaredLogger
}

func NewProfileService(profiles ports.ProfileRepository, logger *zap.SugaredLogger) ports.ProfileService {
	return &profileService{
		profiles: profiles,
		logger:   logger,
	}
}

func (s *profileService) GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error) {
	return s.profiles.GetByEmail(ctx, normalizeEmail(email))
}

func (s *profileService) GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error) {
	return s.profiles.GetByUsername(ctx, username)
}

func (s *profileService) Complete(
	ctx context.Context,
	email domain.Email,
	username domain.Username,
	profilePic string,
	prefs domain.NotificationPrefs,
) (*domain.Profile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.ErrMissingIdentity
	}

	username = domain.Username(strings.TrimSpace(string(username)))
	if err := validation.ValidateUsername(string(username)); err != nil {
		return nil, err
	}
	if profilePic != "" {
		if err := validation.ValidateImageURL(profilePic); err != nil {
			return nil, err
		}
	} else {
		profilePic = DefaultProfilePic
	}

	// Username uniqueness is checked case-insensitively.
	if existing, err := s.profiles.GetByUsername(ctx, username); err == nil && existing.Email != email {
		return nil, domain.ErrUsernameTaken
	} else if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		profile = &domain.Profile{
			Email:      email,
			Username:   username,
			ProfilePic: profilePic,
			Prefs:      prefs,
			CreatedAt:  time.Now(),
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	default:
		profile.Username = username
		profile.ProfilePic = profilePic
		profile.Prefs = prefs
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	s.logger.Infow("profile completed",
		"email", email,
		"username", username,
	)
	return profile, nil
}

func (s *profileService) UpdateSettings(
	ctx context.Context,
	email domain.Email,
	settings ports.ProfileSettings,
) (*domain.Profile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, domain.ErrMissingIdentity
	}

	if settings.StreamURL != "" {
		if err := validation.ValidateYouTubeURL(settings.StreamURL); err != nil {
			return nil, err
		}
		settings.StreamURL = validation.NormalizeYouTubeEmbed(settings.StreamURL)
	}
	if settings.ProfilePic != "" {
		if err := validation.ValidateImageURL(settings.ProfilePic); err != nil {
			return nil, err
		}
	}
	for _, emote := range settings.Emotes {
		if err := validation.ValidateEmote(emote.Name, emote.URL); err != nil {
			return nil, err
		}
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	profile.Prefs = settings.Prefs
	if settings.StreamURL != "" {
		profile.StreamURL = settings.StreamURL
	}
	if settings.ProfilePic != "" {
		profile.ProfilePic = settings.ProfilePic
	}
	if settings.Emotes != nil {
		profile.Emotes = settings.Emotes
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return profile, nil
}

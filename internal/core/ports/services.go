package ports

import (
	"context"

	"streampulse/internal/core/domain"
)

// FollowState is the outcome of a follow toggle. StatePending is the
// distinguished partial result: the actor's following list was updated but
// the target profile does not exist yet.
type FollowState string

const (
	StateFollowing    FollowState = "following"
	StateNotFollowing FollowState = "not_following"
	StatePending      FollowState = "pending"
)

type ProfileService interface {
	GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error)
	// Complete claims a username and initial settings for a fresh account.
	Complete(ctx context.Context, email domain.Email, username domain.Username, profilePic string, prefs domain.NotificationPrefs) (*domain.Profile, error)
	// UpdateSettings validates and applies notification preferences, stream
	// URL (normalized to embed form), profile picture and emotes.
	UpdateSettings(ctx context.Context, email domain.Email, settings ProfileSettings) (*domain.Profile, error)
}

type ProfileSettings struct {
	Prefs      domain.NotificationPrefs
	StreamURL  string
	ProfilePic string
	Emotes     []domain.Emote
}

type FollowService interface {
	Toggle(ctx context.Context, actor, target domain.Email) (FollowState, error)
}

// LiveService flips a channel's live flag. The returned bool reports
// whether the call was a transition; repeated calls in the same direction
// return false and have no side effects.
type LiveService interface {
	GoLive(ctx context.Context, owner domain.Email) (bool, error)
	StopLive(ctx context.Context, owner domain.Email) (bool, error)
	// ListLive returns the profiles of every channel currently live.
	ListLive(ctx context.Context) ([]*domain.Profile, error)
}

type PresenceService interface {
	Connect(ctx context.Context, email domain.Email) error
	Heartbeat(ctx context.Context, email domain.Email) error
	Away(ctx context.Context, email domain.Email) error
	Disconnect(ctx context.Context, email domain.Email) error
	IsOnline(ctx context.Context, email domain.Email) (bool, error)
}

package ports

import (
	"context"
	"time"

	"streampulse/internal/core/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error)
	// GetByUsername resolves a channel handle case-insensitively.
	GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error

	// ToggleFollow atomically toggles actor's membership in target.Followers
	// and target's membership in actor.Following, returning true when the
	// relationship exists after the call.
	ToggleFollow(ctx context.Context, actor, target domain.Email) (bool, error)
	// AddPendingFollow records a one-sided follow when the target profile
	// does not exist yet, so the edge survives target creation.
	AddPendingFollow(ctx context.Context, actor, target domain.Email) error
	Followers(ctx context.Context, email domain.Email) ([]domain.Email, error)

	// RepairFollows scans for asymmetric follow edges and restores the
	// bidirectional invariant. Returns the number of repaired edges.
	RepairFollows(ctx context.Context) (int, error)

	// List returns every stored profile. Used by the backup scheduler.
	List(ctx context.Context) ([]*domain.Profile, error)

	SetLive(ctx context.Context, email domain.Email, live bool) (changed bool, err error)
	// LiveChannels returns the emails of every channel currently live.
	LiveChannels(ctx context.Context) ([]domain.Email, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email domain.Email) (*domain.Account, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// ListUnsent returns pending rows for a recipient, oldest first.
	ListUnsent(ctx context.Context, user domain.Email) ([]*domain.Notification, error)
	// MarkSent flips the sent flag and schedules the row for expiry after
	// the retention period.
	MarkSent(ctx context.Context, id domain.NotificationID, retention time.Duration) error
	// List returns every stored notification. Used by the backup scheduler.
	List(ctx context.Context) ([]*domain.Notification, error)
}

type PresenceStore interface {
	// SetState writes the session's presence marker with a TTL; expiry
	// without renewal means offline.
	SetState(ctx context.Context, email domain.Email, state domain.PresenceState, ttl time.Duration) error
	GetState(ctx context.Context, email domain.Email) (domain.PresenceState, error)
	// Refresh renews the marker's TTL without changing the state.
	Refresh(ctx context.Context, email domain.Email, ttl time.Duration) error
	Clear(ctx context.Context, email domain.Email) error
}

package repositories

import (
	"context"
	"strings"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/cache"
)

// CachedProfileRepository puts a short-lived cache in front of channel-page
// lookups. GetByUsername is the hot path: every visitor of a channel page
// resolves the handle, while writes are rare. All other operations pass
// through; any write clears the cache so a page never shows a profile older
// than the TTL.
type CachedProfileRepository struct {
	inner ports.ProfileRepository
	cache *cache.Cache
}

func NewCachedProfileRepository(inner ports.ProfileRepository, ttl time.Duration) *CachedProfileRepository {
	return &CachedProfileRepository{
		inner: inner,
		cache: cache.NewCache(ttl),
	}
}

func usernameCacheKey(username domain.Username) string {
	return "username:" + strings.ToLower(string(username))
}

func (r *CachedProfileRepository) GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error) {
	key := usernameCacheKey(username)
	if v, ok := r.cache.Get(key); ok {
		clone := *(v.(*domain.Profile))
		return &clone, nil
	}

	profile, err := r.inner.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	clone := *profile
	r.cache.Set(key, &clone)
	return profile, nil
}

func (r *CachedProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if err := r.inner.Create(ctx, profile); err != nil {
		return err
	}
	r.cache.Clear()
	return nil
}

func (r *CachedProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	if err := r.inner.Update(ctx, profile); err != nil {
		return err
	}
	r.cache.Clear()
	return nil
}

func (r *CachedProfileRepository) SetLive(ctx context.Context, email domain.Email, live bool) (bool, error) {
	changed, err := r.inner.SetLive(ctx, email, live)
	if err != nil {
		return false, err
	}
	if changed {
		r.cache.Clear()
	}
	return changed, nil
}

func (r *CachedProfileRepository) ToggleFollow(ctx context.Context, actor, target domain.Email) (bool, error) {
	following, err := r.inner.ToggleFollow(ctx, actor, target)
	if err != nil {
		return false, err
	}
	r.cache.Clear()
	return following, nil
}

func (r *CachedProfileRepository) AddPendingFollow(ctx context.Context, actor, target domain.Email) error {
	if err := r.inner.AddPendingFollow(ctx, actor, target); err != nil {
		return err
	}
	r.cache.Clear()
	return nil
}

func (r *CachedProfileRepository) RepairFollows(ctx context.Context) (int, error) {
	repaired, err := r.inner.RepairFollows(ctx)
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		r.cache.Clear()
	}
	return repaired, nil
}

func (r *CachedProfileRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error) {
	return r.inner.GetByEmail(ctx, email)
}

func (r *CachedProfileRepository) Followers(ctx context.Context, email domain.Email) ([]domain.Email, error) {
	return r.inner.Followers(ctx, email)
}

func (r *CachedProfileRepository) List(ctx context.Context) ([]*domain.Profile, error) {
	return r.inner.List(ctx)
}

func (r *CachedProfileRepository) LiveChannels(ctx context.Context) ([]domain.Email, error) {
	return r.inner.LiveChannels(ctx)
}

// Stop shuts down the cache's cleanup goroutine.
func (r *CachedProfileRepository) Stop() {
	r.cache.Stop()
}

var _ ports.ProfileRepository = (*CachedProfileRepository)(nil)

package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

type MemoryProfileRepository struct {
	profiles map[domain.Email]*domain.Profile
	// following and followers are kept separately from the profile structs
	// so pending follows (edges to profiles that do not exist yet) have a
	// place to live.
	following map[domain.Email]map[domain.Email]bool
	followers map[domain.Email]map[domain.Email]bool
	mu        sync.RWMutex
}

func NewMemoryProfileRepository() ports.ProfileRepository {
	return &MemoryProfileRepository{
		profiles:  make(map[domain.Email]*domain.Profile),
		following: make(map[domain.Email]map[domain.Email]bool),
		followers: make(map[domain.Email]map[domain.Email]bool),
	}
}

func (r *MemoryProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.Email]; exists {
		return fmt.Errorf("profile already exists: %s", profile.Email)
	}

	clone := *profile
	r.profiles[profile.Email] = &clone
	return nil
}

func (r *MemoryProfileRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(email)
}

func (r *MemoryProfileRepository) GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(string(username))
	for email, p := range r.profiles {
		if strings.ToLower(string(p.Username)) == needle {
			return r.snapshot(email)
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *MemoryProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.Email]; !exists {
		return domain.ErrProfileNotFound
	}

	clone := *profile
	// Follow sets are owned by the edge maps, not the struct.
	clone.Following = nil
	clone.Followers = nil
	r.profiles[profile.Email] = &clone
	return nil
}

func (r *MemoryProfileRepository) ToggleFollow(ctx context.Context, actor, target domain.Email) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.following[actor][target] {
		delete(r.following[actor], target)
		delete(r.followers[target], actor)
		return false, nil
	}

	r.edgeSet(r.following, actor)[target] = true
	r.edgeSet(r.followers, target)[actor] = true
	return true, nil
}

func (r *MemoryProfileRepository) AddPendingFollow(ctx context.Context, actor, target domain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgeSet(r.following, actor)[target] = true
	return nil
}

func (r *MemoryProfileRepository) Followers(ctx context.Context, email domain.Email) ([]domain.Email, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return setToSlice(r.followers[email]), nil
}

func (r *MemoryProfileRepository) RepairFollows(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	repaired := 0
	for actor, targets := range r.following {
		for target := range targets {
			if _, exists := r.profiles[target]; !exists {
				continue // still pending
			}
			if !r.followers[target][actor] {
				r.edgeSet(r.followers, target)[actor] = true
				repaired++
			}
		}
	}
	for target, actors := range r.followers {
		for actor := range actors {
			if !r.following[actor][target] {
				r.edgeSet(r.following, actor)[target] = true
				repaired++
			}
		}
	}
	return repaired, nil
}

func (r *MemoryProfileRepository) List(ctx context.Context) ([]*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Profile, 0, len(r.profiles))
	for email := range r.profiles {
		p, err := r.snapshot(email)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MemoryProfileRepository) SetLive(ctx context.Context, email domain.Email, live bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, exists := r.profiles[email]
	if !exists {
		return false, domain.ErrProfileNotFound
	}
	if profile.IsLive == live {
		return false, nil
	}
	profile.IsLive = live
	return true, nil
}

func (r *MemoryProfileRepository) LiveChannels(ctx context.Context) ([]domain.Email, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Email
	for email, profile := range r.profiles {
		if profile.IsLive {
			out = append(out, email)
		}
	}
	return out, nil
}

// snapshot returns a copy of the profile with follow sets materialized.
// Callers must hold at least the read lock.
func (r *MemoryProfileRepository) snapshot(email domain.Email) (*domain.Profile, error) {
	p, exists := r.profiles[email]
	if !exists {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	clone.Following = setToSlice(r.following[email])
	clone.Followers = setToSlice(r.followers[email])
	return &clone, nil
}

func (r *MemoryProfileRepository) edgeSet(edges map[domain.Email]map[domain.Email]bool, key domain.Email) map[domain.Email]bool {
	if edges[key] == nil {
		edges[key] = make(map[domain.Email]bool)
	}
	return edges[key]
}

func setToSlice(set map[domain.Email]bool) []domain.Email {
	if len(set) == 0 {
		return nil
	}
	out := make([]domain.Email, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out
}

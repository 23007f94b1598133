package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisProfileRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisProfileRepository(client *redis.Client) ports.ProfileRepository {
	return &RedisProfileRepository{
		client: client,
		prefix: "streampulse:",
	}
}

func (r *RedisProfileRepository) profileKey(email domain.Email) string {
	return r.prefix + "profile:" + string(email)
}

func (r *RedisProfileRepository) usernameKey(username domain.Username) string {
	return r.prefix + "username:" + strings.ToLower(string(username))
}

func (r *RedisProfileRepository) followingKey(email domain.Email) string {
	return r.prefix + "following:" + string(email)
}

func (r *RedisProfileRepository) followersKey(email domain.Email) string {
	return r.prefix + "followers:" + string(email)
}

func (r *RedisProfileRepository) liveChannelsKey() string {
	return r.prefix + "live:channels"
}

// storedProfile is the Redis encoding of a profile. Follow edges are kept
// in sets keyed by email, never inside the JSON document.
type storedProfile struct {
	Email      domain.Email             `json:"email"`
	Username   domain.Username          `json:"username"`
	ProfilePic string                   `json:"profile_pic"`
	StreamURL  string                   `json:"stream_url"`
	IsLive     bool                     `json:"is_live"`
	Prefs      domain.NotificationPrefs `json:"prefs"`
	Emotes     []domain.Emote           `json:"emotes,omitempty"`
	CreatedAt  int64                    `json:"created_at"`
}

func (r *RedisProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	data, err := json.Marshal(toStored(profile))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	key := r.profileKey(profile.Email)
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set profile in Redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("profile already exists: %s", profile.Email)
	}

	if err := r.client.Set(ctx, r.usernameKey(profile.Username), string(profile.Email), 0).Err(); err != nil {
		return fmt.Errorf("failed to index username: %w", err)
	}

	return nil
}

func (r *RedisProfileRepository) GetByEmail(ctx context.Context, email domain.Email) (*domain.Profile, error) {
	data, err := r.client.Get(ctx, r.profileKey(email)).Result()
	if err == redis.Nil {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from Redis: %w", err)
	}

	var stored storedProfile
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	profile := fromStored(&stored)
	if err := r.loadEdges(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *RedisProfileRepository) GetByUsername(ctx context.Context, username domain.Username) (*domain.Profile, error) {
	email, err := r.client.Get(ctx, r.usernameKey(username)).Result()
	if err == redis.Nil {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return r.GetByEmail(ctx, domain.Email(email))
}

func (r *RedisProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	existing, err := r.GetByEmail(ctx, profile.Email)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toStored(profile))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := r.client.Set(ctx, r.profileKey(profile.Email), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update profile in Redis: %w", err)
	}

	if existing.Username != profile.Username {
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, r.usernameKey(existing.Username))
		pipe.Set(ctx, r.usernameKey(profile.Username), string(profile.Email), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to reindex username: %w", err)
		}
	}

	return nil
}

func (r *RedisProfileRepository) ToggleFollow(ctx context.Context, actor, target domain.Email) (bool, error) {
	exists, err := r.client.SIsMember(ctx, r.followingKey(actor), string(target)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}

	// Both edge mutations ride one MULTI so a crash cannot leave the
	// relationship half-applied. A concurrent double toggle can still
	// race the membership check; RepairFollows restores symmetry.
	pipe := r.client.TxPipeline()
	if exists {
		pipe.SRem(ctx, r.followingKey(actor), string(target))
		pipe.SRem(ctx, r.followersKey(target), string(actor))
	} else {
		pipe.SAdd(ctx, r.followingKey(actor), string(target))
		pipe.SAdd(ctx, r.followersKey(target), string(actor))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to toggle follow edge: %w", err)
	}

	return !exists, nil
}

func (r *RedisProfileRepository) AddPendingFollow(ctx context.Context, actor, target domain.Email) error {
	if err := r.client.SAdd(ctx, r.followingKey(actor), string(target)).Err(); err != nil {
		return fmt.Errorf("failed to add pending follow: %w", err)
	}
	return nil
}

func (r *RedisProfileRepository) Followers(ctx context.Context, email domain.Email) ([]domain.Email, error) {
	members, err := r.client.SMembers(ctx, r.followersKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return toEmails(members), nil
}

func (r *RedisProfileRepository) RepairFollows(ctx context.Context) (int, error) {
	repaired := 0

	// Forward pass: every following edge must be mirrored in the target's
	// followers set, except pending edges whose target profile is missing.
	err := r.scanEdges(ctx, "following:", func(actor, target domain.Email) error {
		exists, err := r.client.Exists(ctx, r.profileKey(target)).Result()
		if err != nil {
			return fmt.Errorf("failed to check profile %s: %w", target, err)
		}
		if exists == 0 {
			return nil // still pending
		}
		added, err := r.client.SAdd(ctx, r.followersKey(target), string(actor)).Result()
		if err != nil {
			return fmt.Errorf("failed to repair followers edge: %w", err)
		}
		repaired += int(added)
		return nil
	})
	if err != nil {
		return repaired, err
	}

	// Backward pass: every followers edge must be mirrored in the actor's
	// following set.
	err = r.scanEdges(ctx, "followers:", func(target, actor domain.Email) error {
		added, err := r.client.SAdd(ctx, r.followingKey(actor), string(target)).Result()
		if err != nil {
			return fmt.Errorf("failed to repair following edge: %w", err)
		}
		repaired += int(added)
		return nil
	})
	return repaired, err
}

// scanEdges iterates every (owner, member) pair in one edge direction.
func (r *RedisProfileRepository) scanEdges(ctx context.Context, direction string, fn func(owner, member domain.Email) error) error {
	pattern := r.prefix + direction + "*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()
		owner := domain.Email(strings.TrimPrefix(key, r.prefix+direction))

		members, err := r.client.SMembers(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read edge set %s: %w", key, err)
		}
		for _, m := range members {
			if err := fn(owner, domain.Email(m)); err != nil {
				return err
			}
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan edge sets: %w", err)
	}
	return nil
}

func (r *RedisProfileRepository) List(ctx context.Context) ([]*domain.Profile, error) {
	pattern := r.prefix + "profile:*"
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var out []*domain.Profile
	for iter.Next(ctx) {
		email := domain.Email(strings.TrimPrefix(iter.Val(), r.prefix+"profile:"))
		profile, err := r.GetByEmail(ctx, email)
		if errors.Is(err, domain.ErrProfileNotFound) {
			// Key expired between the scan and the read.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	return out, nil
}

func (r *RedisProfileRepository) SetLive(ctx context.Context, email domain.Email, live bool) (bool, error) {
	profile, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if profile.IsLive == live {
		return false, nil
	}

	profile.IsLive = live
	data, err := json.Marshal(toStored(profile))
	if err != nil {
		return false, fmt.Errorf("failed to marshal profile: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.profileKey(email), data, 0)
	if live {
		pipe.SAdd(ctx, r.liveChannelsKey(), string(email))
	} else {
		pipe.SRem(ctx, r.liveChannelsKey(), string(email))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to update live state: %w", err)
	}

	return true, nil
}

func (r *RedisProfileRepository) LiveChannels(ctx context.Context) ([]domain.Email, error) {
	members, err := r.client.SMembers(ctx, r.liveChannelsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read live channels: %w", err)
	}

	out := make([]domain.Email, 0, len(members))
	for _, m := range members {
		out = append(out, domain.Email(m))
	}
	return out, nil
}

func (r *RedisProfileRepository) loadEdges(ctx context.Context, profile *domain.Profile) error {
	following, err := r.client.SMembers(ctx, r.followingKey(profile.Email)).Result()
	if err != nil {
		return fmt.Errorf("failed to load following set: %w", err)
	}
	followers, err := r.client.SMembers(ctx, r.followersKey(profile.Email)).Result()
	if err != nil {
		return fmt.Errorf("failed to load followers set: %w", err)
	}
	profile.Following = toEmails(following)
	profile.Followers = toEmails(followers)
	return nil
}

func toStored(p *domain.Profile) *storedProfile {
	return &storedProfile{
		Email:      p.Email,
		Username:   p.Username,
		ProfilePic: p.ProfilePic,
		StreamURL:  p.StreamURL,
		IsLive:     p.IsLive,
		Prefs:      p.Prefs,
		Emotes:     p.Emotes,
		CreatedAt:  p.CreatedAt.Unix(),
	}
}

func fromStored(s *storedProfile) *domain.Profile {
	return &domain.Profile{
		Email:      s.Email,
		Username:   s.Username,
		ProfilePic: s.ProfilePic,
		StreamURL:  s.StreamURL,
		IsLive:     s.IsLive,
		Prefs:      s.Prefs,
		Emotes:     s.Emotes,
		CreatedAt:  time.Unix(s.CreatedAt, 0).UTC(),
	}
}

func toEmails(members []string) []domain.Email {
	if len(members) == 0 {
		return nil
	}
	out := make([]domain.Email, 0, len(members))
	for _, m := range members {
		out = append(out, domain.Email(m))
	}
	return out
}

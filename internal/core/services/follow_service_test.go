package services_test

import (
	"context"
	"testing"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	"streampulse/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProfile(email domain.Email, username domain.Username) *domain.Profile {
	return &domain.Profile{
		Email:     email,
		Username:  username,
		Prefs:     domain.NotificationPrefs{Popup: true},
		CreatedAt: time.Now(),
	}
}

func TestFollowToggle_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryProfileRepository()
	svc := services.NewFollowService(repo, services.NewMetricsService(), zap.NewNop().Sugar())

	require.NoError(t, repo.Create(ctx, newTestProfile("alice@test.dev", "alice")))
	require.NoError(t, repo.Create(ctx, newTestProfile("bob@test.dev", "bob")))

	state, err := svc.Toggle(ctx, "alice@test.dev", "bob@test.dev")
	require.NoError(t, err)
	assert.Equal(t, ports.StateFollowing, state)

	// Both edges must exist after the first toggle.
	bob, err := repo.GetByEmail(ctx, "bob@test.dev")
	require.NoError(t, err)
	assert.Contains(t, bob.Followers, domain.Email("alice@test.dev"))

	alice, err := repo.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.Contains(t, alice.Following, domain.Email("bob@test.dev"))

	// Second toggle unfollows and removes both edges.
	state, err = svc.Toggle(ctx, "alice@test.dev", "bob@test.dev")
	require.NoError(t, err)
	assert.Equal(t, ports.StateNotFollowing, state)

	bob, err = repo.GetByEmail(ctx, "bob@test.dev")
	require.NoError(t, err)
	assert.NotContains(t, bob.Followers, domain.Email("alice@test.dev"))
}

func TestFollowToggle_SelfFollowRejected(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryProfileRepository()
	svc := services.NewFollowService(repo, services.NewMetricsService(), zap.NewNop().Sugar())

	require.NoError(t, repo.Create(ctx, newTestProfile("alice@test.dev", "alice")))

	_, err := svc.Toggle(ctx, "alice@test.dev", "alice@test.dev")
	assert.ErrorIs(t, err, domain.ErrSelfFollow)

	// Email comparison is case-insensitive, so this is still a self-follow.
	_, err = svc.Toggle(ctx, "alice@test.dev", " Alice@Test.Dev ")
	assert.ErrorIs(t, err, domain.ErrSelfFollow)

	alice, err := repo.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.Empty(t, alice.Following)
}

func TestFollowToggle_MissingIdentity(t *testing.T) {
	svc := services.NewFollowService(memory.NewMemoryProfileRepository(), services.NewMetricsService(), zap.NewNop().Sugar())

	_, err := svc.Toggle(context.Background(), "", "bob@test.dev")
	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
}

func TestFollowToggle_PendingTarget(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryProfileRepository()
	metrics := services.NewMetricsService()
	svc := services.NewFollowService(repo, metrics, zap.NewNop().Sugar())

	require.NoError(t, repo.Create(ctx, newTestProfile("alice@test.dev", "alice")))

	state, err := svc.Toggle(ctx, "alice@test.dev", "ghost@test.dev")
	require.NoError(t, err)
	assert.Equal(t, ports.StatePending, state)

	// The actor-side edge exists but the target has no follower edge yet.
	alice, err := repo.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.Contains(t, alice.Following, domain.Email("ghost@test.dev"))

	// Once the target profile is created, the repair pass completes the edge.
	require.NoError(t, repo.Create(ctx, newTestProfile("ghost@test.dev", "ghost")))
	repaired, err := repo.RepairFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	ghost, err := repo.GetByEmail(ctx, "ghost@test.dev")
	require.NoError(t, err)
	assert.Contains(t, ghost.Followers, domain.Email("alice@test.dev"))
}

func TestFollowToggle_CountsToggles(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMemoryProfileRepository()
	metrics := services.NewMetricsService()
	svc := services.NewFollowService(repo, metrics, zap.NewNop().Sugar())

	require.NoError(t, repo.Create(ctx, newTestProfile("alice@test.dev", "alice")))
	require.NoError(t, repo.Create(ctx, newTestProfile("bob@test.dev", "bob")))

	_, err := svc.Toggle(ctx, "alice@test.dev", "bob@test.dev")
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, "alice@test.dev", "bob@test.dev")
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.Snapshot().FollowToggles)
}

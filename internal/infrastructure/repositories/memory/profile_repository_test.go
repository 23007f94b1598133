package memory

import (
	"context"
	"testing"
	"time"

	"streampulse/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProfile(t *testing.T, repo *MemoryProfileRepository, email domain.Email, username domain.Username) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Profile{
		Email:     email,
		Username:  username,
		CreatedAt: time.Now(),
	}))
}

func TestToggleFollow_BothEdges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)
	seedProfile(t, repo, "a@test.dev", "a1")
	seedProfile(t, repo, "b@test.dev", "b1")

	following, err := repo.ToggleFollow(ctx, "a@test.dev", "b@test.dev")
	require.NoError(t, err)
	assert.True(t, following)

	a, err := repo.GetByEmail(ctx, "a@test.dev")
	require.NoError(t, err)
	b, err := repo.GetByEmail(ctx, "b@test.dev")
	require.NoError(t, err)
	assert.Equal(t, []domain.Email{"b@test.dev"}, a.Following)
	assert.Equal(t, []domain.Email{"a@test.dev"}, b.Followers)

	following, err = repo.ToggleFollow(ctx, "a@test.dev", "b@test.dev")
	require.NoError(t, err)
	assert.False(t, following)

	a, err = repo.GetByEmail(ctx, "a@test.dev")
	require.NoError(t, err)
	assert.Empty(t, a.Following)
}

func TestUpdate_DoesNotTouchFollowEdges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)
	seedProfile(t, repo, "a@test.dev", "a1")
	seedProfile(t, repo, "b@test.dev", "b1")

	_, err := repo.ToggleFollow(ctx, "a@test.dev", "b@test.dev")
	require.NoError(t, err)

	a, err := repo.GetByEmail(ctx, "a@test.dev")
	require.NoError(t, err)
	a.ProfilePic = "https://cdn.test.dev/new.png"
	// The caller's stale edge slices must not overwrite the stored sets.
	a.Following = nil
	require.NoError(t, repo.Update(ctx, a))

	a, err = repo.GetByEmail(ctx, "a@test.dev")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test.dev/new.png", a.ProfilePic)
	assert.Equal(t, []domain.Email{"b@test.dev"}, a.Following)
}

func TestRepairFollows_CompletesPendingEdges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)
	seedProfile(t, repo, "a@test.dev", "a1")

	require.NoError(t, repo.AddPendingFollow(ctx, "a@test.dev", "ghost@test.dev"))

	// Target still missing: the edge stays pending.
	repaired, err := repo.RepairFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)

	seedProfile(t, repo, "ghost@test.dev", "ghost")
	repaired, err = repo.RepairFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	ghost, err := repo.GetByEmail(ctx, "ghost@test.dev")
	require.NoError(t, err)
	assert.Equal(t, []domain.Email{"a@test.dev"}, ghost.Followers)

	// A second pass finds nothing to do.
	repaired, err = repo.RepairFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}

func TestSetLive_ReportsTransitionsOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)
	seedProfile(t, repo, "a@test.dev", "a1")

	changed, err := repo.SetLive(ctx, "a@test.dev", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetLive(ctx, "a@test.dev", true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.SetLive(ctx, "a@test.dev", false)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.SetLive(ctx, "missing@test.dev", true)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestGetByUsername_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)
	seedProfile(t, repo, "a@test.dev", "StreamerOne")

	p, err := repo.GetByUsername(ctx, "streamerone")
	require.NoError(t, err)
	assert.Equal(t, domain.Email("a@test.dev"), p.Email)

	_, err = repo.GetByUsername(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestLiveChannels_TracksSetLive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfileRepository().(*MemoryProfileRepository)

	seedProfile(t, repo, "alice@test.dev", "alice")
	seedProfile(t, repo, "bob@test.dev", "bob")

	live, err := repo.LiveChannels(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	_, err = repo.SetLive(ctx, "alice@test.dev", true)
	require.NoError(t, err)

	live, err = repo.LiveChannels(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, domain.Email("alice@test.dev"), live[0])
}

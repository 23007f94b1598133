package memory

import (
	"context"
	"testing"
	"time"

	"streampulse/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUnsent_OldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "n2", Streamer: "streamer", User: "fan@test.dev", CreatedAt: now,
	}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "n1", Streamer: "streamer", User: "fan@test.dev", CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "other", Streamer: "streamer", User: "someoneelse@test.dev", CreatedAt: now,
	}))

	unsent, err := repo.ListUnsent(ctx, "fan@test.dev")
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	assert.Equal(t, domain.NotificationID("n1"), unsent[0].ID)
	assert.Equal(t, domain.NotificationID("n2"), unsent[1].ID)
}

func TestMarkSent_RemovesFromUnsentList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "n1", Streamer: "streamer", User: "fan@test.dev", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.MarkSent(ctx, "n1", time.Hour))

	unsent, err := repo.ListUnsent(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.Empty(t, unsent)
}

func TestMarkSent_UnknownID(t *testing.T) {
	repo := NewMemoryNotificationRepository()
	err := repo.MarkSent(context.Background(), "missing", time.Hour)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
}

func TestRetention_PrunesDeliveredRows(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "n1", Streamer: "streamer", User: "fan@test.dev", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.MarkSent(ctx, "n1", 5*time.Millisecond))
	time.Sleep(15 * time.Millisecond)

	// ListUnsent triggers the prune; a re-delivery of the same ID must not
	// collide with a leftover row.
	_, err := repo.ListUnsent(ctx, "fan@test.dev")
	require.NoError(t, err)

	err = repo.Create(ctx, &domain.Notification{
		ID: "n1", Streamer: "streamer", User: "fan@test.dev", CreatedAt: time.Now(),
	})
	assert.NoError(t, err)
}

func TestCreate_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	require.NoError(t, repo.Create(ctx, &domain.Notification{
		ID: "n1", User: "fan@test.dev", CreatedAt: time.Now(),
	}))
	err := repo.Create(ctx, &domain.Notification{
		ID: "n1", User: "fan@test.dev", CreatedAt: time.Now(),
	})
	assert.Error(t, err)
}

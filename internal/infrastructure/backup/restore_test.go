package backup

import (
	"context"
	"testing"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/infrastructure/repositories/memory"
	"streampulse/pkg/backup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type snapshotFixture struct {
	service       *backup.BackupService
	profiles      ports.ProfileRepository
	notifications ports.NotificationRepository
}

func newSnapshotFixture(t *testing.T) *snapshotFixture {
	t.Helper()

	storage, err := backup.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	return &snapshotFixture{
		service:       backup.NewBackupService(storage, "test"),
		profiles:      memory.NewMemoryProfileRepository(),
		notifications: memory.NewMemoryNotificationRepository(),
	}
}

func seedStores(t *testing.T, f *snapshotFixture) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.profiles.Create(ctx, &domain.Profile{
		Email:     "alice@test.dev",
		Username:  "alice",
		Prefs:     domain.NotificationPrefs{Popup: true},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, f.notifications.Create(ctx, &domain.Notification{
		ID:        "n-1",
		Streamer:  "alice",
		User:      "bob@test.dev",
		CreatedAt: time.Now(),
	}))
}

func TestCollectData_IncludesProfilesAndNotifications(t *testing.T) {
	ctx := context.Background()
	f := newSnapshotFixture(t)
	seedStores(t, f)

	scheduler := NewScheduler(f.service, f.profiles, f.notifications, Config{
		Interval:      time.Hour,
		RetentionDays: 7,
	}, zap.NewNop().Sugar())

	data, err := scheduler.collectData(ctx)
	require.NoError(t, err)

	assert.Contains(t, data.Profiles, "alice@test.dev")
	assert.Contains(t, data.Notifications, "n-1")
	assert.Equal(t, 1, data.Metadata["profile_count"])
	assert.Equal(t, 1, data.Metadata["notification_count"])
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newSnapshotFixture(t)
	seedStores(t, f)

	scheduler := NewScheduler(f.service, f.profiles, f.notifications, Config{
		Interval:      time.Hour,
		RetentionDays: 7,
	}, zap.NewNop().Sugar())

	data, err := scheduler.collectData(ctx)
	require.NoError(t, err)
	name, err := f.service.CreateBackup(ctx, data)
	require.NoError(t, err)

	// Restore into fresh stores.
	profiles := memory.NewMemoryProfileRepository()
	notifications := memory.NewMemoryNotificationRepository()
	restore := NewRestoreService(f.service, profiles, notifications, zap.NewNop().Sugar())

	require.NoError(t, restore.RestoreFromBackup(ctx, name, DefaultRestoreOptions()))

	profile, err := profiles.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.Equal(t, domain.Username("alice"), profile.Username)

	unsent, err := notifications.ListUnsent(ctx, "bob@test.dev")
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, domain.NotificationID("n-1"), unsent[0].ID)
}

func TestRestore_KeepsExistingRowsWithoutOverwrite(t *testing.T) {
	ctx := context.Background()
	f := newSnapshotFixture(t)
	seedStores(t, f)

	scheduler := NewScheduler(f.service, f.profiles, f.notifications, Config{
		Interval:      time.Hour,
		RetentionDays: 7,
	}, zap.NewNop().Sugar())

	data, err := scheduler.collectData(ctx)
	require.NoError(t, err)
	name, err := f.service.CreateBackup(ctx, data)
	require.NoError(t, err)

	// The live store moved on after the snapshot.
	profile, err := f.profiles.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	profile.ProfilePic = "https://cdn.test.dev/new.png"
	require.NoError(t, f.profiles.Update(ctx, profile))

	restore := NewRestoreService(f.service, f.profiles, f.notifications, zap.NewNop().Sugar())
	require.NoError(t, restore.RestoreFromBackup(ctx, name, DefaultRestoreOptions()))

	current, err := f.profiles.GetByEmail(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test.dev/new.png", current.ProfilePic)

	// The already-present notification was not duplicated.
	unsent, err := f.notifications.ListUnsent(ctx, "bob@test.dev")
	require.NoError(t, err)
	assert.Len(t, unsent, 1)
}

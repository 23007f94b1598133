package services_test

import (
	"context"
	"errors"
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

type presenceFixture struct {
	store ports.PresenceStore
	svc   ports.PresenceService
}

func newPresenceService(ttl time.Duration) (services.PresenceConfig, *presenceFixture) {
	cfg := services.PresenceConfig{HeartbeatTTL: ttl}
	store := memory.NewMemoryPresenceStore()
	return cfg, &presenceFixture{
		store: store,
		svc:   services.NewPresenceService(store, cfg, zap.NewNop().Sugar()),
	}
}

func TestPresence_ConnectThenOnline(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(time.Minute)

	require.NoError(t, f.svc.Connect(ctx, "fan@test.dev"))

	online, err := f.svc.IsOnline(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestPresence_MissingMarkerIsOffline(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(time.Minute)

	online, err := f.svc.IsOnline(ctx, "nobody@test.dev")
	require.NoError(t, err)
	assert.False(t, online)

	state, err := f.store.GetState(ctx, "nobody@test.dev")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, state)
}

func TestPresence_HeartbeatAfterExpiryReconnects(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(10 * time.Millisecond)

	require.NoError(t, f.svc.Connect(ctx, "fan@test.dev"))
	time.Sleep(25 * time.Millisecond)

	// The marker expired. A heartbeat must recreate it rather than fail.
	require.NoError(t, f.svc.Heartbeat(ctx, "fan@test.dev"))

	online, err := f.svc.IsOnline(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestPresence_AwayIsNotOnlineAndNotOffline(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(time.Minute)

	require.NoError(t, f.svc.Connect(ctx, "fan@test.dev"))
	require.NoError(t, f.svc.Away(ctx, "fan@test.dev"))

	online, err := f.svc.IsOnline(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.False(t, online)

	state, err := f.store.GetState(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceAway, state)
}

func TestPresence_DisconnectClearsMarker(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(time.Minute)

	require.NoError(t, f.svc.Connect(ctx, "fan@test.dev"))
	require.NoError(t, f.svc.Disconnect(ctx, "fan@test.dev"))

	state, err := f.store.GetState(ctx, "fan@test.dev")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOffline, state)
}

func TestPresence_MissingIdentity(t *testing.T) {
	ctx := context.Background()
	_, f := newPresenceService(time.Minute)

	assert.ErrorIs(t, f.svc.Connect(ctx, ""), domain.ErrMissingIdentity)
	assert.ErrorIs(t, f.svc.Heartbeat(ctx, "  "), domain.ErrMissingIdentity)
}

// failingClearStore refuses Clear so unload delivery falls back to expiry.
type failingClearStore struct {
	ports.PresenceStore
}

func (s *failingClearStore) Clear(ctx context.Context, email domain.Email) error {
	return errors.New("store unavailable")
}

func TestPresence_DisconnectFailureIsTolerable(t *testing.T) {
	ctx := context.Background()
	store := &failingClearStore{PresenceStore: memory.NewMemoryPresenceStore()}
	svc := services.NewPresenceService(store, services.PresenceConfig{HeartbeatTTL: time.Minute}, zap.NewNop().Sugar())

	require.NoError(t, svc.Connect(ctx, "alice@test.dev"))

	err := svc.Disconnect(ctx, "alice@test.dev")
	assert.Error(t, err)

	// The marker survives and the TTL remains the backstop.
	online, err := svc.IsOnline(ctx, "alice@test.dev")
	require.NoError(t, err)
	assert.True(t, online)
}

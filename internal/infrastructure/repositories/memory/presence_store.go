package memory

import (
	"context"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

type presenceMarker struct {
	state     domain.PresenceState
	expiresAt time.Time
}

type MemoryPresenceStore struct {
	markers map[domain.Email]presenceMarker
	mu      sync.RWMutex
}

func NewMemoryPresenceStore() ports.PresenceStore {
	return &MemoryPresenceStore{
		markers: make(map[domain.Email]presenceMarker),
	}
}

func (s *MemoryPresenceStore) SetState(ctx context.Context, email domain.Email, state domain.PresenceState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[email] = presenceMarker{state: state, expiresAt: time.Now().Add(ttl)}
	return nil
}

// GetState reports offline for missing or expired markers; absence of a
// renewed marker IS the offline signal in the TTL model.
func (s *MemoryPresenceStore) GetState(ctx context.Context, email domain.Email) (domain.PresenceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	marker, exists := s.markers[email]
	if !exists || marker.expiresAt.Before(time.Now()) {
		return domain.PresenceOffline, nil
	}
	return marker.state, nil
}

func (s *MemoryPresenceStore) Refresh(ctx context.Context, email domain.Email, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	marker, exists := s.markers[email]
	if !exists || marker.expiresAt.Before(time.Now()) {
		return domain.ErrPresenceNotFound
	}
	marker.expiresAt = time.Now().Add(ttl)
	s.markers[email] = marker
	return nil
}

func (s *MemoryPresenceStore) Clear(ctx context.Context, email domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, email)
	return nil
}

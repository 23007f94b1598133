package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

type storedNotification struct {
	notification domain.Notification
	expiresAt    time.Time // zero until marked sent
}

type MemoryNotificationRepository struct {
	notifications map[domain.NotificationID]*storedNotification
	mu            sync.RWMutex
}

func NewMemoryNotificationRepository() ports.NotificationRepository {
	return &MemoryNotificationRepository{
		notifications: make(map[domain.NotificationID]*storedNotification),
	}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[n.ID]; exists {
		return fmt.Errorf("notification already exists: %s", n.ID)
	}
	r.notifications[n.ID] = &storedNotification{notification: *n}
	return nil
}

func (r *MemoryNotificationRepository) ListUnsent(ctx context.Context, user domain.Email) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneExpired()

	var out []*domain.Notification
	for _, stored := range r.notifications {
		if stored.notification.User == user && !stored.notification.Sent {
			clone := stored.notification
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryNotificationRepository) MarkSent(ctx context.Context, id domain.NotificationID, retention time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.notifications[id]
	if !exists {
		return domain.ErrNotificationNotFound
	}
	stored.notification.Sent = true
	if retention > 0 {
		stored.expiresAt = time.Now().Add(retention)
	}
	return nil
}

func (r *MemoryNotificationRepository) List(ctx context.Context) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneExpired()

	out := make([]*domain.Notification, 0, len(r.notifications))
	for _, stored := range r.notifications {
		clone := stored.notification
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// pruneExpired drops delivered rows past their retention. Callers must hold
// the write lock.
func (r *MemoryNotificationRepository) pruneExpired() {
	now := time.Now()
	for id, stored := range r.notifications {
		if !stored.expiresAt.IsZero() && stored.expiresAt.Before(now) {
			delete(r.notifications, id)
		}
	}
}

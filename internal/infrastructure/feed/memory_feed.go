package feed

import (
	"context"
	"strings"
	"sync"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

// MemoryFeed is the in-process twin of RedisFeed for single-instance
// deployments and tests.
type MemoryFeed struct {
	notifySubs map[domain.Email]map[int]chan *domain.Notification
	chatSubs   map[string]map[int]chan *domain.ChatMessage
	nextID     int
	mu         sync.RWMutex
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		notifySubs: make(map[domain.Email]map[int]chan *domain.Notification),
		chatSubs:   make(map[string]map[int]chan *domain.ChatMessage),
	}
}

func (f *MemoryFeed) Publish(ctx context.Context, n *domain.Notification) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.notifySubs[n.User] {
		clone := *n
		select {
		case ch <- &clone:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, user domain.Email) (<-chan *domain.Notification, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.notifySubs[user] == nil {
		f.notifySubs[user] = make(map[int]chan *domain.Notification)
	}
	id := f.nextID
	f.nextID++

	ch := make(chan *domain.Notification, subscriberBuffer)
	f.notifySubs[user][id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.notifySubs[user][id]; ok {
			delete(f.notifySubs[user], id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

func (f *MemoryFeed) Send(ctx context.Context, msg *domain.ChatMessage) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	key := strings.ToLower(string(msg.Channel))
	for _, ch := range f.chatSubs[key] {
		clone := *msg
		select {
		case ch <- &clone:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Join(ctx context.Context, channel domain.Username) (<-chan *domain.ChatMessage, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(string(channel))
	if f.chatSubs[key] == nil {
		f.chatSubs[key] = make(map[int]chan *domain.ChatMessage)
	}
	id := f.nextID
	f.nextID++

	ch := make(chan *domain.ChatMessage, subscriberBuffer)
	f.chatSubs[key][id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.chatSubs[key][id]; ok {
			delete(f.chatSubs[key], id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

var (
	_ ports.NotificationFeed = (*MemoryFeed)(nil)
	_ ports.ChatRelay        = (*MemoryFeed)(nil)
)

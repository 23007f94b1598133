package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	notifyChannelPrefix = "streampulse:notify:"
	chatChannelPrefix   = "streampulse:chat:"

	// subscriberBuffer bounds per-session delivery. A session that cannot
	// drain its channel drops messages rather than stalling the feed.
	subscriberBuffer = 16
)

// RedisFeed carries notification inserts and chat messages over Redis
// pub/sub so every gateway instance sees writes made by any other instance.
type RedisFeed struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewRedisFeed(client *redis.Client, logger *zap.SugaredLogger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: logger,
	}
}

func (f *RedisFeed) Publish(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	channel := notifyChannelPrefix + string(n.User)
	if err := f.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	f.logger.Debugw("published notification",
		"id", n.ID,
		"user", n.User,
		"streamer", n.Streamer,
	)
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, user domain.Email) (<-chan *domain.Notification, func(), error) {
	channel := notifyChannelPrefix + string(user)
	pubsub := f.client.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so callers never miss
	// inserts published right after Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to notification feed: %w", err)
	}

	out := make(chan *domain.Notification, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		src := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				var n domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					f.logger.Warnw("failed to unmarshal notification from feed",
						"error", err,
						"payload", msg.Payload,
					)
					continue
				}
				select {
				case out <- &n:
				default:
					f.logger.Warnw("notification feed subscriber is not draining, dropping",
						"user", user,
						"id", n.ID,
					)
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		pubsub.Close()
	}
	return out, cancel, nil
}

func (f *RedisFeed) Send(ctx context.Context, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	channel := chatChannelPrefix + strings.ToLower(string(msg.Channel))
	if err := f.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish chat message: %w", err)
	}
	return nil
}

func (f *RedisFeed) Join(ctx context.Context, channel domain.Username) (<-chan *domain.ChatMessage, func(), error) {
	name := chatChannelPrefix + strings.ToLower(string(channel))
	pubsub := f.client.Subscribe(ctx, name)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to join chat channel: %w", err)
	}

	out := make(chan *domain.ChatMessage, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		src := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				var cm domain.ChatMessage
				if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
					f.logger.Warnw("failed to unmarshal chat message",
						"error", err,
						"payload", msg.Payload,
					)
					continue
				}
				select {
				case out <- &cm:
				default:
					// Chat is lossy under backpressure.
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		pubsub.Close()
	}
	return out, cancel, nil
}

var (
	_ ports.NotificationFeed = (*RedisFeed)(nil)
	_ ports.ChatRelay        = (*RedisFeed)(nil)
)

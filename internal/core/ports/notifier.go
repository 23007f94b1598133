package ports

import (
	"context"

	"streampulse/internal/core/domain"
)

// NotificationFeed is the change feed the gateway subscribes to: every
// notification insert for a recipient is pushed to that recipient's channel.
type NotificationFeed interface {
	Publish(ctx context.Context, n *domain.Notification) error
	// Subscribe delivers inserts for the given recipient from the moment of
	// subscription. The returned cancel func must be called before
	// subscribing on a different identity.
	Subscribe(ctx context.Context, user domain.Email) (<-chan *domain.Notification, func(), error)
}

// ChatRelay fans chat messages out to every session joined to a channel.
type ChatRelay interface {
	Send(ctx context.Context, msg *domain.ChatMessage) error
	Join(ctx context.Context, channel domain.Username) (<-chan *domain.ChatMessage, func(), error)
}

type EmailSender interface {
	// Send dispatches one email and returns the provider's delivery ID.
	Send(ctx context.Context, to domain.Email, subject, htmlBody string) (string, error)
}

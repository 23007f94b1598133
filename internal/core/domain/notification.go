package domain

import "time"

type NotificationID string

// Notification is a go-live announcement addressed to a single follower.
// Sent is false at creation and flipped once the gateway has delivered the
// row to the recipient's session.
type Notification struct {
	ID        NotificationID `json:"id"`
	Streamer  Username       `json:"streamer"`
	User      Email          `json:"user"`
	Sent      bool           `json:"sent"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChatMessage is relayed between sessions watching the same channel. It is
// never persisted.
type ChatMessage struct {
	Channel Username  `json:"channel"`
	From    Username  `json:"from"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

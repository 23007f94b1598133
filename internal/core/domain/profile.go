package domain

import "time"

// Email is the primary lookup key for profiles across the system.
type Email string

// Username is the public channel handle. Lookups are case-insensitive.
type Username string

type Profile struct {
	Email      Email
	Username   Username
	ProfilePic string
	StreamURL  string
	IsLive     bool

	// Following and Followers are sets of emails. The invariant is
	// bidirectional: A is in B.Followers iff B is in A.Following.
	// Storage owns the encoding; business logic only ever sees []Email.
	Following []Email
	Followers []Email

	Prefs     NotificationPrefs
	Emotes    []Emote
	CreatedAt time.Time
}

type NotificationPrefs struct {
	Popup bool `json:"popup"`
	Email bool `json:"email"`
}

type Emote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// IsFollowing reports whether the profile follows the given email.
func (p *Profile) IsFollowing(email Email) bool {
	for _, e := range p.Following {
		if e == email {
			return true
		}
	}
	return false
}

// PresenceState describes the liveness of a session. Away is distinct from
// offline: a hidden tab suppresses popup notifications but must not trigger
// the email fallback.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceAway    PresenceState = "away"
	PresenceOffline PresenceState = "offline"
)

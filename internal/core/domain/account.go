package domain

import "time"

type AccountID string

// Account holds authentication credentials. Profile data lives separately so
// a signed-up account can exist before its profile is completed.
type Account struct {
	ID           AccountID
	Email        Email
	PasswordHash string
	CreatedAt    time.Time
}

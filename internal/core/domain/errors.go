package domain

import "errors"

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrSelfFollow           = errors.New("cannot follow yourself")
	ErrMissingIdentity      = errors.New("caller identity required")
	ErrPresenceNotFound     = errors.New("presence marker not found")
)

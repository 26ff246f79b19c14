package guestbook

import "errors"

var (
	// ErrEmptyMessage is returned when a message is blank after sanitizing.
	ErrEmptyMessage = errors.New("guestbook: message is empty")
	// ErrUserNotFound is returned when the session email has no user row.
	ErrUserNotFound = errors.New("guestbook: user not found")
	// ErrEntryNotFound is returned for unknown entry ids.
	ErrEntryNotFound = errors.New("guestbook: entry not found")
)

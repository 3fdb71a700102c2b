package session

import "errors"

var (
	ErrNotLive            = errors.New("session is not live")
	ErrClosed             = errors.New("session is closed")
	ErrIdentityUnresolved = errors.New("profile identity is not resolved yet")
	ErrInvalidTransition  = errors.New("invalid session transition")
)

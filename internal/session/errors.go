package session

import "errors"

var (
	ErrInvalidToken        = errors.New("invalid session token")
	ErrTamperedToken       = errors.New("session token signature mismatch")
	ErrUnsupportedVersion  = errors.New("unsupported session token version")
	ErrNotConfigured       = errors.New("session backend is not configured")
	ErrSessionExpired      = errors.New("session expired")
	ErrPlayerMismatch      = errors.New("player does not match session")
	ErrInvalidPlayer       = errors.New("player must be a 0x-prefixed 20-byte hex address")
	ErrUpstreamUnavailable = errors.New("ledger unavailable")
)

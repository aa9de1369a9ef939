// Package common defines shared constants and sentinel errors used across
// client and server layers of notedown. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Share admission errors. The error text doubles as the reason string
	// sent back to the guest in the share:join acknowledgment, so the
	// wording is part of the wire contract.
	ErrGuestNameRequired = errors.New("guest name required")
	ErrShareNotFound     = errors.New("not found")
	ErrShareNotEditable  = errors.New("not editable")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrOwnerNotFound     = errors.New("owner not found")
)

package auth

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already registered")
	ErrUnauthorized = errors.New("unauthorized")

	// Token verification failures. Both collapse to ErrUnauthorized at the
	// HTTP boundary so callers cannot probe token state.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

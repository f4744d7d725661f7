package session

import "errors"

var (
	// ErrNotFound is returned by stores when no live row matches.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidInput is returned for a blank user id.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

package verification

import "errors"

var (
	// ErrInvalidToken is returned when a token is absent, already used, or bound to another purpose.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token was found past its expiry. The row is gone afterwards.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidInput is returned for a blank identifier or an unknown purpose.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned by stores when a token hash already exists.
	ErrConflict = errors.New("token conflict")

	// ErrNotFound is returned by stores when no row matched.
	ErrNotFound = errors.New("token not found")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
